package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/evalforge/evalforge/internal/config"
	"github.com/evalforge/evalforge/internal/gateway"
	"github.com/evalforge/evalforge/internal/leaderboard"
	"github.com/evalforge/evalforge/internal/question"
	"github.com/evalforge/evalforge/internal/runner"
	"github.com/evalforge/evalforge/internal/scorer"
)

type fakeInferer struct {
	fn func(model, prompt string) (*gateway.Result, error)
}

func (f *fakeInferer) Infer(ctx context.Context, model, prompt string) (*gateway.Result, error) {
	if f.fn != nil {
		return f.fn(model, prompt)
	}
	return &gateway.Result{Text: "A"}, nil
}

func newTestServer(t *testing.T, inf runner.Inferer) *Server {
	t.Helper()

	gin.SetMode(gin.TestMode)
	t.Setenv("EVALFORGE_API_KEY", "")
	t.Setenv("EVALFORGE_DISABLE_AUTH", "true")

	qs := make([]question.Question, 8)
	for i := range qs {
		qs[i] = question.Question{
			ID:        fmt.Sprintf("demo-%d", i),
			Benchmark: "demo",
			Prompt:    fmt.Sprintf("question %d", i),
			Choices:   []string{"alpha", "beta"},
			Answer:    "A",
		}
	}
	store := question.NewStore()
	store.Register(&question.StaticSource{Benchmark: "demo", Questions: qs})

	reg := scorer.NewRegistry()
	reg.Register("demo", scorer.MultipleChoiceScorer{})

	if inf == nil {
		inf = &fakeInferer{}
	}
	lbStore, err := leaderboard.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = lbStore.Close() })

	s, err := NewServer(config.Default(), store, runner.New(store, reg, inf, nil), "claude", lbStore)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandleListBenchmarks(t *testing.T) {
	s := newTestServer(t, nil)
	w := doJSON(t, s, http.MethodGet, "/api/benchmarks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Benchmarks []string `json:"benchmarks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Benchmarks) != 1 || resp.Benchmarks[0] != "demo" {
		t.Fatalf("benchmarks = %v", resp.Benchmarks)
	}
}

func TestHandleStartRun(t *testing.T) {
	s := newTestServer(t, nil)
	w := doJSON(t, s, http.MethodPost, "/api/runs", runRequest{Model: "m1", Benchmark: "demo"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp runResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "done" {
		t.Fatalf("state = %q", resp.State)
	}
	if resp.Score == nil || resp.Score.Accuracy != 1.0 {
		t.Fatalf("score = %+v", resp.Score)
	}

	// The run lands on the leaderboard.
	w = doJSON(t, s, http.MethodGet, "/api/leaderboard?benchmark=demo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("leaderboard status = %d", w.Code)
	}
	var entries []leaderboard.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].Model != "m1" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestHandleStartRunUnknownBenchmark(t *testing.T) {
	s := newTestServer(t, nil)
	w := doJSON(t, s, http.MethodPost, "/api/runs", runRequest{Model: "m1", Benchmark: "nope"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleStartRunValidation(t *testing.T) {
	s := newTestServer(t, nil)
	w := doJSON(t, s, http.MethodPost, "/api/runs", runRequest{Model: "", Benchmark: "demo"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleCompareIncomplete(t *testing.T) {
	s := newTestServer(t, nil)
	w := doJSON(t, s, http.MethodPost, "/api/compare", compareRequest{
		Models:     []string{"m1", "m2"},
		Benchmarks: []string{"demo"},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	var resp struct {
		Missing []struct {
			Model     string `json:"model"`
			Benchmark string `json:"benchmark"`
		} `json:"missing"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Missing) != 2 {
		t.Fatalf("missing = %+v, want both pairs", resp.Missing)
	}
}

func TestHandleCompareComplete(t *testing.T) {
	s := newTestServer(t, nil)
	for _, model := range []string{"m1", "m2"} {
		w := doJSON(t, s, http.MethodPost, "/api/runs", runRequest{Model: model, Benchmark: "demo"})
		if w.Code != http.StatusOK {
			t.Fatalf("run %s: status = %d", model, w.Code)
		}
	}

	w := doJSON(t, s, http.MethodPost, "/api/compare", compareRequest{
		Models:     []string{"m1", "m2"},
		Benchmarks: []string{"demo"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var report struct {
		Overall []struct {
			Model string `json:"model"`
		} `json:"overall"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(report.Overall) != 2 {
		t.Fatalf("overall = %+v", report.Overall)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("EVALFORGE_API_KEY", "secret")
	t.Setenv("EVALFORGE_DISABLE_AUTH", "")

	store := question.NewStore()
	lbStore, err := leaderboard.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer lbStore.Close()

	s, err := NewServer(config.Default(), store, runner.New(store, scorer.NewRegistry(), &fakeInferer{}, nil), "claude", lbStore)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without key", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-API-Key", "secret")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with key", w.Code)
	}
}

func TestMissingAuthConfiguration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("EVALFORGE_API_KEY", "")
	t.Setenv("EVALFORGE_DISABLE_AUTH", "")

	lbStore, err := leaderboard.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer lbStore.Close()

	_, err = NewServer(config.Default(), question.NewStore(), nil, "claude", lbStore)
	if err == nil {
		t.Fatal("expected error without auth configuration")
	}
}
