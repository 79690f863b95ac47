package question

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeJSONL(t *testing.T, name, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestJSONLSourceLoad(t *testing.T) {
	payload := `{"id":"q1","question":"What is 2+2?","choices":["3","4"],"answer":"B","subject":"math"}
{"question":"Capital of France?","choices":["London","Paris"],"answer":"B"}

{"task_id":"t3","prompt":"Continue: the sky is","answer":"blue"}
`
	src := &JSONLSource{Benchmark: "quiz", Path: writeJSONL(t, "quiz.jsonl", payload)}

	qs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("len = %d, want 3", len(qs))
	}
	if qs[0].ID != "q1" || qs[0].Category != "math" {
		t.Fatalf("q0 = %+v", qs[0])
	}
	if qs[1].ID != "quiz-2" {
		t.Fatalf("missing id should be synthesized, got %q", qs[1].ID)
	}
	if qs[2].ID != "t3" || qs[2].Prompt != "Continue: the sky is" {
		t.Fatalf("q2 = %+v", qs[2])
	}
}

func TestJSONLSourceLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.jsonl"), []byte(`{"question":"b?","answer":"b"}`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.jsonl"), []byte(`{"question":"a?","answer":"a"}`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not jsonl"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	src := &JSONLSource{Benchmark: "dir", Path: dir}
	qs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("len = %d, want 2", len(qs))
	}
	if qs[0].Prompt != "a?" || qs[1].Prompt != "b?" {
		t.Fatalf("files must load in sorted order: %+v", qs)
	}
}

func TestJSONLSourceBadLine(t *testing.T) {
	src := &JSONLSource{Benchmark: "bad", Path: writeJSONL(t, "bad.jsonl", "{not json}\n")}
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestJSONLSourceMissingFile(t *testing.T) {
	src := &JSONLSource{Benchmark: "gone", Path: filepath.Join(t.TempDir(), "gone.jsonl")}
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
