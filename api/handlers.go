package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evalforge/evalforge/internal/compare"
	"github.com/evalforge/evalforge/internal/gateway"
	"github.com/evalforge/evalforge/internal/leaderboard"
	"github.com/evalforge/evalforge/internal/question"
	"github.com/evalforge/evalforge/internal/runner"
	"github.com/evalforge/evalforge/internal/stats"
)

type runRequest struct {
	Model           string   `json:"model"`
	Benchmark       string   `json:"benchmark"`
	SampleSize      *int     `json:"sample_size,omitempty"`
	Seed            *int64   `json:"seed,omitempty"`
	Concurrency     *int     `json:"concurrency,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
	IncludeFailures *bool    `json:"include_failures,omitempty"`
}

type runResponse struct {
	RunID     string                  `json:"run_id"`
	Model     string                  `json:"model"`
	Benchmark string                  `json:"benchmark"`
	State     string                  `json:"state"`
	Score     *stats.BenchmarkScore   `json:"score,omitempty"`
	Results   []runner.QuestionResult `json:"results"`
	ElapsedMS int64                   `json:"elapsed_ms"`
	Error     string                  `json:"error,omitempty"`
}

type compareRequest struct {
	Models     []string `json:"models"`
	Benchmarks []string `json:"benchmarks"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListBenchmarks(c *gin.Context) {
	if s == nil || s.questions == nil {
		respondError(c, http.StatusInternalServerError, errors.New("question store not configured"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"benchmarks": s.questions.Benchmarks()})
}

func (s *Server) handleStartRun(c *gin.Context) {
	if s == nil || s.runner == nil {
		respondError(c, http.StatusInternalServerError, errors.New("runner not configured"))
		return
	}

	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	req.Model = strings.TrimSpace(req.Model)
	req.Benchmark = strings.TrimSpace(req.Benchmark)
	if req.Model == "" || req.Benchmark == "" {
		respondError(c, http.StatusBadRequest, errors.New("model and benchmark are required"))
		return
	}

	opts := runner.Options{IncludeFailures: req.IncludeFailures}
	if s.config != nil {
		opts.SampleSize = s.config.Evaluation.SampleSize
		opts.Seed = s.config.Evaluation.Seed
		opts.Concurrency = s.config.Evaluation.Concurrency
		opts.Confidence = s.config.Evaluation.Confidence
	}
	if req.SampleSize != nil {
		opts.SampleSize = *req.SampleSize
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	if req.Concurrency != nil {
		opts.Concurrency = *req.Concurrency
	}
	if req.Confidence != nil {
		opts.Confidence = *req.Confidence
	}

	pr, err := s.runner.Run(c.Request.Context(), req.Model, req.Benchmark, opts)
	if err != nil {
		switch {
		case errors.Is(err, question.ErrNotFound):
			respondError(c, http.StatusNotFound, err)
		case errors.Is(err, question.ErrInvalidSize):
			respondError(c, http.StatusBadRequest, err)
		case errors.As(err, new(*gateway.FatalError)):
			// Partial results survive a fatal inference error.
			c.JSON(http.StatusBadGateway, toRunResponse(pr))
		default:
			respondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	if s.lbStore != nil && pr.Score != nil {
		entry := leaderboard.FromScore(pr.RunID, s.provider, pr.Score)
		if err := s.lbStore.Save(c.Request.Context(), entry); err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}
	}

	c.JSON(http.StatusOK, toRunResponse(pr))
}

func (s *Server) handleCompare(c *gin.Context) {
	if s == nil || s.lbStore == nil {
		respondError(c, http.StatusInternalServerError, errors.New("leaderboard store not configured"))
		return
	}

	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if len(req.Models) == 0 || len(req.Benchmarks) == 0 {
		respondError(c, http.StatusBadRequest, errors.New("models and benchmarks are required"))
		return
	}

	scores, err := s.lbStore.LatestScores(c.Request.Context(), req.Models, req.Benchmarks)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	report, err := compare.Build(req.Models, req.Benchmarks, scores)
	if err != nil {
		var inc *compare.IncompleteError
		if errors.As(err, &inc) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   inc.Error(),
				"missing": inc.Missing,
			})
			return
		}
		respondError(c, http.StatusBadRequest, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func toRunResponse(pr *runner.PairResult) *runResponse {
	if pr == nil {
		return nil
	}
	out := &runResponse{
		RunID:     pr.RunID,
		Model:     pr.Model,
		Benchmark: pr.Benchmark,
		State:     pr.State.String(),
		Score:     pr.Score,
		Results:   pr.Results,
		ElapsedMS: pr.Elapsed.Milliseconds(),
	}
	if pr.Err != nil {
		out.Error = pr.Err.Error()
	}
	return out
}

func respondError(c *gin.Context, status int, err error) {
	if err == nil {
		c.Status(status)
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
