package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/evalforge/evalforge/internal/gateway"
	"github.com/evalforge/evalforge/internal/question"
	"github.com/evalforge/evalforge/internal/scorer"
	"github.com/evalforge/evalforge/internal/stats"
)

// State tracks a run through its lifecycle. Transitions are linear:
// Pending -> Sampling -> Running -> Aggregating -> Done, with Failed
// reachable from any non-terminal state.
type State int32

const (
	StatePending State = iota
	StateSampling
	StateRunning
	StateAggregating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSampling:
		return "sampling"
	case StateRunning:
		return "running"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress is a snapshot delivered to the OnProgress callback. Done counts
// settled questions (answered, failed, or skipped after a fatal error).
type Progress struct {
	RunID     string
	Model     string
	Benchmark string
	State     State
	Done      int
	Total     int
}

// QuestionResult is the outcome for one sampled question. Slots keep the
// sample order regardless of which worker finished first.
type QuestionResult struct {
	QuestionID string        `json:"question_id"`
	Model      string        `json:"model"`
	Benchmark  string        `json:"benchmark"`
	Response   string        `json:"response,omitempty"`
	Score      float64       `json:"score"`
	Passed     bool          `json:"passed"`
	Latency    time.Duration `json:"latency"`
	Retries    int           `json:"retries"`
	Err        error         `json:"-"`
	ErrMsg     string        `json:"error,omitempty"`
}

// PairResult is the full outcome of running one model on one benchmark.
// On a fatal inference error the Results already settled are preserved in
// order and Err carries the cause.
type PairResult struct {
	RunID     string                `json:"run_id"`
	Model     string                `json:"model"`
	Benchmark string                `json:"benchmark"`
	State     State                 `json:"-"`
	Results   []QuestionResult      `json:"results"`
	Score     *stats.BenchmarkScore `json:"score,omitempty"`
	Elapsed   time.Duration         `json:"elapsed"`
	Err       error                 `json:"-"`
}

// Options tune a single run. Zero values fall back to the defaults used
// across the CLI and API.
type Options struct {
	SampleSize      int
	Seed            int64
	Concurrency     int
	Confidence      float64
	IncludeFailures *bool // nil means true: failed questions score 0
	OnProgress      func(Progress)
}

func (o Options) includeFailures() bool {
	return o.IncludeFailures == nil || *o.IncludeFailures
}

// Inferer is the inference surface the runner needs. *gateway.Gateway
// implements it.
type Inferer interface {
	Infer(ctx context.Context, model, prompt string) (*gateway.Result, error)
}

// Runner drives model-benchmark evaluations: sample, infer through the
// gateway under bounded concurrency, score, aggregate.
type Runner struct {
	store   *question.Store
	scorers *scorer.Registry
	gw      Inferer
	log     *zap.Logger
}

func New(store *question.Store, scorers *scorer.Registry, gw Inferer, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{store: store, scorers: scorers, gw: gw, log: log}
}

type evalTask struct {
	ctx context.Context
	idx int
	q   question.Question
	out []QuestionResult
	wg  *sync.WaitGroup
	run *runState
}

type runState struct {
	runID     string
	model     string
	benchmark string
	total     int
	done      atomic.Int32
	fatalOnce sync.Once
	fatal     atomic.Pointer[gateway.FatalError]
	cancel    context.CancelFunc
	opts      Options
}

func (rs *runState) settle(state State) {
	n := int(rs.done.Add(1))
	rs.notify(state, n)
}

func (rs *runState) notify(state State, done int) {
	if rs.opts.OnProgress == nil {
		return
	}
	rs.opts.OnProgress(Progress{
		RunID:     rs.runID,
		Model:     rs.model,
		Benchmark: rs.benchmark,
		State:     state,
		Done:      done,
		Total:     rs.total,
	})
}

func (rs *runState) abort(fe *gateway.FatalError) {
	rs.fatalOnce.Do(func() {
		rs.fatal.Store(fe)
		rs.cancel()
	})
}

// Run evaluates one model on one benchmark. A fatal inference error stops
// new dispatch, lets in-flight questions settle, and returns the partial
// PairResult alongside the wrapped fatal error. Exhausted-retry failures
// on individual questions do not stop the run.
func (r *Runner) Run(ctx context.Context, model, benchmark string, opts Options) (*PairResult, error) {
	if r == nil || r.store == nil || r.scorers == nil || r.gw == nil {
		return nil, errors.New("runner: not fully configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("runner: empty model")
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 8
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Confidence <= 0 {
		opts.Confidence = stats.DefaultConfidence
	}

	start := time.Now()
	pr := &PairResult{
		RunID:     uuid.NewString(),
		Model:     model,
		Benchmark: benchmark,
		State:     StatePending,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rs := &runState{
		runID:     pr.RunID,
		model:     model,
		benchmark: benchmark,
		cancel:    cancel,
		opts:      opts,
	}

	pr.State = StateSampling
	rs.notify(StateSampling, 0)

	sample, err := r.store.Sample(runCtx, benchmark, opts.SampleSize, opts.Seed)
	if err != nil {
		pr.State = StateFailed
		pr.Err = err
		pr.Elapsed = time.Since(start)
		return pr, fmt.Errorf("runner: sampling %s: %w", benchmark, err)
	}
	rs.total = len(sample.Questions)

	pr.State = StateRunning
	pr.Results = make([]QuestionResult, rs.total)
	rs.notify(StateRunning, 0)

	r.log.Info("run started",
		zap.String("run_id", pr.RunID),
		zap.String("model", model),
		zap.String("benchmark", benchmark),
		zap.Int("questions", rs.total),
		zap.Int("concurrency", opts.Concurrency))

	pool, err := ants.NewPoolWithFunc(opts.Concurrency, func(arg interface{}) {
		r.evaluate(arg.(*evalTask))
	})
	if err != nil {
		pr.State = StateFailed
		pr.Err = err
		pr.Elapsed = time.Since(start)
		return pr, fmt.Errorf("runner: worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range sample.Questions {
		if runCtx.Err() != nil {
			r.skipFrom(pr.Results, sample.Questions, i, model, benchmark, rs)
			break
		}
		wg.Add(1)
		task := &evalTask{
			ctx: runCtx,
			idx: i,
			q:   sample.Questions[i],
			out: pr.Results,
			wg:  &wg,
			run: rs,
		}
		if err := pool.Invoke(task); err != nil {
			wg.Done()
			r.skipFrom(pr.Results, sample.Questions, i, model, benchmark, rs)
			break
		}
	}
	wg.Wait()

	pr.Elapsed = time.Since(start)

	if fe := rs.fatal.Load(); fe != nil {
		pr.State = StateFailed
		pr.Err = fe
		return pr, fmt.Errorf("runner: %s on %s: %w", model, benchmark, fe)
	}
	if err := ctx.Err(); err != nil {
		pr.State = StateFailed
		pr.Err = err
		return pr, err
	}

	pr.State = StateAggregating
	rs.notify(StateAggregating, rs.total)

	score, err := r.aggregate(pr, opts)
	if err != nil {
		pr.State = StateFailed
		pr.Err = err
		return pr, err
	}
	score.Elapsed = pr.Elapsed
	pr.Score = score

	pr.State = StateDone
	rs.notify(StateDone, rs.total)
	r.log.Info("run finished",
		zap.String("run_id", pr.RunID),
		zap.Float64("accuracy", score.Accuracy),
		zap.Duration("elapsed", pr.Elapsed))
	return pr, nil
}

func (r *Runner) evaluate(t *evalTask) {
	defer t.wg.Done()

	res := QuestionResult{
		QuestionID: t.q.ID,
		Model:      t.run.model,
		Benchmark:  t.run.benchmark,
	}
	defer func() {
		if res.Err != nil {
			res.ErrMsg = res.Err.Error()
		}
		t.out[t.idx] = res
		t.run.settle(StateRunning)
	}()

	if err := t.ctx.Err(); err != nil {
		res.Err = err
		return
	}

	infRes, err := r.gw.Infer(t.ctx, t.run.model, FormatPrompt(&t.q))
	if err != nil {
		var fe *gateway.FatalError
		if errors.As(err, &fe) {
			t.run.abort(fe)
		}
		res.Err = err
		return
	}
	res.Latency = infRes.Latency
	res.Retries = infRes.Retries
	if infRes.Err != nil {
		res.Err = infRes.Err
		return
	}
	res.Response = infRes.Text

	score, err := r.scorers.Score(t.run.benchmark, &t.q, infRes.Text)
	if err != nil {
		res.Err = err
		return
	}
	res.Score = score
	res.Passed = score >= 1
}

// skipFrom settles slots that were never dispatched after a fatal error
// or cancellation, keeping the results slice aligned with the sample.
func (r *Runner) skipFrom(out []QuestionResult, qs []question.Question, from int, model, benchmark string, rs *runState) {
	for i := from; i < len(qs); i++ {
		out[i] = QuestionResult{
			QuestionID: qs[i].ID,
			Model:      model,
			Benchmark:  benchmark,
			Err:        context.Canceled,
			ErrMsg:     "skipped: run aborted",
		}
		rs.settle(StateRunning)
	}
}

func (r *Runner) aggregate(pr *PairResult, opts Options) (*stats.BenchmarkScore, error) {
	scores := make([]float64, 0, len(pr.Results))
	for _, qr := range pr.Results {
		if qr.Err != nil {
			if opts.includeFailures() {
				scores = append(scores, 0)
			}
			continue
		}
		scores = append(scores, qr.Score)
	}
	return stats.Aggregate(pr.Model, pr.Benchmark, scores, opts.Confidence)
}

// FormatPrompt renders a question for inference. Multiple-choice questions
// get lettered options and an instruction to answer with the letter only.
func FormatPrompt(q *question.Question) string {
	if q == nil {
		return ""
	}
	if len(q.Choices) == 0 {
		return q.Prompt
	}
	var b strings.Builder
	b.WriteString(q.Prompt)
	b.WriteString("\n\n")
	for i, choice := range q.Choices {
		fmt.Fprintf(&b, "%c) %s\n", 'A'+i, choice)
	}
	b.WriteString("\nAnswer with the letter of the correct option only.")
	return b.String()
}
