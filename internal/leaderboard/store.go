package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evalforge/evalforge/internal/stats"
)

const defaultLimit = 50

// DefaultSQLitePath is where evaluation results land when storage is not
// configured.
const DefaultSQLitePath = "data/evalforge.db"

type Store struct {
	db *sql.DB
}

// Entry is one persisted evaluation outcome: a model's aggregated score
// on a benchmark at a point in time.
type Entry struct {
	ID         int64
	RunID      string
	Model      string
	Provider   string
	Benchmark  string
	Accuracy   float64
	Margin     float64
	Confidence float64
	SampleSize int
	Latency    int64 // total elapsed, milliseconds
	EvalDate   time.Time
}

// FromScore builds an Entry from an aggregated benchmark score.
func FromScore(runID, provider string, s *stats.BenchmarkScore) *Entry {
	if s == nil {
		return nil
	}
	return &Entry{
		RunID:      runID,
		Model:      s.Model,
		Provider:   provider,
		Benchmark:  s.Benchmark,
		Accuracy:   s.Accuracy,
		Margin:     s.Margin,
		Confidence: s.Confidence,
		SampleSize: s.SampleSize,
		Latency:    s.Elapsed.Milliseconds(),
	}
}

func NewStore(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("leaderboard: empty db path")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("leaderboard: create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: open db: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("leaderboard: ping db: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("leaderboard: nil db")
	}

	stmts := []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS eval_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			model TEXT NOT NULL,
			provider TEXT NOT NULL,
			benchmark TEXT NOT NULL,
			accuracy REAL NOT NULL,
			margin REAL NOT NULL,
			confidence REAL NOT NULL,
			sample_size INTEGER NOT NULL,
			latency INTEGER NOT NULL,
			eval_date INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_benchmark ON eval_entries(benchmark)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_model_benchmark ON eval_entries(model, benchmark)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_date ON eval_entries(eval_date)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("leaderboard: init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, entry *Entry) error {
	if s == nil || s.db == nil {
		return errors.New("leaderboard: nil store")
	}
	if ctx == nil {
		return errors.New("leaderboard: nil context")
	}
	if entry == nil {
		return errors.New("leaderboard: nil entry")
	}

	model := strings.TrimSpace(entry.Model)
	provider := strings.TrimSpace(entry.Provider)
	benchmark := strings.TrimSpace(entry.Benchmark)
	if model == "" || provider == "" || benchmark == "" {
		return errors.New("leaderboard: missing model/provider/benchmark")
	}

	evalDate := entry.EvalDate
	if evalDate.IsZero() {
		evalDate = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO eval_entries (
			run_id, model, provider, benchmark, accuracy, margin, confidence, sample_size, latency, eval_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.RunID, model, provider, benchmark, entry.Accuracy, entry.Margin,
		entry.Confidence, entry.SampleSize, entry.Latency, evalDate.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("leaderboard: insert entry: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	entry.EvalDate = evalDate
	entry.Model = model
	entry.Provider = provider
	entry.Benchmark = benchmark
	return nil
}

// GetLeaderboard lists entries for one benchmark ranked the same way
// comparison reports rank models: accuracy down, margin up, newest first.
func (s *Store) GetLeaderboard(ctx context.Context, benchmark string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("leaderboard: nil store")
	}
	if ctx == nil {
		return nil, errors.New("leaderboard: nil context")
	}
	benchmark = strings.TrimSpace(benchmark)
	if benchmark == "" {
		return nil, errors.New("leaderboard: empty benchmark")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, model, provider, benchmark, accuracy, margin, confidence, sample_size, latency, eval_date
		FROM eval_entries
		WHERE benchmark = ?
		ORDER BY accuracy DESC, margin ASC, latency ASC, eval_date DESC
		LIMIT ?
	`, benchmark, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: query leaderboard: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (s *Store) GetModelHistory(ctx context.Context, model, benchmark string) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("leaderboard: nil store")
	}
	if ctx == nil {
		return nil, errors.New("leaderboard: nil context")
	}
	model = strings.TrimSpace(model)
	benchmark = strings.TrimSpace(benchmark)
	if model == "" || benchmark == "" {
		return nil, errors.New("leaderboard: missing model/benchmark")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, model, provider, benchmark, accuracy, margin, confidence, sample_size, latency, eval_date
		FROM eval_entries
		WHERE model = ? AND benchmark = ?
		ORDER BY eval_date DESC
	`, model, benchmark)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: query model history: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// LatestScores returns the most recent entry per model-benchmark pair,
// the input a comparison report is built from.
func (s *Store) LatestScores(ctx context.Context, models, benchmarks []string) ([]*stats.BenchmarkScore, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("leaderboard: nil store")
	}
	if ctx == nil {
		return nil, errors.New("leaderboard: nil context")
	}

	var out []*stats.BenchmarkScore
	for _, m := range models {
		for _, b := range benchmarks {
			row := s.db.QueryRowContext(ctx, `
				SELECT accuracy, margin, confidence, sample_size, latency
				FROM eval_entries
				WHERE model = ? AND benchmark = ?
				ORDER BY eval_date DESC
				LIMIT 1
			`, strings.TrimSpace(m), strings.TrimSpace(b))

			var bs stats.BenchmarkScore
			var latencyMS int64
			err := row.Scan(&bs.Accuracy, &bs.Margin, &bs.Confidence, &bs.SampleSize, &latencyMS)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("leaderboard: query latest score: %w", err)
			}
			bs.Model = m
			bs.Benchmark = b
			bs.Elapsed = time.Duration(latencyMS) * time.Millisecond
			out = append(out, &bs)
		}
	}
	return out, nil
}

func scanRows(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var evalDateMS int64
		if err := rows.Scan(
			&e.ID,
			&e.RunID,
			&e.Model,
			&e.Provider,
			&e.Benchmark,
			&e.Accuracy,
			&e.Margin,
			&e.Confidence,
			&e.SampleSize,
			&e.Latency,
			&evalDateMS,
		); err != nil {
			return nil, fmt.Errorf("leaderboard: scan entry: %w", err)
		}
		e.EvalDate = time.UnixMilli(evalDateMS).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard: scan rows: %w", err)
	}
	return out, nil
}
