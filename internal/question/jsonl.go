package question

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// JSONLSource loads questions from a JSONL file (or a directory of JSONL
// files), one record per line.
type JSONLSource struct {
	Benchmark string
	Path      string
	Desc      string
}

type jsonlRow struct {
	ID       string   `json:"id,omitempty"`
	TaskID   string   `json:"task_id,omitempty"`
	Question string   `json:"question"`
	Prompt   string   `json:"prompt,omitempty"`
	Choices  []string `json:"choices,omitempty"`
	Answer   string   `json:"answer"`
	Subject  string   `json:"subject,omitempty"`
	Category string   `json:"category,omitempty"`
}

func (s *JSONLSource) Name() string { return s.Benchmark }

func (s *JSONLSource) Description() string {
	if strings.TrimSpace(s.Desc) != "" {
		return s.Desc
	}
	return fmt.Sprintf("%s benchmark loaded from %s", s.Benchmark, s.Path)
}

func (s *JSONLSource) Load(ctx context.Context) ([]Question, error) {
	if s == nil {
		return nil, errors.New("question: nil jsonl source")
	}
	if ctx == nil {
		return nil, errors.New("question: nil context")
	}

	rows, err := readJSONL[jsonlRow](ctx, s.Path)
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(strings.TrimSpace(s.Benchmark))
	out := make([]Question, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		prompt := strings.TrimSpace(row.Question)
		if prompt == "" {
			prompt = strings.TrimSpace(row.Prompt)
		}
		if prompt == "" {
			continue
		}

		id := strings.TrimSpace(row.ID)
		if id == "" {
			id = strings.TrimSpace(row.TaskID)
		}
		if id == "" {
			id = fmt.Sprintf("%s-%d", name, i+1)
		}

		category := strings.TrimSpace(row.Category)
		if category == "" {
			category = strings.TrimSpace(row.Subject)
		}

		out = append(out, Question{
			ID:        id,
			Benchmark: name,
			Prompt:    prompt,
			Choices:   compactStrings(row.Choices),
			Answer:    strings.TrimSpace(row.Answer),
			Category:  category,
		})
	}
	return out, nil
}

func readJSONL[T any](ctx context.Context, path string) ([]T, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("question: empty jsonl path")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return readJSONLDir[T](ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return decodeJSONLStream[T](ctx, f)
}

func readJSONLDir[T any](ctx context.Context, dir string) ([]T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(e.Name()))
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	var out []T
	for _, p := range paths {
		items, err := readJSONL[T](ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func decodeJSONLStream[T any](ctx context.Context, r io.Reader) ([]T, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var out []T
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			return out, fmt.Errorf("question: parse jsonl: %w", err)
		}
		out = append(out, item)
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func compactStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
