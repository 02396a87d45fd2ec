package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// promptColumnLimit keeps the raw CSV diffable; full prompts live in the
// checkpoint store.
const promptColumnLimit = 2000

var csvHeader = []string{
	"run_id", "model", "backend", "benchmark", "task_id", "category",
	"prompt", "response", "parsed_answer", "ground_truth",
	"score", "is_correct", "inst_level", "latency_ms", "tokens_generated",
	"thinking_tokens", "tok_s", "error", "timestamp",
}

// LogWriter appends result records to a human-diffable CSV, one row per
// task attempt, flushed after every write so an interrupted run loses at
// most the in-flight task.
type LogWriter struct {
	f *os.File
	w *csv.Writer
}

// LogPath returns the raw result log path for a run.
func LogPath(dir, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("raw_results_%s.csv", runID))
}

// NewLogWriter opens (or creates) the log at path, writing the header row
// only when the file is new.
func NewLogWriter(path string) (*LogWriter, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("results: empty log path")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("results: create log dir: %w", err)
		}
	}

	info, statErr := os.Stat(path)
	isNew := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("results: open log %q: %w", path, err)
	}

	lw := &LogWriter{f: f, w: csv.NewWriter(f)}
	if isNew {
		if err := lw.w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("results: write header: %w", err)
		}
		lw.w.Flush()
		if err := lw.w.Error(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return lw, nil
}

// Append writes one record and flushes it to stable storage.
func (lw *LogWriter) Append(r *ResultRecord) error {
	if lw == nil || lw.w == nil {
		return errors.New("results: nil log writer")
	}
	if r == nil {
		return errors.New("results: nil record")
	}

	prompt := r.Prompt
	if len(prompt) > promptColumnLimit {
		prompt = prompt[:promptColumnLimit]
	}

	row := []string{
		r.RunID, r.ModelID, r.Backend, r.Benchmark, r.TaskID, r.Category,
		prompt, r.RawResponse, r.ParsedAnswer, r.GroundTruth,
		strconv.FormatFloat(r.Score, 'f', 4, 64),
		strconv.FormatBool(r.Correct),
		strconv.FormatFloat(r.InstLevelScore, 'f', 4, 64),
		strconv.FormatInt(r.LatencyMs, 10),
		strconv.Itoa(r.TokensGenerated),
		strconv.Itoa(r.ThinkingTokens),
		strconv.FormatFloat(r.TokensPerSec, 'f', 2, 64),
		r.Error,
		r.Timestamp.UTC().Format(time.RFC3339),
	}
	if err := lw.w.Write(row); err != nil {
		return fmt.Errorf("results: append: %w", err)
	}
	lw.w.Flush()
	if err := lw.w.Error(); err != nil {
		return fmt.Errorf("results: flush: %w", err)
	}
	return lw.f.Sync()
}

func (lw *LogWriter) Close() error {
	if lw == nil || lw.f == nil {
		return nil
	}
	lw.w.Flush()
	return lw.f.Close()
}

// ReadLog parses one raw result log. Unknown or short rows are rejected:
// a malformed log is a consolidation-time error, not data to guess at.
func ReadLog(path string) ([]*ResultRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("results: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("results: read header of %q: %w", path, err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("results: %q: unexpected header (%d columns)", path, len(header))
	}

	var out []*ResultRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("results: %q line %d: %w", path, line, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("results: %q line %d: %w", path, line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string) (*ResultRecord, error) {
	if len(row) != len(csvHeader) {
		return nil, fmt.Errorf("want %d columns, got %d", len(csvHeader), len(row))
	}

	score, err := strconv.ParseFloat(row[10], 64)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	correct, err := strconv.ParseBool(row[11])
	if err != nil {
		return nil, fmt.Errorf("is_correct: %w", err)
	}
	instLevel, err := strconv.ParseFloat(row[12], 64)
	if err != nil {
		return nil, fmt.Errorf("inst_level: %w", err)
	}
	latency, err := strconv.ParseInt(row[13], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("latency_ms: %w", err)
	}
	tokens, err := strconv.Atoi(row[14])
	if err != nil {
		return nil, fmt.Errorf("tokens_generated: %w", err)
	}
	thinking, err := strconv.Atoi(row[15])
	if err != nil {
		return nil, fmt.Errorf("thinking_tokens: %w", err)
	}
	tokS, err := strconv.ParseFloat(row[16], 64)
	if err != nil {
		return nil, fmt.Errorf("tok_s: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, row[18])
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}

	return &ResultRecord{
		RunID:           row[0],
		ModelID:         row[1],
		Backend:         row[2],
		Benchmark:       row[3],
		TaskID:          row[4],
		Category:        row[5],
		Prompt:          row[6],
		RawResponse:     row[7],
		ParsedAnswer:    row[8],
		GroundTruth:     row[9],
		Score:           score,
		Correct:         correct,
		InstLevelScore:  instLevel,
		LatencyMs:       latency,
		TokensGenerated: tokens,
		ThinkingTokens:  thinking,
		TokensPerSec:    tokS,
		Error:           row[17],
		Timestamp:       ts,
	}, nil
}
