package cards

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/azbuka-poster/internal/alphabet"
	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
)

// BatchCoordinator runs the full alphabet (or a resumed/limited subset)
// through the adaptive generator, one pair at a time, with a fixed delay
// between pairs to respect the backend's rate limits.
type BatchCoordinator struct {
	log         *logger.Logger
	gen         *AdaptiveGenerator
	store       *Store
	outDir      string
	delay       time.Duration
	maxAttempts int
}

func NewBatchCoordinator(log *logger.Logger, gen *AdaptiveGenerator, store *Store, outDir string, delay time.Duration, maxAttempts int) (*BatchCoordinator, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: outDir, Err: err}
	}
	return &BatchCoordinator{
		log:         log.With("service", "BatchCoordinator"),
		gen:         gen,
		store:       store,
		outDir:      outDir,
		delay:       delay,
		maxAttempts: maxAttempts,
	}, nil
}

// SelectPairs applies resume and limit to the static pair ordering. An
// unknown resume letter is a warning, not an error, and starts from the
// beginning.
func (c *BatchCoordinator) SelectPairs(pairs []alphabet.Pair, resumeFrom string, limit int) []alphabet.Pair {
	selected := pairs
	if resumeFrom != "" {
		key := strings.ToUpper(strings.TrimSpace(resumeFrom))
		start := -1
		for i, p := range pairs {
			if p.Letter == key {
				start = i
				break
			}
		}
		if start >= 0 {
			selected = pairs[start:]
			c.log.Info("resuming generation", "from", key)
		} else {
			c.log.Warn("resume letter not found, starting from beginning", "letter", resumeFrom)
		}
	}
	if limit > 0 && limit < len(selected) {
		selected = selected[:limit]
		c.log.Info("limiting batch", "limit", limit)
	}
	return selected
}

// Run iterates the selected pairs sequentially. A canceled context stops the
// loop before the next pair starts; results collected so far are returned so
// the caller can still write a report.
func (c *BatchCoordinator) Run(ctx context.Context, pairs []alphabet.Pair) []GenerationResult {
	results := make([]GenerationResult, 0, len(pairs))

	c.log.Info("starting batch generation", "pairs", len(pairs), "delay", c.delay.String())

	for i, pair := range pairs {
		if ctx.Err() != nil {
			c.log.Warn("batch interrupted", "processed", i, "total", len(pairs))
			break
		}

		c.log.Info("processing pair",
			"index", fmt.Sprintf("%d/%d", i+1, len(pairs)),
			"letter", pair.Letter, "word", pair.Word)

		result := c.gen.GenerateWithRetries(ctx, pair, c.maxAttempts)
		results = append(results, result)

		switch {
		case result.Cached:
			c.log.Info("used cached card", "letter", pair.Letter)
		case result.Success:
			c.log.Info("generated card", "letter", pair.Letter, "attempts", result.AttemptsUsed)
		default:
			c.log.Error("pair failed", "letter", pair.Letter, "error", result.Error)
		}

		if i < len(pairs)-1 && c.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.delay):
			}
		}
	}

	return results
}

// ReportSummary are the aggregate counts of one batch run.
type ReportSummary struct {
	RunID           string  `json:"run_id"`
	Timestamp       string  `json:"timestamp"`
	Total           int     `json:"total"`
	Successful      int     `json:"successful"`
	Cached          int     `json:"cached"`
	Failed          int     `json:"failed"`
	DurationSeconds float64 `json:"duration_seconds"`
	RateLimitMs     int64   `json:"rate_limit_ms"`
}

// Report is the JSON document persisted after every batch run, complete or
// not.
type Report struct {
	Summary         ReportSummary      `json:"summary"`
	PairsUsed       map[string]string  `json:"pairs_used"`
	DetailedResults []GenerationResult `json:"detailed_results"`
	FailedLetters   []string           `json:"failed_letters"`
}

func Summarize(results []GenerationResult, duration time.Duration, rateLimit time.Duration) ReportSummary {
	s := ReportSummary{
		RunID:           uuid.NewString(),
		Timestamp:       time.Now().Format(time.RFC3339),
		Total:           len(results),
		DurationSeconds: duration.Seconds(),
		RateLimitMs:     rateLimit.Milliseconds(),
	}
	for _, r := range results {
		if r.Success {
			s.Successful++
		} else {
			s.Failed++
		}
		if r.Cached {
			s.Cached++
		}
	}
	return s
}

// WriteReport persists the batch report, timestamp-named, to the output
// directory. It is called regardless of how iteration ended.
func (c *BatchCoordinator) WriteReport(results []GenerationResult, pairs []alphabet.Pair, duration time.Duration) (string, error) {
	pairsUsed := make(map[string]string, len(pairs))
	for _, p := range pairs {
		pairsUsed[p.Letter] = p.Word
	}

	var failed []string
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r.Letter)
		}
	}

	report := Report{
		Summary:         Summarize(results, duration, c.delay),
		PairsUsed:       pairsUsed,
		DetailedResults: results,
		FailedLetters:   failed,
	}

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(c.outDir, fmt.Sprintf("generation_report_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", &StorageError{Op: "write", Path: path, Err: err}
	}
	c.log.Info("generation report saved", "path", path)
	return path, nil
}

// Status reports which letters already have cards on disk.
type Status struct {
	Total            int      `json:"total_letters"`
	GeneratedCount   int      `json:"generated_count"`
	MissingCount     int      `json:"missing_count"`
	GeneratedLetters []string `json:"generated_letters"`
	MissingLetters   []string `json:"missing_letters"`
	Completion       float64  `json:"completion_percentage"`
}

func (c *BatchCoordinator) Status(pairs []alphabet.Pair) (Status, error) {
	available, err := c.store.AvailableLetters()
	if err != nil {
		return Status{}, err
	}

	var generated, missing []string
	for _, p := range pairs {
		if _, ok := available[p.Letter]; ok {
			generated = append(generated, p.Letter)
		} else {
			missing = append(missing, p.Letter)
		}
	}
	sort.Strings(generated)
	sort.Strings(missing)

	st := Status{
		Total:            len(pairs),
		GeneratedCount:   len(generated),
		MissingCount:     len(missing),
		GeneratedLetters: generated,
		MissingLetters:   missing,
	}
	if st.Total > 0 {
		st.Completion = float64(st.GeneratedCount) / float64(st.Total) * 100
	}
	return st, nil
}

// Cleanup deletes all generated files from the store.
func (c *BatchCoordinator) Cleanup() (int, error) {
	n, err := c.store.RemoveAll()
	if err != nil {
		return n, err
	}
	c.log.Info("cleanup completed", "deleted", n)
	return n, nil
}
