package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/table"
)

const (
	defaultRoundsFile  = "rounds.jsonl"
	defaultSummaryFile = "summary.json"
	defaultFlushEvery  = 50

	// After this many failed flushes in a row the sink stops buffering and
	// reports every further Record as failed.
	maxFlushFailures = 3
)

// ErrSinkDisabled is returned once a file sink has given up on its output
var ErrSinkDisabled = errors.New("history: sink disabled after repeated write failures")

// ErrSinkClosed is returned by Record after Close
var ErrSinkClosed = errors.New("history: sink closed")

// FileConfig configures a FileSink
type FileConfig struct {
	Dir         string
	Filename    string // JSON lines, appended; defaults to rounds.jsonl
	SummaryFile string // rewritten atomically on every flush; defaults to summary.json
	FlushEvery  int    // rounds buffered between writes
	Clock       quartz.Clock
	Logger      *log.Logger
}

// WithDefaults returns the config with every unset field filled in
func (c FileConfig) WithDefaults() FileConfig {
	if c.Filename == "" {
		c.Filename = defaultRoundsFile
	}
	if c.SummaryFile == "" {
		c.SummaryFile = defaultSummaryFile
	}
	if c.FlushEvery <= 0 {
		c.FlushEvery = defaultFlushEvery
	}
	if c.Clock == nil {
		c.Clock = quartz.NewReal()
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
	}
	return c
}

// Summary aggregates every round a FileSink has seen
type Summary struct {
	Rounds    int              `json:"rounds"`
	Hands     int              `json:"hands"`
	Wagered   int64            `json:"wagered"`
	Returned  int64            `json:"returned"`
	Outcomes  map[string]int   `json:"outcomes"`
	Net       map[string]int64 `json:"net"`
	FirstID   string           `json:"first_round_id,omitempty"`
	LastID    string           `json:"last_round_id,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// HouseEdge returns the share of wagered chips the house kept
func (s Summary) HouseEdge() float64 {
	if s.Wagered == 0 {
		return 0
	}
	return float64(s.Wagered-s.Returned) / float64(s.Wagered)
}

func (s *Summary) add(r table.RoundResult) {
	if s.Outcomes == nil {
		s.Outcomes = map[string]int{}
	}
	if s.Net == nil {
		s.Net = map[string]int64{}
	}
	if s.FirstID == "" {
		s.FirstID = r.ID
	}
	s.LastID = r.ID
	s.Rounds++
	s.Hands += len(r.Hands)
	s.Wagered += r.Wagered()
	s.Returned += r.Returned()
	for _, h := range r.Hands {
		s.Outcomes[h.Outcome.String()]++
	}
	for player, net := range r.Net {
		s.Net[player] += net
	}
}

// FileSink appends rounds as JSON lines and keeps a summary file next to
// them. Writes are buffered and happen every FlushEvery rounds, on Flush
// and on Close.
type FileSink struct {
	cfg         FileConfig
	logger      *log.Logger
	outPath     string
	summaryPath string

	mu       sync.Mutex
	flushMu  sync.Mutex
	buffer   []table.RoundResult
	summary  Summary
	failures int
	disabled bool
	closed   bool
}

// NewFileSink creates the output directory and picks up an existing
// summary so totals carry across restarts.
func NewFileSink(cfg FileConfig) (*FileSink, error) {
	if cfg.Dir == "" {
		return nil, errors.New("history: Dir is required")
	}
	cfg = cfg.WithDefaults()

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}

	s := &FileSink{
		cfg:         cfg,
		logger:      cfg.Logger.WithPrefix("history"),
		outPath:     filepath.Join(cfg.Dir, cfg.Filename),
		summaryPath: filepath.Join(cfg.Dir, cfg.SummaryFile),
		buffer:      make([]table.RoundResult, 0, cfg.FlushEvery),
	}

	summary, err := ReadSummary(s.summaryPath)
	switch {
	case err == nil:
		s.summary = summary
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("history: read summary: %w", err)
	}
	return s, nil
}

// Path returns the JSON-lines file the sink appends to
func (s *FileSink) Path() string { return s.outPath }

// Record implements table.Recorder
func (s *FileSink) Record(r table.RoundResult) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrSinkClosed
	case s.disabled:
		s.mu.Unlock()
		return ErrSinkDisabled
	}
	s.buffer = append(s.buffer, r)
	s.summary.add(r)
	full := len(s.buffer) >= s.cfg.FlushEvery
	s.mu.Unlock()

	// A failed flush keeps the round buffered, so the round itself is
	// recorded either way.
	if full {
		_ = s.Flush()
	}
	return nil
}

// Summary returns the running totals, including buffered rounds
func (s *FileSink) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSummary(s.summary)
}

// Flush writes buffered rounds and the summary to disk. On failure the
// rounds stay buffered for the next attempt.
func (s *FileSink) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	rounds := s.buffer
	s.buffer = make([]table.RoundResult, 0, s.cfg.FlushEvery)
	summary := cloneSummary(s.summary)
	s.mu.Unlock()

	if len(rounds) == 0 {
		return nil
	}
	summary.UpdatedAt = s.cfg.Clock.Now().UTC()

	err := s.write(rounds, summary)
	s.afterFlush(rounds, err)
	return err
}

func (s *FileSink) write(rounds []table.RoundResult, summary Summary) error {
	file, err := os.OpenFile(s.outPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("history: open %s: %w", s.outPath, err)
	}

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, r := range rounds {
		if err := enc.Encode(r); err != nil {
			file.Close()
			return fmt.Errorf("history: encode round %s: %w", r.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("history: write: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}

	if err := fileutil.WriteJSONAtomic(s.summaryPath, summary, 0o644); err != nil {
		return fmt.Errorf("history: summary: %w", err)
	}
	return nil
}

func (s *FileSink) afterFlush(rounds []table.RoundResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.failures = 0
		s.logger.Debug("Flushed rounds", "count", len(rounds), "path", s.outPath)
		return
	}

	s.failures++
	s.buffer = append(rounds, s.buffer...)
	if s.failures >= maxFlushFailures {
		s.disabled = true
		s.logger.Error("Disabling round history", "error", err, "dropped", len(s.buffer))
		s.buffer = nil
		return
	}
	s.logger.Warn("Round history flush failed", "error", err, "attempt", s.failures)
}

// Disabled reports whether the sink has given up writing
func (s *FileSink) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// Close flushes remaining rounds. Further Records fail.
func (s *FileSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	disabled := s.disabled
	s.mu.Unlock()

	if disabled {
		return nil
	}
	return s.Flush()
}

// ReadRounds loads every round from a JSON-lines history file
func ReadRounds(path string) ([]table.RoundResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rounds []table.RoundResult
	dec := json.NewDecoder(file)
	for dec.More() {
		var r table.RoundResult
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("history: decode round %d: %w", len(rounds)+1, err)
		}
		rounds = append(rounds, r)
	}
	return rounds, nil
}

// ReadSummary loads a summary file written by a FileSink
func ReadSummary(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, err
	}
	return s, nil
}

func cloneSummary(s Summary) Summary {
	c := s
	c.Outcomes = make(map[string]int, len(s.Outcomes))
	for k, v := range s.Outcomes {
		c.Outcomes[k] = v
	}
	c.Net = make(map[string]int64, len(s.Net))
	for k, v := range s.Net {
		c.Net[k] = v
	}
	return c
}
