// Package history stores settled rounds. Every sink satisfies
// table.Recorder so a table can hand its results over at the end of each
// round.
package history

import (
	"errors"
	"slices"
	"sync"

	"github.com/lox/blackjack/internal/table"
)

// Sink is a round recorder that owns resources needing release
type Sink interface {
	table.Recorder
	Close() error
}

// Memory keeps recorded rounds in memory, optionally bounded
type Memory struct {
	mu     sync.Mutex
	limit  int
	rounds []table.RoundResult
}

// NewMemory returns an in-memory sink keeping at most limit rounds. A limit
// of zero keeps everything.
func NewMemory(limit int) *Memory {
	return &Memory{limit: limit}
}

// Record implements table.Recorder
func (m *Memory) Record(r table.RoundResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds = append(m.rounds, r)
	if m.limit > 0 && len(m.rounds) > m.limit {
		m.rounds = slices.Delete(m.rounds, 0, len(m.rounds)-m.limit)
	}
	return nil
}

// Rounds returns the recorded rounds, oldest first
func (m *Memory) Rounds() []table.RoundResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rounds)
}

// Len returns the number of rounds held
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rounds)
}

// Close implements Sink
func (m *Memory) Close() error { return nil }

// Fanout records each round into several sinks
type Fanout struct {
	sinks []table.Recorder
}

// Multi returns a recorder writing to every non-nil sink in order. Every
// sink sees the round even when an earlier one fails; the failures are
// joined.
func Multi(sinks ...table.Recorder) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Record implements table.Recorder
func (f *Fanout) Record(r table.RoundResult) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Record(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that has a Close method
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
