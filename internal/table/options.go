package table

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/deck"
)

// Recorder receives every completed round when the next round starts. An
// error from Record leaves the table in Cleanup so the caller can retry.
type Recorder interface {
	Record(RoundResult) error
}

// Option configures a Table during creation.
type Option func(*tableConfig)

type tableConfig struct {
	logger       *log.Logger
	rng          *rand.Rand
	shoe         *deck.Shoe
	recorder     Recorder
	clock        quartz.Clock
	historyLimit int
	idFunc       func() string
}

// DefaultHistoryLimit is how many completed rounds a table keeps in memory
const DefaultHistoryLimit = 100

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *log.Logger) Option {
	return func(c *tableConfig) {
		c.logger = logger
	}
}

// WithRNG sets the random source used to build and shuffle the shoe
func WithRNG(rng *rand.Rand) Option {
	return func(c *tableConfig) {
		c.rng = rng
	}
}

// WithShoe uses a prepared shoe instead of building one from the rules.
// Tests pass deck.NewStackedShoe here to fix the deal.
func WithShoe(shoe *deck.Shoe) Option {
	return func(c *tableConfig) {
		c.shoe = shoe
	}
}

// WithRecorder hands every completed round to r
func WithRecorder(r Recorder) Option {
	return func(c *tableConfig) {
		c.recorder = r
	}
}

// WithClock sets the clock used to timestamp rounds
func WithClock(clock quartz.Clock) Option {
	return func(c *tableConfig) {
		c.clock = clock
	}
}

// WithHistoryLimit caps the completed rounds kept by History. Zero or less
// keeps nothing.
func WithHistoryLimit(n int) Option {
	return func(c *tableConfig) {
		c.historyLimit = n
	}
}

// WithRoundIDs replaces the round ID generator
func WithRoundIDs(next func() string) Option {
	return func(c *tableConfig) {
		c.idFunc = next
	}
}
