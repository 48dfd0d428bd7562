package main

import (
	"io"
	"time"

	"github.com/lox/blackjack/internal/table"
	"github.com/lox/blackjack/internal/tui"
)

// PlayCmd plays one seat at the terminal
type PlayCmd struct {
	Name        string        `default:"you" help:"Player name"`
	Balance     int64         `help:"Opening balance (defaults to the table's starting balance)"`
	Seed        *int64        `help:"Deterministic shuffle seed (optional)"`
	DealerDelay time.Duration `default:"600ms" help:"Pause between dealer cards"`
	NoColor     bool          `env:"NO_COLOR" help:"Disable colors"`

	HistoryFlags `embed:""`
}

func (c *PlayCmd) Run(g *Globals) error {
	// The terminal belongs to the TUI, so logs only go to --log-file
	logger, closeLog, err := g.Logger(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	rules, err := g.Rules()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	rng, seed := seeded(c.Seed)
	opts := []table.Option{table.WithRNG(rng), table.WithLogger(logger)}

	sinks, err := c.Open(ctx, logger)
	if err != nil {
		return err
	}
	if sinks != nil {
		defer func() { _ = sinks.Close() }()
		opts = append(opts, table.WithRecorder(sinks))
	}

	t, err := table.New(rules, opts...)
	if err != nil {
		return err
	}
	logger.Info("Starting table", "rules", rules.Summary(), "seed", seed)

	if c.NoColor {
		tui.DisableColor()
	}
	m, err := tui.New(t, tui.Config{
		Player:      c.Name,
		Balance:     c.Balance,
		DealerDelay: c.DealerDelay,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	return tui.Run(ctx, m)
}
