package main

import (
	"os"
	"time"

	"github.com/lox/blackjack/internal/server"
)

// ServeCmd runs the WebSocket server. Flags override the server block of
// the rules file.
type ServeCmd struct {
	Address     string        `help:"Listen address (overrides the config file)"`
	Port        int           `help:"Listen port (overrides the config file)"`
	IdleTimeout time.Duration `help:"Close sessions idle this long (overrides the config file)"`
	MaxSessions int           `help:"Maximum open sessions (overrides the config file)"`

	HistoryFlags `embed:""`
}

func (c *ServeCmd) Run(g *Globals) error {
	logger, closeLog, err := g.Logger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	rules, err := g.Rules()
	if err != nil {
		return err
	}
	cfg, err := server.LoadConfig(g.Config)
	if err != nil {
		return err
	}
	if c.Address != "" {
		cfg.Address = c.Address
	}
	if c.Port != 0 {
		cfg.Port = c.Port
	}
	if c.IdleTimeout != 0 {
		cfg.IdleTimeout = c.IdleTimeout
	}
	if c.MaxSessions != 0 {
		cfg.MaxSessions = c.MaxSessions
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	opts := []server.Option{server.WithLogger(logger)}
	sinks, err := c.Open(ctx, logger)
	if err != nil {
		return err
	}
	if sinks != nil {
		defer func() { _ = sinks.Close() }()
		opts = append(opts, server.WithRecorder(sinks))
	}

	s, err := server.NewServer(cfg, rules, opts...)
	if err != nil {
		return err
	}

	logger.Info("Starting blackjack server",
		"address", cfg.Addr(),
		"rules", rules.Summary(),
		"idle_timeout", cfg.IdleTimeout,
		"max_sessions", cfg.MaxSessions)
	return s.Start(ctx)
}
