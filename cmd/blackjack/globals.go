package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/history"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/table"
)

// Globals are the flags every command shares
type Globals struct {
	Config   string `short:"c" default:"blackjack.hcl" env:"BLACKJACK_CONFIG" type:"path" help:"Rules file (HCL); a missing file uses the default rules"`
	LogLevel string `default:"info" enum:"debug,info,warn,error" env:"BLACKJACK_LOG_LEVEL" help:"Log level (${enum})"`
	LogFile  string `env:"BLACKJACK_LOG_FILE" type:"path" help:"Append logs to this file instead of stderr"`
}

// Logger builds the command logger. fallback receives output when no log
// file is set. The returned func closes the log file.
func (g *Globals) Logger(fallback io.Writer) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	w, closer := fallback, func() {}
	if g.LogFile != "" {
		f, err := os.OpenFile(g.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closer = func() { _ = f.Close() }
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	return logger, closer, nil
}

// Rules loads the rules file
func (g *Globals) Rules() (config.Rules, error) {
	return config.Load(g.Config)
}

// HistoryFlags choose where completed rounds are recorded
type HistoryFlags struct {
	HistoryDir  string `env:"BLACKJACK_HISTORY_DIR" type:"path" help:"Append rounds as JSON lines to this directory"`
	DatabaseURL string `env:"DATABASE_URL" help:"Record rounds in Postgres"`
}

// Open returns the configured sinks fanned out behind one recorder, or nil
// when none is set.
func (h HistoryFlags) Open(ctx context.Context, logger *log.Logger) (*history.Fanout, error) {
	var sinks []table.Recorder
	if h.HistoryDir != "" {
		fs, err := history.NewFileSink(history.FileConfig{Dir: h.HistoryDir, Logger: logger})
		if err != nil {
			return nil, err
		}
		logger.Info("Recording rounds", "path", fs.Path())
		sinks = append(sinks, fs)
	}
	if h.DatabaseURL != "" {
		pg, err := history.OpenPostgres(ctx, h.DatabaseURL, logger)
		if err != nil {
			for _, s := range sinks {
				_ = s.(history.Sink).Close()
			}
			return nil, err
		}
		logger.Info("Recording rounds to Postgres")
		sinks = append(sinks, pg)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return history.Multi(sinks...), nil
}

// seeded returns an rng from seed, or from the clock when seed is nil
func seeded(seed *int64) (*rand.Rand, int64) {
	if seed != nil {
		return randutil.New(*seed), *seed
	}
	return randutil.NewFromTime()
}

// signalContext is cancelled on interrupt
func signalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received signal, shutting down gracefully", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
