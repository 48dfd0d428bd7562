package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lox/blackjack/internal/sidebet"
	"github.com/lox/blackjack/internal/simulator"
)

// SimulateCmd plays a built-in strategy over many rounds
type SimulateCmd struct {
	Rounds   int           `default:"10000" help:"Rounds per table"`
	Tables   int           `default:"8" help:"Independent tables, each with its own shoe"`
	Workers  int           `help:"Tables played at once (defaults to the CPU count)"`
	Hands    int           `default:"1" help:"Hands played each round"`
	Bet      int64         `help:"Bet per hand (defaults to the table minimum)"`
	Player   string        `default:"basic" enum:"basic,dealer,never-bust,random" help:"Strategy (${enum})"`
	SideBet  []string      `name:"side-bet" help:"Side bet on every hand as kind:amount, e.g. perfect_pairs:5"`
	Seed     *int64        `help:"Deterministic seed (optional)"`
	Timeout  time.Duration `help:"Stop after this long (optional)"`
	Report   string        `type:"path" help:"Write a JSON report to this file"`

	HistoryFlags `embed:""`
}

func (c *SimulateCmd) Run(g *Globals) error {
	logger, closeLog, err := g.Logger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	rules, err := g.Rules()
	if err != nil {
		return err
	}
	sideBets, err := parseSideBets(c.SideBet)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	_, seed := seeded(c.Seed)
	cfg := simulator.Config{
		Rules:    rules,
		Rounds:   c.Rounds,
		Tables:   c.Tables,
		Workers:  c.Workers,
		Hands:    c.Hands,
		Bet:      c.Bet,
		SideBets: sideBets,
		Player:   c.Player,
		Seed:     seed,
		Timeout:  c.Timeout,
		Logger:   logger,
		Report:   c.Report,
	}

	sinks, err := c.Open(ctx, logger)
	if err != nil {
		return err
	}
	if sinks != nil {
		defer func() { _ = sinks.Close() }()
		cfg.Recorder = sinks
	}

	logger.Info("Starting simulation",
		"rules", rules.Summary(),
		"player", c.Player,
		"tables", c.Tables,
		"rounds", c.Rounds,
		"seed", seed)

	stats, err := simulator.New(cfg).Run(ctx)
	if err != nil {
		return err
	}
	simulator.PrintSummary(os.Stdout, stats, c.Player)
	return nil
}

func parseSideBets(specs []string) ([]simulator.SideBet, error) {
	var out []simulator.SideBet
	for _, spec := range specs {
		name, amount, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("side bet %q: want kind:amount", spec)
		}
		kind, err := sidebet.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if kind == sidebet.Insurance {
			return nil, fmt.Errorf("side bet %q: insurance is offered after the deal", spec)
		}
		n, err := strconv.ParseInt(amount, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("side bet %q: invalid amount", spec)
		}
		out = append(out, simulator.SideBet{Kind: kind, Amount: n})
	}
	return out, nil
}
