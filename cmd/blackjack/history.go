package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/lox/blackjack/internal/history"
	"github.com/lox/blackjack/internal/table"
)

// HistoryCmd reads back rounds recorded by play, simulate or serve
type HistoryCmd struct {
	Dir         string `env:"BLACKJACK_HISTORY_DIR" type:"path" help:"History directory written by --history-dir"`
	DatabaseURL string `env:"DATABASE_URL" help:"Postgres history database"`
	Last        int    `default:"0" help:"Also print the last N rounds (directory only)"`
	Round       string `help:"Print one round by ID"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	logger, closeLog, err := g.Logger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	switch {
	case c.DatabaseURL != "":
		ctx, cancel := signalContext(logger)
		defer cancel()

		pg, err := history.OpenPostgres(ctx, c.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer func() { _ = pg.Close() }()

		if c.Round != "" {
			r, err := pg.Round(ctx, c.Round)
			if err != nil {
				return err
			}
			return printRound(os.Stdout, r)
		}
		totals, err := pg.Totals(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%-16s %8s %10s %10s %10s\n", "PLAYER", "HANDS", "WAGERED", "RETURNED", "NET")
		for _, t := range totals {
			fmt.Fprintf(os.Stdout, "%-16s %8d %10d %10d %+10d\n", t.Owner, t.Hands, t.Wagered, t.Returned, t.Net())
		}
		return nil

	case c.Dir != "":
		return c.printDir(os.Stdout)

	default:
		return errors.New("either --dir or --database-url is required")
	}
}

func (c *HistoryCmd) printDir(w io.Writer) error {
	defaults := history.FileConfig{}.WithDefaults()
	summary, err := history.ReadSummary(filepath.Join(c.Dir, defaults.SummaryFile))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Rounds:     %d (%s to %s)\n", summary.Rounds, summary.FirstID, summary.LastID)
	fmt.Fprintf(w, "Hands:      %d\n", summary.Hands)
	fmt.Fprintf(w, "Wagered:    %d\n", summary.Wagered)
	fmt.Fprintf(w, "Returned:   %d\n", summary.Returned)
	fmt.Fprintf(w, "House edge: %.3f%%\n", summary.HouseEdge()*100)
	players := make([]string, 0, len(summary.Net))
	for player := range summary.Net {
		players = append(players, player)
	}
	sort.Strings(players)
	for _, player := range players {
		fmt.Fprintf(w, "  %-14s %+d\n", player, summary.Net[player])
	}

	if c.Last <= 0 && c.Round == "" {
		return nil
	}
	rounds, err := history.ReadRounds(filepath.Join(c.Dir, defaults.Filename))
	if err != nil {
		return err
	}
	if c.Round != "" {
		for _, r := range rounds {
			if r.ID == c.Round {
				return printRound(w, r)
			}
		}
		return fmt.Errorf("round %s not found", c.Round)
	}
	if len(rounds) > c.Last {
		rounds = rounds[len(rounds)-c.Last:]
	}
	for _, r := range rounds {
		if err := printRound(w, r); err != nil {
			return err
		}
	}
	return nil
}

func printRound(w io.Writer, r table.RoundResult) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
