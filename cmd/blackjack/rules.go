package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/server"
)

// RulesCmd prints the rules after the config file is applied
type RulesCmd struct {
	JSON bool `help:"Print as JSON"`
}

func (c *RulesCmd) Run(g *Globals) error {
	rules, err := g.Rules()
	if err != nil {
		return err
	}
	srv, err := server.LoadConfig(g.Config)
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	}
	printRules(os.Stdout, rules, srv)
	return nil
}

func printRules(w io.Writer, r config.Rules, srv server.Config) {
	fmt.Fprintf(w, "Table:        %s\n", r.Summary())
	fmt.Fprintf(w, "Decks:        %d (penetration %.0f%%)\n", r.Decks, r.Penetration*100)
	fmt.Fprintf(w, "Dealer:       %s\n", map[bool]string{true: "hits soft 17", false: "stands on soft 17"}[r.DealerHitsSoft17])
	fmt.Fprintf(w, "Blackjack:    pays %s (%gx the bet)\n", r.BlackjackPayout, r.BlackjackPayout.Float())
	fmt.Fprintf(w, "Splits:       up to %d per hand, double after split %s, resplit aces %s\n",
		r.MaxSplitHands, yesNo(r.DoubleAfterSplit), yesNo(r.ResplitAces))
	fmt.Fprintf(w, "Surrender:    %s\n", yesNo(r.LateSurrender))
	fmt.Fprintf(w, "Insurance:    %s\n", yesNo(r.Insurance))
	fmt.Fprintf(w, "Limits:       $%d-$%d, side bets $%d-$%d\n",
		r.Limits.MinBet, r.Limits.MaxBet, r.Limits.MinSideBet, r.Limits.MaxSideBet)
	fmt.Fprintf(w, "Balance:      $%d\n", r.StartingBalance)

	names := make([]string, 0, len(r.SideBetPayouts))
	for name := range r.SideBetPayouts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		table := r.SideBetPayouts[name]
		labels := make([]string, 0, len(table))
		for label := range table {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		fmt.Fprintf(w, "\n%s:\n", name)
		for _, label := range labels {
			fmt.Fprintf(w, "  %-22s %gx\n", label, table[label])
		}
	}

	fmt.Fprintf(w, "\nServer:       %s (idle timeout %s, max %d sessions)\n", srv.Addr(), srv.IdleTimeout, srv.MaxSessions)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
