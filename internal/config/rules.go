// Package config holds the table rules a blackjack engine is created with
// and loads them from HCL files.
package config

import (
	"errors"
	"fmt"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/sidebet"
)

// ErrConfiguration is wrapped by every rule validation failure
var ErrConfiguration = errors.New("configuration error")

// Penetration bounds
const (
	MinPenetration = 0.5
	MaxPenetration = 0.9
	MaxSplitHands  = 4
)

// Rules is the complete rule set of a table
type Rules struct {
	Decks            int           `json:"decks"`
	Penetration      float64       `json:"penetration"`
	DealerHitsSoft17 bool          `json:"dealer_hits_soft_17"`
	BlackjackPayout  ledger.Ratio  `json:"blackjack_payout"`
	DoubleAfterSplit bool          `json:"double_after_split"`
	ResplitAces      bool          `json:"resplit_aces"`
	LateSurrender    bool          `json:"late_surrender"`
	MaxSplitHands    int           `json:"max_split_hands"`
	Insurance        bool          `json:"insurance"`
	Limits           ledger.Limits `json:"limits"`
	StartingBalance  int64         `json:"starting_balance"`

	SideBetPayouts   sidebet.Tables `json:"side_bet_payouts"`
	OverUnderValues  sidebet.Values `json:"over_under_values"`
	LuckyLuckyValues sidebet.Values `json:"lucky_lucky_values"`
}

// Default returns a six-deck table where the dealer stands on soft 17 and
// blackjack pays 3:2
func Default() Rules {
	return Rules{
		Decks:            6,
		Penetration:      0.75,
		DealerHitsSoft17: false,
		BlackjackPayout:  ledger.ThreeToTwo,
		DoubleAfterSplit: true,
		ResplitAces:      false,
		LateSurrender:    true,
		MaxSplitHands:    MaxSplitHands,
		Insurance:        true,
		Limits: ledger.Limits{
			MinBet:     5,
			MaxBet:     500,
			MinSideBet: 1,
			MaxSideBet: 100,
		},
		StartingBalance:  1000,
		SideBetPayouts:   sidebet.DefaultTables(),
		OverUnderValues:  sidebet.OverUnderValues,
		LuckyLuckyValues: sidebet.LuckyLuckyValues,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Validate checks every rule is inside its supported range
func (r Rules) Validate() error {
	if r.Decks < deck.MinDecks || r.Decks > deck.MaxDecks {
		return invalid("unsupported deck count %d (want %d-%d)", r.Decks, deck.MinDecks, deck.MaxDecks)
	}
	if r.Penetration < MinPenetration || r.Penetration > MaxPenetration {
		return invalid("penetration %.2f outside %.1f-%.1f", r.Penetration, MinPenetration, MaxPenetration)
	}
	if r.BlackjackPayout != ledger.ThreeToTwo && r.BlackjackPayout != ledger.SixToFive {
		return invalid("unsupported blackjack payout %s", r.BlackjackPayout)
	}
	if r.MaxSplitHands < 1 || r.MaxSplitHands > MaxSplitHands {
		return invalid("max split hands %d outside 1-%d", r.MaxSplitHands, MaxSplitHands)
	}

	l := r.Limits
	if l.MinBet <= 0 || l.MaxBet < l.MinBet {
		return invalid("bet limits %d-%d", l.MinBet, l.MaxBet)
	}
	if l.MinSideBet <= 0 || l.MaxSideBet < l.MinSideBet {
		return invalid("side bet limits %d-%d", l.MinSideBet, l.MaxSideBet)
	}
	if r.StartingBalance < 0 {
		return invalid("negative starting balance %d", r.StartingBalance)
	}

	for name, v := range map[string]sidebet.Values{"over_under": r.OverUnderValues, "lucky_lucky": r.LuckyLuckyValues} {
		if v.Ace != 1 && v.Ace != 11 {
			return invalid("%s ace value must be 1 or 11, got %d", name, v.Ace)
		}
	}
	for table, payouts := range r.SideBetPayouts {
		for label, m := range payouts {
			if m <= 0 {
				return invalid("side bet %s pays %v for %q", table, m, label)
			}
		}
	}
	return nil
}

// Evaluator returns a side-bet evaluator using these rules' tables
func (r Rules) Evaluator() *sidebet.Evaluator {
	e := sidebet.NewEvaluator()
	if r.SideBetPayouts != nil {
		e.Payouts = r.SideBetPayouts
	}
	if r.OverUnderValues.Ace != 0 {
		e.OverUnderValues = r.OverUnderValues
	}
	if r.LuckyLuckyValues.Ace != 0 {
		e.LuckyLuckyValues = r.LuckyLuckyValues
	}
	return e
}

// Summary is a short human readable description, e.g. "6D S17 3:2 DAS LS"
func (r Rules) Summary() string {
	s := fmt.Sprintf("%dD ", r.Decks)
	if r.DealerHitsSoft17 {
		s += "H17"
	} else {
		s += "S17"
	}
	s += " " + r.BlackjackPayout.String()
	if r.DoubleAfterSplit {
		s += " DAS"
	}
	if r.ResplitAces {
		s += " RSA"
	}
	if r.LateSurrender {
		s += " LS"
	}
	return s
}
