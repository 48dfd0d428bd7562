package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/sidebet"
)

// File is the HCL shape of a rules file. Every attribute is optional and
// falls back to Default(). Blocks belonging to other components, such as
// server, are left in Remain.
type File struct {
	Table      *TableBlock      `hcl:"table,block"`
	Limits     *LimitsBlock     `hcl:"limits,block"`
	SideBets   []SideBetBlock   `hcl:"side_bet,block"`
	OverUnder  *ValueTableBlock `hcl:"over_under,block"`
	LuckyLucky *ValueTableBlock `hcl:"lucky_lucky,block"`
	Remain     hcl.Body         `hcl:",remain"`
}

// TableBlock holds the core table rules
type TableBlock struct {
	Decks            *int     `hcl:"decks,optional"`
	Penetration      *float64 `hcl:"penetration,optional"`
	DealerHitsSoft17 *bool    `hcl:"dealer_hits_soft_17,optional"`
	BlackjackPayout  *string  `hcl:"blackjack_payout,optional"`
	DoubleAfterSplit *bool    `hcl:"double_after_split,optional"`
	ResplitAces      *bool    `hcl:"resplit_aces,optional"`
	LateSurrender    *bool    `hcl:"late_surrender,optional"`
	MaxSplitHands    *int     `hcl:"max_split_hands,optional"`
	Insurance        *bool    `hcl:"insurance,optional"`
	StartingBalance  *int64   `hcl:"starting_balance,optional"`
}

// LimitsBlock holds the betting limits
type LimitsBlock struct {
	MinBet     *int64 `hcl:"min_bet,optional"`
	MaxBet     *int64 `hcl:"max_bet,optional"`
	MinSideBet *int64 `hcl:"min_side_bet,optional"`
	MaxSideBet *int64 `hcl:"max_side_bet,optional"`
}

// SideBetBlock overrides entries of one side-bet payout table. The label
// is the game's wire name, or over_under_13 for the Over/Under game.
type SideBetBlock struct {
	Name    string             `hcl:"name,label"`
	Payouts map[string]float64 `hcl:"payouts"`
}

// ValueTableBlock sets the Ace value a side bet sums with
type ValueTableBlock struct {
	AceValue int `hcl:"ace_value"`
}

// Load reads rules from an HCL file, applying them over Default() and
// validating the result. A missing file yields the defaults.
func Load(filename string) (Rules, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return Rules{}, fmt.Errorf("%w: failed to parse HCL file: %s", ErrConfiguration, diags.Error())
	}

	var f File
	diags = gohcl.DecodeBody(file.Body, nil, &f)
	if diags.HasErrors() {
		return Rules{}, fmt.Errorf("%w: failed to decode HCL: %s", ErrConfiguration, diags.Error())
	}

	rules, err := f.Apply(Default())
	if err != nil {
		return Rules{}, err
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("%s: %w", filename, err)
	}
	return rules, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Apply overlays the file onto base
func (f File) Apply(base Rules) (Rules, error) {
	r := base
	if t := f.Table; t != nil {
		set(&r.Decks, t.Decks)
		set(&r.Penetration, t.Penetration)
		set(&r.DealerHitsSoft17, t.DealerHitsSoft17)
		set(&r.DoubleAfterSplit, t.DoubleAfterSplit)
		set(&r.ResplitAces, t.ResplitAces)
		set(&r.LateSurrender, t.LateSurrender)
		set(&r.MaxSplitHands, t.MaxSplitHands)
		set(&r.Insurance, t.Insurance)
		set(&r.StartingBalance, t.StartingBalance)
		if t.BlackjackPayout != nil {
			ratio, err := ledger.ParseRatio(*t.BlackjackPayout)
			if err != nil {
				return Rules{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
			}
			r.BlackjackPayout = ratio
		}
	}

	if l := f.Limits; l != nil {
		set(&r.Limits.MinBet, l.MinBet)
		set(&r.Limits.MaxBet, l.MaxBet)
		set(&r.Limits.MinSideBet, l.MinSideBet)
		set(&r.Limits.MaxSideBet, l.MaxSideBet)
	}

	if len(f.SideBets) > 0 {
		overrides := sidebet.Tables{}
		for _, sb := range f.SideBets {
			name, err := tableName(sb.Name)
			if err != nil {
				return Rules{}, err
			}
			overrides[name] = sb.Payouts
		}
		r.SideBetPayouts = r.SideBetPayouts.Merge(overrides)
	}

	if f.OverUnder != nil {
		r.OverUnderValues = sidebet.Values{Ace: f.OverUnder.AceValue}
	}
	if f.LuckyLucky != nil {
		r.LuckyLuckyValues = sidebet.Values{Ace: f.LuckyLucky.AceValue}
	}
	return r, nil
}

func tableName(name string) (string, error) {
	if name == sidebet.OverUnderTable {
		return name, nil
	}
	kind, err := sidebet.ParseKind(name)
	if err != nil {
		return "", fmt.Errorf("%w: side_bet %q: %v", ErrConfiguration, name, err)
	}
	return kind.Table(), nil
}
