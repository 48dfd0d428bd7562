package strategy

import (
	"fmt"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/hand"
	"github.com/lox/blackjack/internal/table"
)

// Chart cells, one per dealer up-card from 2 through Ace:
//
//	H hit, S stand, P split
//	D double, otherwise hit; d double, otherwise stand
//	R surrender, otherwise hit; r surrender, otherwise stand
//	p split when doubling after a split is allowed, otherwise hit
type chart map[int]string

// Multi-deck charts for a dealer standing on soft 17
var (
	hardS17 = chart{
		9:  "HDDDDHHHHH",
		10: "DDDDDDDDHH",
		11: "DDDDDDDDDH",
		12: "HHSSSHHHHH",
		13: "SSSSSHHHHH",
		14: "SSSSSHHHHH",
		15: "SSSSSHHHRH",
		16: "SSSSSHHRRR",
		17: "SSSSSSSSSS",
	}
	softS17 = chart{
		13: "HHHDDHHHHH",
		14: "HHHDDHHHHH",
		15: "HHDDDHHHHH",
		16: "HHDDDHHHHH",
		17: "HDDDDHHHHH",
		18: "SddddSSHHH",
		19: "SSSSSSSSSS",
		20: "SSSSSSSSSS",
	}
	// Keyed by the value of one card of the pair; Ace is 1
	pairCharts = chart{
		1:  "PPPPPPPPPP",
		2:  "ppPPPPHHHH",
		3:  "ppPPPPHHHH",
		4:  "HHHppHHHHH",
		5:  "DDDDDDDDHH",
		6:  "pPPPPHHHHH",
		7:  "PPPPPPHHHH",
		8:  "PPPPPPPPPP",
		9:  "PPPPPSPPSS",
		10: "SSSSSSSSSS",
	}
)

// Cells that change when the dealer hits soft 17
var (
	hardH17 = chart{
		11: "DDDDDDDDDD",
		15: "SSSSSHHHRR",
		17: "SSSSSSSSSr",
	}
	softH17 = chart{
		18: "dddddSSHHH",
		19: "SSSSdSSSSS",
	}
)

func merge(base, overrides chart) chart {
	out := make(chart, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Basic plays multi-deck basic strategy for the table's rules
type Basic struct {
	das   bool
	hard  chart
	soft  chart
	pairs chart
}

// NewBasic selects the charts matching the rules
func NewBasic(rules config.Rules) *Basic {
	b := &Basic{das: rules.DoubleAfterSplit, hard: hardS17, soft: softS17, pairs: pairCharts}
	if rules.DealerHitsSoft17 {
		b.hard = merge(hardS17, hardH17)
		b.soft = merge(softS17, softH17)
	}
	return b
}

// column maps a dealer up-card to its chart column
func column(up deck.Card) int {
	switch {
	case up.IsAce():
		return 9
	case up.IsTenValue():
		return 8
	default:
		return int(up.Rank) - 2
	}
}

func (b *Basic) cell(s Situation) (byte, string) {
	col := column(s.DealerUp)
	sum := hand.Evaluate(s.Cards, s.Split)

	if sum.Pair && s.can(table.ActionSplit) {
		v := s.Cards[0].Value()
		switch c := b.pairs[v][col]; c {
		case 'P':
			return c, fmt.Sprintf("pair of %s vs %s", s.Cards[0].Rank, s.DealerUp.Rank)
		case 'p':
			if b.das {
				return 'P', fmt.Sprintf("pair of %s vs %s", s.Cards[0].Rank, s.DealerUp.Rank)
			}
		}
	}

	if sum.Soft {
		if row, ok := b.soft[sum.Total]; ok {
			return row[col], fmt.Sprintf("soft %d vs %s", sum.Total, s.DealerUp.Rank)
		}
		if sum.Total > 20 {
			return 'S', fmt.Sprintf("soft %d", sum.Total)
		}
		return 'H', fmt.Sprintf("soft %d", sum.Total)
	}

	switch row, ok := b.hard[sum.Total]; {
	case ok:
		return row[col], fmt.Sprintf("hard %d vs %s", sum.Total, s.DealerUp.Rank)
	case sum.Total < 9:
		return 'H', fmt.Sprintf("hard %d", sum.Total)
	default:
		return 'S', fmt.Sprintf("hard %d", sum.Total)
	}
}

// Decide implements Player
func (b *Basic) Decide(s Situation) Decision {
	if len(s.Cards) == 0 {
		return Decision{Action: table.ActionStand, Reasoning: "no cards"}
	}
	code, why := b.cell(s)

	var want, fallback table.Action
	switch code {
	case 'P':
		want, fallback = table.ActionSplit, table.ActionHit
	case 'D':
		want, fallback = table.ActionDouble, table.ActionHit
	case 'd':
		want, fallback = table.ActionDouble, table.ActionStand
	case 'R':
		want, fallback = table.ActionSurrender, table.ActionHit
	case 'r':
		want, fallback = table.ActionSurrender, table.ActionStand
	case 'H':
		want, fallback = table.ActionHit, table.ActionStand
	default:
		want, fallback = table.ActionStand, table.ActionStand
	}

	switch {
	case s.can(want):
		return Decision{Action: want, Reasoning: "basic strategy: " + why}
	case s.can(fallback):
		return Decision{Action: fallback, Reasoning: "basic strategy fallback: " + why}
	default:
		return Decision{Action: table.ActionStand, Reasoning: "basic strategy: " + why}
	}
}
