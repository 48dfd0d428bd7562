package sidebet

import (
	"maps"
	"math"
)

// PayoutTable maps a winning label to its total-return multiplier. A
// multiplier of 26 returns the stake plus 25 to 1.
type PayoutTable map[string]float64

// Tables holds one payout table per game, keyed by Kind.Table()
type Tables map[string]PayoutTable

// FallbackMultiplier applies when neither the configured nor the default
// table knows a label. It returns the stake.
const FallbackMultiplier = 1.0

// DefaultTables returns the standard payout tables
func DefaultTables() Tables {
	return Tables{
		PerfectPairs.Table(): {
			LabelPerfectPair: 26,
			LabelColoredPair: 13,
			LabelMixedPair:   7,
		},
		TwentyOnePlusThree.Table(): {
			LabelSuitedTrips:   101,
			LabelStraightFlush: 41,
			LabelThreeOfAKind:  31,
			LabelStraight:      11,
			LabelFlush:         6,
		},
		Insurance.Table(): {
			LabelInsurance: 3,
		},
		LuckyLucky.Table(): {
			Label777Suited:   201,
			Label777Unsuited: 51,
			Label21Suited:    11,
			Label21Unsuited:  4,
			Label20:          3,
			Label19:          3,
		},
		RoyalMatch.Table(): {
			LabelRoyalMatch:      26,
			LabelSuitedBlackjack: 11,
			LabelSuitedPair:      6,
		},
		OverUnderTable: {
			LabelOver13:    2,
			LabelUnder13:   2,
			LabelExactly13: 11,
		},
	}
}

// Merge overlays the entries of other onto a copy of t
func (t Tables) Merge(other Tables) Tables {
	out := make(Tables, len(t))
	for name, table := range t {
		out[name] = maps.Clone(table)
	}
	for name, table := range other {
		if out[name] == nil {
			out[name] = PayoutTable{}
		}
		maps.Copy(out[name], table)
	}
	return out
}

// Multiplier looks up a label in the named table, falling back first to the
// default tables and then to FallbackMultiplier.
func (t Tables) Multiplier(table, label string) float64 {
	if m, ok := t[table][label]; ok {
		return m
	}
	if m, ok := DefaultTables()[table][label]; ok {
		return m
	}
	return FallbackMultiplier
}

// Payout returns the chips returned for a wager: amount×multiplier rounded
// down to the chip, or zero for a losing wager.
func (r Result) Payout(amount int64) int64 {
	if !r.Won {
		return 0
	}
	return int64(math.Floor(float64(amount) * r.Multiplier))
}
