// Package sidebet evaluates the auxiliary wagers offered next to the primary
// blackjack bet. Every game looks only at the player's first two cards and
// the dealer's up-card, except insurance, which needs the dealer's hole card.
package sidebet

import (
	"fmt"
	"strings"
)

// Kind identifies a side-bet wager
type Kind int

const (
	PerfectPairs Kind = iota
	TwentyOnePlusThree
	Insurance
	LuckyLucky
	RoyalMatch
	// Over13, Under13 and Exactly13 are the three picks of the Over/Under 13
	// game. They share one classifier and one payout table.
	Over13
	Under13
	Exactly13
)

// Kinds lists every wager kind
var Kinds = []Kind{PerfectPairs, TwentyOnePlusThree, Insurance, LuckyLucky, RoyalMatch, Over13, Under13, Exactly13}

// String returns the wire name of the wager kind
func (k Kind) String() string {
	switch k {
	case PerfectPairs:
		return "perfect_pairs"
	case TwentyOnePlusThree:
		return "21+3"
	case Insurance:
		return "insurance"
	case LuckyLucky:
		return "lucky_lucky"
	case RoyalMatch:
		return "royal_match"
	case Over13:
		return "over_13"
	case Under13:
		return "under_13"
	case Exactly13:
		return "exactly_13"
	default:
		return "unknown"
	}
}

// Table returns the name of the payout table the wager is paid from
func (k Kind) Table() string {
	switch k {
	case Over13, Under13, Exactly13:
		return OverUnderTable
	default:
		return k.String()
	}
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts a wire name into a Kind. Dashes and underscores are
// interchangeable.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range Kinds {
		if k.String() == norm {
			return k, nil
		}
	}
	switch norm {
	case "21plus3", "twenty_one_plus_three":
		return TwentyOnePlusThree, nil
	}
	return 0, fmt.Errorf("unknown side bet %q", s)
}

// Winning combination labels
const (
	LabelPerfectPair = "perfect-pair"
	LabelColoredPair = "colored-pair"
	LabelMixedPair   = "mixed-pair"

	LabelSuitedTrips   = "suited-trips"
	LabelStraightFlush = "straight-flush"
	LabelThreeOfAKind  = "three-of-a-kind"
	LabelStraight      = "straight"
	LabelFlush         = "flush"

	LabelInsurance = "insurance"

	Label777Suited   = "21-777-suited"
	Label777Unsuited = "21-777-unsuited"
	Label21Suited    = "21-suited"
	Label21Unsuited  = "21-unsuited"
	Label20          = "20"
	Label19          = "19"

	LabelRoyalMatch      = "royal-match"
	LabelSuitedBlackjack = "suited-blackjack"
	LabelSuitedPair      = "suited-pair"

	LabelOver13    = "over-13"
	LabelUnder13   = "under-13"
	LabelExactly13 = "exactly-13"
)

// OverUnderTable is the payout table shared by the Over/Under 13 picks
const OverUnderTable = "over_under_13"

// pickLabel returns the classification an Over/Under pick needs to win
func pickLabel(k Kind) string {
	switch k {
	case Over13:
		return LabelOver13
	case Under13:
		return LabelUnder13
	case Exactly13:
		return LabelExactly13
	default:
		return ""
	}
}
