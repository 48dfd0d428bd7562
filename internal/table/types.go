package table

import (
	"fmt"
	"slices"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/hand"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/sidebet"
)

// Phase is the stage a round is in
type Phase int

const (
	Betting Phase = iota
	Dealing
	PlayerTurn
	DealerTurn
	Settlement
	Cleanup
)

func (p Phase) String() string {
	switch p {
	case Betting:
		return "betting"
	case Dealing:
		return "dealing"
	case PlayerTurn:
		return "player_turn"
	case DealerTurn:
		return "dealer_turn"
	case Settlement:
		return "settlement"
	case Cleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Phase) UnmarshalText(b []byte) error {
	for c := Betting; c <= Cleanup; c++ {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// HandID identifies a player hand within a round. IDs start at 1.
type HandID int

// HandStatus is where a player hand is in its turn
type HandStatus int

const (
	Active HandStatus = iota
	Standing
	Busted
	Natural
	Surrendered
)

func (s HandStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Standing:
		return "standing"
	case Busted:
		return "busted"
	case Natural:
		return "blackjack"
	case Surrendered:
		return "surrendered"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s HandStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *HandStatus) UnmarshalText(b []byte) error {
	for c := Active; c <= Surrendered; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown hand status %q", b)
}

// Action is a player decision on a hand
type Action string

const (
	ActionHit       Action = "hit"
	ActionStand     Action = "stand"
	ActionDouble    Action = "double"
	ActionSplit     Action = "split"
	ActionSurrender Action = "surrender"
	ActionInsurance Action = "insurance"
)

// Actions lists every player action in display order
var Actions = []Action{ActionHit, ActionStand, ActionDouble, ActionSplit, ActionSurrender, ActionInsurance}

// Hand is one player hand and the primary bet riding on it
type Hand struct {
	ID        HandID          `json:"id"`
	Owner     string          `json:"owner"`
	Cards     []deck.Card     `json:"cards"`
	Bet       ledger.BetID    `json:"bet"`
	Amount    int64           `json:"amount"`
	Doubled   bool            `json:"doubled"`
	Split     bool            `json:"split"`
	SplitFrom HandID          `json:"split_from,omitempty"`
	SplitAces bool            `json:"split_aces,omitempty"`
	Lineage   HandID          `json:"lineage"`
	Status    HandStatus      `json:"status"`
	Insurance ledger.BetID    `json:"insurance,omitempty"`
	SideBets  []ledger.BetID  `json:"side_bets,omitempty"`
	Initial   []deck.Card     `json:"-"`
	games     map[string]bool // side-bet payout tables already wagered on
}

// Summary evaluates the hand's cards
func (h *Hand) Summary() hand.Summary {
	return hand.Evaluate(h.Cards, h.Split)
}

func (h *Hand) clone() Hand {
	c := *h
	c.Cards = slices.Clone(h.Cards)
	c.SideBets = slices.Clone(h.SideBets)
	c.Initial = slices.Clone(h.Initial)
	c.games = nil
	return c
}

func (h *Hand) hasGame(kind sidebet.Kind) bool {
	return h.games[kind.Table()]
}

// DealerHand holds the dealer's cards. The second card is the hole card and
// stays face down until revealed.
type DealerHand struct {
	Cards      []deck.Card `json:"cards"`
	HoleHidden bool        `json:"hole_hidden"`
}

// Up returns the dealer's exposed card
func (d *DealerHand) Up() deck.Card {
	if len(d.Cards) == 0 {
		return deck.Card{}
	}
	return d.Cards[0]
}

// Visible returns the cards a player can see. The hole card is replaced
// with a zero card while hidden.
func (d *DealerHand) Visible() []deck.Card {
	out := slices.Clone(d.Cards)
	if d.HoleHidden && len(out) > 1 {
		out[1] = deck.Card{}
	}
	return out
}

func (d *DealerHand) reveal() {
	d.HoleHidden = false
	for i := range d.Cards {
		d.Cards[i].FaceUp = true
	}
}

// Blackjack reports whether the dealer holds a natural, hidden or not
func (d *DealerHand) Blackjack() bool {
	return hand.IsBlackjack(d.Cards, false)
}
