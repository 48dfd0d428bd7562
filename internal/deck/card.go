package deck

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// Suits lists the four suits in shoe build order
var Suits = [4]Suit{Spades, Hearts, Diamonds, Clubs}

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Letter returns the single-letter suit code used by ParseCard
func (s Suit) Letter() string {
	switch s {
	case Spades:
		return "s"
	case Hearts:
		return "h"
	case Diamonds:
		return "d"
	case Clubs:
		return "c"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// Ranks lists the thirteen ranks from Two to Ace
var Ranks = [13]Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Two:
		return "2"
	case Three:
		return "3"
	case Four:
		return "4"
	case Five:
		return "5"
	case Six:
		return "6"
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "10"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return "?"
	}
}

// Value returns the fixed blackjack value of the rank. Aces count 1 here;
// the soft value is handled by the hand evaluator.
func (r Rank) Value() int {
	switch {
	case r == Ace:
		return 1
	case r >= Ten:
		return 10
	default:
		return int(r)
	}
}

// IsFace returns true for J, Q and K
func (r Rank) IsFace() bool {
	return r >= Jack && r <= King
}

// Card is an immutable playing card. Two cards with the same rank and suit
// are the same card for scoring; ID tells apart copies from different decks
// in a multi-deck shoe.
type Card struct {
	Rank   Rank
	Suit   Suit
	FaceUp bool
	ID     int
}

// NewCard creates a new face-up card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank, FaceUp: true}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Code returns the compact parseable form of the card (e.g., "As", "Td")
func (c Card) Code() string {
	r := c.Rank.String()
	if c.Rank == Ten {
		r = "T"
	}
	return r + c.Suit.Letter()
}

// Same reports whether two cards share rank and suit
func (c Card) Same(other Card) bool {
	return c.Rank == other.Rank && c.Suit == other.Suit
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

// Value returns the blackjack value of the card with Aces counted as 1
func (c Card) Value() int {
	return c.Rank.Value()
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// IsTenValue returns true for 10, J, Q and K
func (c Card) IsTenValue() bool {
	return c.Rank >= Ten && c.Rank <= King
}

// WithFace returns a copy of the card with the given orientation
func (c Card) WithFace(up bool) Card {
	c.FaceUp = up
	return c
}

// HiddenCode is the wire form of a face-down card whose identity is withheld
const HiddenCode = "??"

type cardJSON struct {
	Code   string `json:"code"`
	FaceUp bool   `json:"face_up"`
}

// MarshalJSON encodes the card by its code. A zero card encodes as hidden.
func (c Card) MarshalJSON() ([]byte, error) {
	code := HiddenCode
	if c.Rank != 0 {
		code = c.Code()
	}
	return json.Marshal(cardJSON{Code: code, FaceUp: c.FaceUp})
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Card) UnmarshalJSON(b []byte) error {
	var v cardJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.Code == HiddenCode {
		*c = Card{FaceUp: v.FaceUp}
		return nil
	}
	parsed, err := ParseCard(v.Code)
	if err != nil {
		return err
	}
	parsed.FaceUp = v.FaceUp
	*c = parsed
	return nil
}
