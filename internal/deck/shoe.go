package deck

import (
	"errors"
	"fmt"
	"math"
	rand "math/rand/v2"
)

const (
	// CardsPerDeck is the size of a standard deck without jokers
	CardsPerDeck = 52
	MinDecks     = 1
	MaxDecks     = 8
)

var (
	// ErrShoeExhausted is returned when drawing from a shoe with no cards left.
	// The caller must reshuffle before drawing again.
	ErrShoeExhausted = errors.New("shoe exhausted")

	// ErrInvalidShoe is returned for unsupported deck counts or penetration
	ErrInvalidShoe = errors.New("invalid shoe configuration")
)

// Shoe holds one or more shuffled decks and deals them one card at a time.
// Cards before next have been dealt; cards from next onwards remain.
type Shoe struct {
	cards       []Card
	next        int
	decks       int
	penetration float64
	cut         int
	rng         *rand.Rand
	stacked     []Card // fixed order for stacked shoes, nil otherwise
}

// NewShoe builds a shoe of decks×52 cards and shuffles it immediately.
// The rng is required so that every shuffle is reproducible from its seed.
func NewShoe(decks int, penetration float64, rng *rand.Rand) (*Shoe, error) {
	if decks < MinDecks || decks > MaxDecks {
		return nil, fmt.Errorf("%w: deck count %d not in [%d,%d]", ErrInvalidShoe, decks, MinDecks, MaxDecks)
	}
	if !(penetration > 0 && penetration < 1) {
		return nil, fmt.Errorf("%w: penetration %v not in (0,1)", ErrInvalidShoe, penetration)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: rng is required", ErrInvalidShoe)
	}

	s := &Shoe{
		cards:       make([]Card, 0, decks*CardsPerDeck),
		decks:       decks,
		penetration: penetration,
		rng:         rng,
	}
	s.build()
	s.cut = cutPosition(len(s.cards), penetration)
	s.Shuffle()
	return s, nil
}

// NewStackedShoe returns a shoe that deals the given cards in order. It only
// reports a reshuffle as due once drained. Reshuffle restores the original
// order.
func NewStackedShoe(cards ...Card) *Shoe {
	stacked := make([]Card, len(cards))
	for i, c := range cards {
		c.ID = i
		stacked[i] = c
	}
	s := &Shoe{
		cards:   make([]Card, len(stacked)),
		decks:   (len(stacked) + CardsPerDeck - 1) / CardsPerDeck,
		stacked: stacked,
	}
	copy(s.cards, stacked)
	return s
}

func cutPosition(total int, penetration float64) int {
	// The epsilon guards against 52*0.25 landing a hair under 13.
	return int(math.Floor(float64(total)*(1-penetration) + 1e-9))
}

func (s *Shoe) build() {
	s.cards = s.cards[:0]
	id := 0
	for range s.decks {
		for _, suit := range Suits {
			for _, rank := range Ranks {
				s.cards = append(s.cards, Card{Rank: rank, Suit: suit, ID: id})
				id++
			}
		}
	}
}

// Shuffle performs a uniform Fisher-Yates permutation of all cards and
// resets the dealt counter.
func (s *Shoe) Shuffle() {
	s.next = 0
	if s.rng == nil {
		return
	}
	for i := len(s.cards) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
}

// Reshuffle replaces the shoe wholesale: every card returns and the shoe is
// shuffled again. Stacked shoes go back to their original order.
func (s *Shoe) Reshuffle() {
	if s.stacked != nil {
		copy(s.cards, s.stacked)
		s.next = 0
		return
	}
	s.build()
	s.Shuffle()
}

// Draw deals the next card with the given orientation
func (s *Shoe) Draw(faceUp bool) (Card, error) {
	if s.next >= len(s.cards) {
		return Card{}, ErrShoeExhausted
	}
	c := s.cards[s.next]
	c.FaceUp = faceUp
	s.next++
	return c, nil
}

// NeedsReshuffle reports whether the cut card has been reached
func (s *Shoe) NeedsReshuffle() bool {
	return s.next >= len(s.cards)-s.cut
}

// TotalCards returns the number of cards the shoe was built with
func (s *Shoe) TotalCards() int {
	return len(s.cards)
}

// CardsDealt returns how many cards have been drawn since the last shuffle
func (s *Shoe) CardsDealt() int {
	return s.next
}

// Remaining returns the number of undealt cards
func (s *Shoe) Remaining() int {
	return len(s.cards) - s.next
}

// CutPosition returns the number of cards left behind the cut card
func (s *Shoe) CutPosition() int {
	return s.cut
}

// Decks returns the number of decks in the shoe
func (s *Shoe) Decks() int {
	return s.decks
}

// Penetration returns the configured penetration fraction
func (s *Shoe) Penetration() float64 {
	return s.penetration
}

// Peek returns up to n upcoming cards without dealing them. Test hook.
func (s *Shoe) Peek(n int) []Card {
	n = min(n, s.Remaining())
	out := make([]Card, n)
	copy(out, s.cards[s.next:s.next+n])
	return out
}

// Burn discards n cards from the top of the shoe. Test hook.
func (s *Shoe) Burn(n int) error {
	if n < 0 {
		return fmt.Errorf("burn count must not be negative: %d", n)
	}
	if n > s.Remaining() {
		return ErrShoeExhausted
	}
	s.next += n
	return nil
}

// SetPosition moves the dealt counter to an absolute position. Test hook.
func (s *Shoe) SetPosition(pos int) error {
	if pos < 0 || pos > len(s.cards) {
		return fmt.Errorf("position %d out of range [0,%d]", pos, len(s.cards))
	}
	s.next = pos
	return nil
}
