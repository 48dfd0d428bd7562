package table

import (
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/hand"
	"github.com/lox/blackjack/internal/ledger"
)

// HandView is a read-only projection of a player hand
type HandView struct {
	Hand
	Summary hand.Summary `json:"summary"`
	Legal   []Action     `json:"legal"`
}

// DealerView is the dealer's hand as a player sees it
type DealerView struct {
	Cards      []deck.Card `json:"cards"`
	HoleHidden bool        `json:"hole_hidden"`
	Total      int         `json:"total"`
	Soft       bool        `json:"soft"`
}

// ShoeView reports shoe bookkeeping
type ShoeView struct {
	Decks        int     `json:"decks"`
	Penetration  float64 `json:"penetration"`
	TotalCards   int     `json:"total_cards"`
	CardsDealt   int     `json:"cards_dealt"`
	Remaining    int     `json:"remaining"`
	CutPosition  int     `json:"cut_position"`
	ReshuffleDue bool    `json:"reshuffle_due"`
	Reshuffles   int     `json:"reshuffles"`
}

// Snapshot is a deep copy of the round state. Changing it has no effect on
// the table.
type Snapshot struct {
	Round         int              `json:"round"`
	RoundID       string           `json:"round_id"`
	Phase         Phase            `json:"phase"`
	Hands         []HandView       `json:"hands"`
	ActiveHand    HandID           `json:"active_hand,omitempty"`
	InsuranceOpen bool             `json:"insurance_open"`
	Dealer        DealerView       `json:"dealer"`
	Balances      map[string]int64 `json:"balances"`
	SideBets      []ledger.SideBet `json:"side_bets"`
	Shoe          ShoeView         `json:"shoe"`
	Result        *RoundResult     `json:"result,omitempty"`
}

// Snapshot returns a read-only projection of the current round. The hole
// card is withheld while it is face down.
func (t *Table) Snapshot() Snapshot {
	s := Snapshot{
		Round:         t.round,
		RoundID:       t.roundID,
		Phase:         t.phase,
		Hands:         make([]HandView, 0, len(t.hands)),
		ActiveHand:    t.ActiveHand(),
		InsuranceOpen: t.insuranceOpen,
		Balances:      map[string]int64{},
		SideBets:      t.ledger.SideBets(),
		Result:        t.Result(),
		Shoe: ShoeView{
			Decks:        t.shoe.Decks(),
			Penetration:  t.shoe.Penetration(),
			TotalCards:   t.shoe.TotalCards(),
			CardsDealt:   t.shoe.CardsDealt(),
			Remaining:    t.shoe.Remaining(),
			CutPosition:  t.shoe.CutPosition(),
			ReshuffleDue: t.shoe.NeedsReshuffle(),
			Reshuffles:   t.reshuffles,
		},
	}

	for _, h := range t.hands {
		s.Hands = append(s.Hands, HandView{
			Hand:    h.clone(),
			Summary: h.Summary(),
			Legal:   t.LegalActions(h.ID),
		})
	}

	visible := t.dealer.Visible()
	counted := visible
	if t.dealer.HoleHidden && len(counted) > 1 {
		counted = counted[:1]
	}
	s.Dealer = DealerView{
		Cards:      visible,
		HoleHidden: t.dealer.HoleHidden,
		Total:      hand.Total(counted),
		Soft:       hand.IsSoft(counted),
	}

	for _, name := range t.ledger.Accounts() {
		s.Balances[name], _ = t.ledger.Balance(name)
	}
	return s
}

// Dealer returns the dealer's hand as a player sees it
func (t *Table) Dealer() DealerView {
	return t.Snapshot().Dealer
}
