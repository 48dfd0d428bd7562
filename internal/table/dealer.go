package table

import (
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/hand"
)

// AdvanceDealer plays out the dealer's hand: the hole card is revealed and
// the dealer draws until the house rule says stand. If no hand is left
// standing the dealer reveals but does not draw. The round then moves to
// Settlement.
//
// A deck.ErrShoeExhausted mid-turn leaves the cards drawn so far in place;
// reshuffle and call again to finish the turn.
func (t *Table) AdvanceDealer() error {
	for {
		done, err := t.DealerStep()
		if err != nil || done {
			return err
		}
	}
}

// DealerStep reveals the hole card or draws a single dealer card, for
// embeddings that pace the dealer turn. It reports true once the dealer is
// done and the round has moved to Settlement.
func (t *Table) DealerStep() (bool, error) {
	if t.phase != DealerTurn {
		return false, illegal(actionDealer, 0, "not the dealer turn")
	}
	draw := t.needsDealer() && hand.DealerShouldHit(t.dealer.Cards, t.rules.DealerHitsSoft17)
	if draw && t.shoe.Remaining() < 1 {
		return false, deck.ErrShoeExhausted
	}

	if t.dealer.HoleHidden {
		t.dealer.reveal()
		t.logger.Debug("Hole card revealed", "round", t.round, "dealer", t.dealer.Cards)
	}

	if draw {
		c, err := t.shoe.Draw(true)
		if err != nil {
			return false, err
		}
		t.dealer.Cards = append(t.dealer.Cards, c)
		t.logger.Debug("Dealer draws", "round", t.round, "card", c, "total", hand.Total(t.dealer.Cards))
		if hand.DealerShouldHit(t.dealer.Cards, t.rules.DealerHitsSoft17) {
			return false, nil
		}
	}

	t.setPhase(Settlement)
	return true, nil
}

// needsDealer reports whether any hand still depends on the dealer's total.
// Busted and surrendered hands are decided, and so are naturals once the
// dealer has no blackjack.
func (t *Table) needsDealer() bool {
	for _, h := range t.hands {
		if h.Status == Standing {
			return true
		}
	}
	return false
}
