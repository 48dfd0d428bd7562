package table

import (
	"fmt"
	"slices"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/hand"
	"github.com/lox/blackjack/internal/ledger"
)

// checkAction validates a player action against the phase, the hand cursor
// and the action's own rules. Nothing is mutated.
func (t *Table) checkAction(a Action, id HandID) (*Hand, error) {
	if t.phase != PlayerTurn {
		return nil, illegal(a, id, "not the player turn")
	}
	h, err := t.hand(id)
	if err != nil {
		return nil, err
	}
	if a == ActionInsurance {
		if err := t.checkInsurance(h); err != nil {
			return nil, err
		}
		return h, nil
	}
	if t.insuranceOpen {
		return nil, illegal(a, id, "insurance decision pending")
	}
	if h.Status != Active {
		return nil, illegal(a, id, "hand is "+h.Status.String())
	}
	if t.current() != h {
		return nil, illegal(a, id, "not this hand's turn")
	}

	switch a {
	case ActionHit:
		if h.SplitAces {
			return nil, illegal(a, id, "split aces take one card")
		}
	case ActionStand:
	case ActionDouble:
		if err := t.checkDouble(h); err != nil {
			return nil, err
		}
	case ActionSplit:
		if err := t.checkSplit(h); err != nil {
			return nil, err
		}
	case ActionSurrender:
		if err := t.checkSurrender(h); err != nil {
			return nil, err
		}
	default:
		return nil, illegal(a, id, "unknown action")
	}
	return h, nil
}

func (t *Table) needFunds(a Action, h *Hand, amount int64) error {
	if t.ledger.CanAfford(h.Owner, amount) {
		return nil
	}
	e := illegal(a, h.ID, fmt.Sprintf("balance below %d", amount))
	e.Cause = ledger.ErrInsufficientBalance
	return e
}

func (t *Table) checkDouble(h *Hand) error {
	switch {
	case len(h.Cards) != 2:
		return illegal(ActionDouble, h.ID, "double needs exactly two cards")
	case h.SplitAces:
		return illegal(ActionDouble, h.ID, "split aces take one card")
	case h.Split && !t.rules.DoubleAfterSplit:
		return illegal(ActionDouble, h.ID, "double after split not allowed")
	}
	return t.needFunds(ActionDouble, h, h.Amount)
}

func (t *Table) checkSplit(h *Hand) error {
	switch {
	case !hand.IsPair(h.Cards):
		return illegal(ActionSplit, h.ID, "split needs a pair")
	case t.splits(h.Lineage) >= t.rules.MaxSplitHands:
		return illegal(ActionSplit, h.ID, fmt.Sprintf("split limit of %d reached", t.rules.MaxSplitHands))
	case h.Cards[0].IsAce() && h.Split && !t.rules.ResplitAces:
		return illegal(ActionSplit, h.ID, "resplitting aces not allowed")
	}
	return t.needFunds(ActionSplit, h, h.Amount)
}

func (t *Table) checkSurrender(h *Hand) error {
	switch {
	case !t.rules.LateSurrender:
		return illegal(ActionSurrender, h.ID, "surrender not offered")
	case len(h.Cards) != 2:
		return illegal(ActionSurrender, h.ID, "surrender needs exactly two cards")
	case h.Split:
		return illegal(ActionSurrender, h.ID, "surrender only on the initial hand")
	}
	return nil
}

func (t *Table) checkInsurance(h *Hand) error {
	switch {
	case !t.insuranceOpen:
		return illegal(ActionInsurance, h.ID, "insurance is not offered")
	case !t.dealer.Up().IsAce():
		return illegal(ActionInsurance, h.ID, "dealer does not show an ace")
	case len(h.Cards) != 2:
		return illegal(ActionInsurance, h.ID, "insurance needs exactly two cards")
	case h.Insurance != 0:
		return illegal(ActionInsurance, h.ID, "insurance already taken")
	case h.Amount/2 < 1:
		return illegal(ActionInsurance, h.ID, "bet too small to insure")
	}
	return t.needFunds(ActionInsurance, h, 1)
}

// LegalActions returns the actions a hand may take right now
func (t *Table) LegalActions(id HandID) []Action {
	out := []Action{}
	for _, a := range Actions {
		if _, err := t.checkAction(a, id); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// CheckAction reports whether an action is legal without performing it
func (t *Table) CheckAction(a Action, id HandID) error {
	_, err := t.checkAction(a, id)
	return err
}

// Hit draws a card to the hand. The hand stops at 21 or on a bust.
func (t *Table) Hit(id HandID) error {
	h, err := t.checkAction(ActionHit, id)
	if err != nil {
		return err
	}
	c, err := t.shoe.Draw(true)
	if err != nil {
		return err
	}
	h.Cards = append(h.Cards, c)
	afterCard(h)
	t.logger.Debug("Hit", "round", t.round, "hand", id, "card", c, "total", hand.Total(h.Cards))
	t.advance()
	return nil
}

// Stand ends the hand's turn
func (t *Table) Stand(id HandID) error {
	h, err := t.checkAction(ActionStand, id)
	if err != nil {
		return err
	}
	h.Status = Standing
	t.logger.Debug("Stand", "round", t.round, "hand", id, "total", hand.Total(h.Cards))
	t.advance()
	return nil
}

// Double doubles the bet and draws exactly one more card
func (t *Table) Double(id HandID) error {
	h, err := t.checkAction(ActionDouble, id)
	if err != nil {
		return err
	}
	if t.shoe.Remaining() < 1 {
		return deck.ErrShoeExhausted
	}
	if err := t.ledger.Double(h.Bet); err != nil {
		return err
	}
	c, _ := t.shoe.Draw(true)
	h.Cards = append(h.Cards, c)
	h.Amount *= 2
	h.Doubled = true
	if hand.IsBusted(h.Cards) {
		h.Status = Busted
	} else {
		h.Status = Standing
	}
	t.logger.Debug("Double", "round", t.round, "hand", id, "card", c, "amount", h.Amount)
	t.advance()
	return nil
}

// Split splits a pair into two hands, each drawing a second card. The new
// hand is played straight after the one it came from. Split aces take one
// card each and stand unless they pair again and may be resplit.
func (t *Table) Split(id HandID) (HandID, error) {
	h, err := t.checkAction(ActionSplit, id)
	if err != nil {
		return 0, err
	}
	if t.shoe.Remaining() < 2 {
		return 0, deck.ErrShoeExhausted
	}

	newID := t.nextHand
	betID, err := t.ledger.Split(h.Bet, int(newID))
	if err != nil {
		return 0, err
	}
	t.nextHand++

	aces := h.Cards[0].IsAce()
	nh := &Hand{
		ID:        newID,
		Owner:     h.Owner,
		Cards:     []deck.Card{h.Cards[1]},
		Bet:       betID,
		Amount:    h.Amount,
		Split:     true,
		SplitFrom: h.ID,
		SplitAces: aces,
		Lineage:   h.Lineage,
		Status:    Active,
		games:     map[string]bool{},
	}
	h.Cards = []deck.Card{h.Cards[0]}
	h.Split = true
	h.SplitAces = aces

	idx := t.indexOf(h.ID)
	t.hands = slices.Insert(t.hands, idx+1, nh)

	for _, sh := range []*Hand{h, nh} {
		c, _ := t.shoe.Draw(true)
		sh.Cards = append(sh.Cards, c)
		if !aces {
			afterCard(sh)
			continue
		}
		if !(hand.IsPair(sh.Cards) && t.rules.ResplitAces && t.splits(sh.Lineage) < t.rules.MaxSplitHands) {
			sh.Status = Standing
		}
	}

	t.logger.Debug("Split", "round", t.round, "hand", id, "new_hand", newID, "aces", aces)
	t.advance()
	return newID, nil
}

// Surrender gives up the hand for half the bet, settled immediately
func (t *Table) Surrender(id HandID) error {
	h, err := t.checkAction(ActionSurrender, id)
	if err != nil {
		return err
	}
	if _, err := t.ledger.Settle(h.Bet, ledger.Surrender); err != nil {
		return err
	}
	h.Status = Surrendered
	t.logger.Debug("Surrender", "round", t.round, "hand", id)
	t.advance()
	return nil
}

func afterCard(h *Hand) {
	switch total := hand.Total(h.Cards); {
	case total > hand.Blackjack:
		h.Status = Busted
	case total == hand.Blackjack:
		h.Status = Standing
	}
}

// advance moves the cursor to the next active hand, or to the dealer turn
// when none is left. The current hand keeps the cursor while still active.
func (t *Table) advance() {
	if t.active >= 0 && t.active < len(t.hands) && t.hands[t.active].Status == Active {
		return
	}
	for i := t.active + 1; i < len(t.hands); i++ {
		if t.hands[i].Status == Active {
			t.active = i
			return
		}
	}
	t.active = -1
	t.setPhase(DealerTurn)
}
