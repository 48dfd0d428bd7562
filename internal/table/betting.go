package table

import (
	"fmt"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/hand"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/sidebet"
)

// Commands that are not player actions report their own name
const (
	actionStartRound Action = "start_round"
	actionBet        Action = "place_bet"
	actionSideBet    Action = "place_side_bet"
	actionClearBets  Action = "clear_bets"
	actionDeal       Action = "deal"
	actionDealer     Action = "advance_dealer"
	actionSettle     Action = "settle"
	actionNextRound  Action = "start_next_round"
	actionDecline    Action = "close_insurance"
)

// StartRound opens betting for the current round. It is only legal before
// any bet is placed, and reshuffles when the cut card has been reached.
func (t *Table) StartRound() error {
	if t.phase != Betting {
		return illegal(actionStartRound, 0, "round already in progress")
	}
	if len(t.hands) > 0 {
		return illegal(actionStartRound, 0, "bets already placed")
	}
	t.openRound()
	return nil
}

// PlaceBet places a primary bet for owner and creates the hand it rides on
func (t *Table) PlaceBet(owner string, amount int64) (HandID, error) {
	if t.phase != Betting {
		return 0, illegal(actionBet, 0, "bets are only accepted while betting")
	}
	if len(t.hands) >= MaxHands {
		return 0, illegal(actionBet, 0, fmt.Sprintf("table takes at most %d hands", MaxHands))
	}

	id := t.nextHand
	betID, err := t.ledger.Place(owner, int(id), amount)
	if err != nil {
		return 0, err
	}

	t.nextHand++
	t.hands = append(t.hands, &Hand{
		ID:      id,
		Owner:   owner,
		Bet:     betID,
		Amount:  amount,
		Lineage: id,
		Status:  Active,
		games:   map[string]bool{},
	})
	t.logger.Debug("Bet placed", "round", t.round, "hand", id, "owner", owner, "amount", amount)
	return id, nil
}

// PlaceSideBet places a side bet on a hand. Each game takes one wager per
// hand; the three Over/Under 13 picks count as one game. Insurance is
// offered after the deal through TakeInsurance.
func (t *Table) PlaceSideBet(id HandID, kind sidebet.Kind, amount int64) (ledger.BetID, error) {
	if t.phase != Betting {
		return 0, illegal(actionSideBet, id, "bets are only accepted while betting")
	}
	h, err := t.hand(id)
	if err != nil {
		return 0, err
	}
	if kind == sidebet.Insurance {
		return 0, illegal(actionSideBet, id, "insurance is offered after the deal")
	}
	if h.hasGame(kind) {
		return 0, illegal(actionSideBet, id, fmt.Sprintf("hand already has a %s wager", kind.Table()))
	}

	betID, err := t.ledger.PlaceSide(h.Owner, int(id), kind, amount)
	if err != nil {
		return 0, err
	}
	h.SideBets = append(h.SideBets, betID)
	h.games[kind.Table()] = true
	t.logger.Debug("Side bet placed", "round", t.round, "hand", id, "kind", kind, "amount", amount)
	return betID, nil
}

// ClearBets refunds every bet of the round and removes the hands
func (t *Table) ClearBets() error {
	if t.phase != Betting {
		return illegal(actionClearBets, 0, "bets can only be cleared while betting")
	}
	t.ledger.Reset()
	t.hands = nil
	t.nextHand = 1
	t.logger.Debug("Bets cleared", "round", t.round)
	return nil
}

// Deal deals two cards to every hand and to the dealer, the dealer's second
// card face down. When the remaining cards cannot cover the deal the shoe
// is reshuffled first; no card of the round is in play yet.
//
// With an Ace up and insurance offered, the round stays in PlayerTurn with
// the insurance window open until CloseInsurance. With a ten-value card up
// (or an Ace without insurance) the dealer peeks at once. A dealer
// blackjack goes straight to Settlement.
func (t *Table) Deal() error {
	if t.phase != Betting {
		return illegal(actionDeal, 0, "cards are only dealt after betting")
	}
	if len(t.hands) == 0 {
		return illegal(actionDeal, 0, "no bets placed")
	}

	need := 2*len(t.hands) + 2
	if t.shoe.Remaining() < need {
		t.Reshuffle()
		if t.shoe.Remaining() < need {
			return fmt.Errorf("%w: deal needs %d cards, shoe holds %d", deck.ErrShoeExhausted, need, t.shoe.Remaining())
		}
	}

	t.setPhase(Dealing)
	t.startedAt = t.clock.Now()

	// Remaining was checked above, so these draws cannot fail.
	for pass := range 2 {
		for _, h := range t.hands {
			c, _ := t.shoe.Draw(true)
			h.Cards = append(h.Cards, c)
		}
		c, _ := t.shoe.Draw(pass == 0)
		t.dealer.Cards = append(t.dealer.Cards, c)
	}
	t.dealer.HoleHidden = true

	for _, h := range t.hands {
		h.Initial = []deck.Card{h.Cards[0], h.Cards[1]}
		if hand.IsBlackjack(h.Cards, false) {
			h.Status = Natural
		}
	}
	t.logger.Debug("Dealt", "round", t.round, "hands", len(t.hands), "up", t.dealer.Up())

	up := t.dealer.Up()
	switch {
	case up.IsAce() && t.rules.Insurance:
		t.insuranceOpen = true
		t.setPhase(PlayerTurn)
		return nil
	case up.IsAce() || up.IsTenValue():
		if t.peek() {
			return nil
		}
	}
	t.beginPlay()
	return nil
}

// peek checks the hole card for a dealer blackjack. On a blackjack the hole
// card is revealed and the round moves to Settlement.
func (t *Table) peek() bool {
	if !t.dealer.Blackjack() {
		return false
	}
	t.dealer.reveal()
	t.logger.Debug("Dealer blackjack", "round", t.round)
	t.setPhase(Settlement)
	return true
}

func (t *Table) beginPlay() {
	t.setPhase(PlayerTurn)
	t.active = -1
	t.advance()
}

// TakeInsurance places an insurance wager on a hand while the insurance
// window is open. The amount is capped at half the hand's bet.
func (t *Table) TakeInsurance(id HandID, amount int64) error {
	h, err := t.checkAction(ActionInsurance, id)
	if err != nil {
		return err
	}
	betID, err := t.ledger.PlaceInsurance(h.Owner, int(h.ID), amount, h.Amount/2)
	if err != nil {
		return err
	}
	h.Insurance = betID
	h.SideBets = append(h.SideBets, betID)
	t.logger.Debug("Insurance taken", "round", t.round, "hand", id, "amount", amount)
	return nil
}

// CloseInsurance ends the insurance window and peeks at the hole card
func (t *Table) CloseInsurance() error {
	if t.phase != PlayerTurn || !t.insuranceOpen {
		return illegal(actionDecline, 0, "insurance is not offered")
	}
	t.insuranceOpen = false
	if t.peek() {
		return nil
	}
	t.beginPlay()
	return nil
}

// DeclineInsurance is CloseInsurance
func (t *Table) DeclineInsurance() error {
	return t.CloseInsurance()
}

// InsuranceOpen reports whether the insurance window is open
func (t *Table) InsuranceOpen() bool {
	return t.insuranceOpen
}
