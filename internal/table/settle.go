package table

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/hand"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/sidebet"
)

// HandResult is the settled outcome of one player hand
type HandResult struct {
	Hand    HandID         `json:"hand"`
	Owner   string         `json:"owner"`
	Cards   []deck.Card    `json:"cards"`
	Total   int            `json:"total"`
	Status  HandStatus     `json:"status"`
	Split   bool           `json:"split,omitempty"`
	Doubled bool           `json:"doubled,omitempty"`
	Outcome ledger.Outcome `json:"outcome"`
	Amount  int64          `json:"amount"`
	Payout  int64          `json:"payout"`
}

// RoundResult is the immutable record of a settled round
type RoundResult struct {
	ID              string           `json:"id"`
	Round           int              `json:"round"`
	Rules           string           `json:"rules"`
	StartedAt       time.Time        `json:"started_at"`
	SettledAt       time.Time        `json:"settled_at"`
	Dealer          []deck.Card      `json:"dealer"`
	DealerTotal     int              `json:"dealer_total"`
	DealerBlackjack bool             `json:"dealer_blackjack"`
	Hands           []HandResult     `json:"hands"`
	SideBets        []ledger.SideBet `json:"side_bets"`
	Net             map[string]int64 `json:"net"`
}

// Wagered returns the total staked on the round, side bets included
func (r RoundResult) Wagered() int64 {
	var total int64
	for _, h := range r.Hands {
		total += h.Amount
	}
	for _, s := range r.SideBets {
		total += s.Amount
	}
	return total
}

// Returned returns the total paid back on the round
func (r RoundResult) Returned() int64 {
	var total int64
	for _, h := range r.Hands {
		total += h.Payout
	}
	for _, s := range r.SideBets {
		total += s.Payout
	}
	return total
}

func (r RoundResult) clone() RoundResult {
	c := r
	c.Dealer = slices.Clone(r.Dealer)
	c.Hands = make([]HandResult, len(r.Hands))
	for i, h := range r.Hands {
		h.Cards = slices.Clone(h.Cards)
		c.Hands[i] = h
	}
	c.SideBets = slices.Clone(r.SideBets)
	c.Net = maps.Clone(r.Net)
	return c
}

// outcome decides a hand against the dealer. Surrendered hands are settled
// when they surrender and never get here.
func outcome(h *Hand, dealer []deck.Card) ledger.Outcome {
	dealerBJ := hand.IsBlackjack(dealer, false)
	switch {
	case h.Status == Busted:
		return ledger.Loss
	case h.Status == Natural && dealerBJ:
		return ledger.Push
	case h.Status == Natural:
		return ledger.BlackjackWin
	case dealerBJ:
		return ledger.Loss
	case hand.IsBusted(dealer):
		return ledger.Win
	}

	player, house := hand.Total(h.Cards), hand.Total(dealer)
	switch {
	case player > house:
		return ledger.Win
	case player < house:
		return ledger.Loss
	default:
		return ledger.Push
	}
}

// Settle resolves every bet and side bet of the round and moves to Cleanup
func (t *Table) Settle() (*RoundResult, error) {
	if t.phase != Settlement {
		return nil, illegal(actionSettle, 0, "round is not ready to settle")
	}

	// Work out every side-bet result before touching the ledger.
	dealerBJ := t.dealer.Blackjack()
	type sideResult struct {
		id  ledger.BetID
		res sidebet.Result
	}
	var sides []sideResult
	for _, h := range t.hands {
		if len(h.Initial) != 2 {
			continue
		}
		in := sidebet.Input{
			Player:          [2]deck.Card{h.Initial[0], h.Initial[1]},
			DealerUp:        t.dealer.Up(),
			DealerBlackjack: dealerBJ,
		}
		for _, id := range h.SideBets {
			sb, err := t.ledger.SideBet(id)
			if err != nil {
				return nil, err
			}
			res, err := t.evaluator.Evaluate(sb.Kind, in)
			if err != nil {
				return nil, fmt.Errorf("side bet %d: %w", id, err)
			}
			sides = append(sides, sideResult{id: id, res: res})
		}
	}

	result := &RoundResult{
		ID:              t.roundID,
		Round:           t.round,
		Rules:           t.rules.Summary(),
		StartedAt:       t.startedAt,
		SettledAt:       t.clock.Now(),
		Dealer:          slices.Clone(t.dealer.Cards),
		DealerTotal:     hand.Total(t.dealer.Cards),
		DealerBlackjack: dealerBJ,
		Net:             map[string]int64{},
	}

	for _, h := range t.hands {
		var (
			out    ledger.Outcome
			payout int64
		)
		if h.Status == Surrendered {
			bet, err := t.ledger.Bet(h.Bet)
			if err != nil {
				return nil, err
			}
			out, payout = bet.Outcome, bet.Payout
		} else {
			out = outcome(h, t.dealer.Cards)
			var err error
			if payout, err = t.ledger.Settle(h.Bet, out); err != nil {
				return nil, err
			}
		}
		result.Hands = append(result.Hands, HandResult{
			Hand:    h.ID,
			Owner:   h.Owner,
			Cards:   slices.Clone(h.Cards),
			Total:   hand.Total(h.Cards),
			Status:  h.Status,
			Split:   h.Split,
			Doubled: h.Doubled,
			Outcome: out,
			Amount:  h.Amount,
			Payout:  payout,
		})
		result.Net[h.Owner] += payout - h.Amount
	}

	for _, s := range sides {
		if _, err := t.ledger.SettleSide(s.id, s.res); err != nil {
			return nil, err
		}
		sb, _ := t.ledger.SideBet(s.id)
		result.SideBets = append(result.SideBets, sb)
		result.Net[sb.Owner] += sb.Payout - sb.Amount
	}

	t.result = result
	t.logger.Debug("Round settled", "round", t.round, "dealer", result.DealerTotal, "net", result.Net)
	t.setPhase(Cleanup)

	r := result.clone()
	return &r, nil
}

// StartNextRound records the settled round and opens betting for the next
// one. When the recorder fails nothing changes and the round stays in
// Cleanup.
func (t *Table) StartNextRound() error {
	if t.phase != Cleanup || t.result == nil {
		return illegal(actionNextRound, 0, "round is not settled")
	}
	if t.recorder != nil {
		if err := t.recorder.Record(t.result.clone()); err != nil {
			return fmt.Errorf("recording round %d: %w", t.round, err)
		}
	}

	if t.historyLimit > 0 {
		t.history = append(t.history, *t.result)
		if over := len(t.history) - t.historyLimit; over > 0 {
			t.history = slices.Delete(t.history, 0, over)
		}
	}

	t.ledger.Reset()
	t.round++
	t.openRound()
	return nil
}
