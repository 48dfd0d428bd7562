package table

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/sidebet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.WarnLevel})
}

// stacked builds a table whose shoe deals cards in the given order. The deal
// goes player, dealer up, player, dealer hole.
func stacked(t *testing.T, cards string, modify ...func(*config.Rules)) *Table {
	t.Helper()
	rules := config.Default()
	for _, m := range modify {
		m(&rules)
	}
	tbl, err := New(rules,
		WithShoe(deck.NewStackedShoe(deck.MustParseCards(cards)...)),
		WithLogger(testLogger()),
	)
	require.NoError(t, err)
	require.NoError(t, tbl.AddPlayer("alice", 1000))
	return tbl
}

func bet(t *testing.T, tbl *Table, amount int64) HandID {
	t.Helper()
	id, err := tbl.PlaceBet("alice", amount)
	require.NoError(t, err)
	return id
}

func balance(t *testing.T, tbl *Table) int64 {
	t.Helper()
	b, err := tbl.Balance("alice")
	require.NoError(t, err)
	return b
}

func settle(t *testing.T, tbl *Table) *RoundResult {
	t.Helper()
	if tbl.Phase() == DealerTurn {
		require.NoError(t, tbl.AdvanceDealer())
	}
	require.Equal(t, Settlement, tbl.Phase())
	res, err := tbl.Settle()
	require.NoError(t, err)
	require.Equal(t, Cleanup, tbl.Phase())
	return res
}

func TestNewRejectsInvalidRules(t *testing.T) {
	rules := config.Default()
	rules.Decks = 9
	_, err := New(rules)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestBlackjackPaysThreeToTwo(t *testing.T) {
	tbl := stacked(t, "As 9c Kd 8h")
	id := bet(t, tbl, 10)

	require.NoError(t, tbl.Deal())
	h, err := tbl.Hand(id)
	require.NoError(t, err)
	assert.Equal(t, Natural, h.Status)
	assert.Equal(t, DealerTurn, tbl.Phase())

	res := settle(t, tbl)
	require.Len(t, res.Hands, 1)
	assert.Equal(t, ledger.BlackjackWin, res.Hands[0].Outcome)
	assert.Equal(t, int64(25), res.Hands[0].Payout)
	assert.Len(t, res.Dealer, 2)
	assert.Equal(t, int64(1015), balance(t, tbl))
	assert.Equal(t, int64(15), res.Net["alice"])
}

func TestBlackjackPaysSixToFive(t *testing.T) {
	tbl := stacked(t, "As 9c Kd 8h", func(r *config.Rules) { r.BlackjackPayout = ledger.SixToFive })
	bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())

	res := settle(t, tbl)
	assert.Equal(t, int64(22), res.Hands[0].Payout)
}

func TestDealerBlackjackBeatsNineteen(t *testing.T) {
	tbl := stacked(t, "Th Kc 9d As")
	bet(t, tbl, 10)

	require.NoError(t, tbl.Deal())
	assert.Equal(t, Settlement, tbl.Phase(), "dealer peeks under a ten and skips the player turn")

	res := settle(t, tbl)
	assert.True(t, res.DealerBlackjack)
	assert.Equal(t, ledger.Loss, res.Hands[0].Outcome)
	assert.Equal(t, int64(0), res.Hands[0].Payout)
	assert.Equal(t, int64(990), balance(t, tbl))
}

func TestBlackjackAgainstDealerBlackjackPushes(t *testing.T) {
	tbl := stacked(t, "As Kc Kd Ah")
	bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())
	require.False(t, tbl.InsuranceOpen())

	res := settle(t, tbl)
	assert.Equal(t, ledger.Push, res.Hands[0].Outcome)
	assert.Equal(t, int64(10), res.Hands[0].Payout)
}

func TestBustLosesAndDealerDoesNotDraw(t *testing.T) {
	tbl := stacked(t, "Th 6c 8d Tc 5s 4h 4d")
	id := bet(t, tbl, 10)

	require.NoError(t, tbl.Deal())
	require.NoError(t, tbl.Hit(id))

	h, err := tbl.Hand(id)
	require.NoError(t, err)
	assert.Equal(t, Busted, h.Status)
	assert.Equal(t, 23, h.Summary().Total)
	assert.Equal(t, DealerTurn, tbl.Phase())

	res := settle(t, tbl)
	assert.Len(t, res.Dealer, 2, "dealer reveals but does not draw")
	assert.Equal(t, ledger.Loss, res.Hands[0].Outcome)
	assert.Equal(t, int64(990), balance(t, tbl))
}

func TestPushReturnsStake(t *testing.T) {
	tbl := stacked(t, "Th 9c 9d Tc")
	id := bet(t, tbl, 10)

	require.NoError(t, tbl.Deal())
	require.NoError(t, tbl.Stand(id))

	res := settle(t, tbl)
	assert.Equal(t, ledger.Push, res.Hands[0].Outcome)
	assert.Equal(t, int64(10), res.Hands[0].Payout)
	assert.Equal(t, int64(1000), balance(t, tbl))
}

func TestSurrenderAgainstAce(t *testing.T) {
	tbl := stacked(t, "Th As 6d 9c")
	id := bet(t, tbl, 10)

	require.NoError(t, tbl.Deal())
	require.True(t, tbl.InsuranceOpen())

	err := tbl.Surrender(id)
	require.ErrorIs(t, err, ErrIllegalAction, "insurance decision comes first")

	require.NoError(t, tbl.CloseInsurance())
	assert.Equal(t, PlayerTurn, tbl.Phase())
	assert.Contains(t, tbl.LegalActions(id), ActionSurrender)

	require.NoError(t, tbl.Surrender(id))
	assert.Equal(t, int64(995), balance(t, tbl), "half the bet comes back at once")

	res := settle(t, tbl)
	assert.Len(t, res.Dealer, 2)
	assert.Equal(t, ledger.Surrender, res.Hands[0].Outcome)
	assert.Equal(t, Surrendered, res.Hands[0].Status)
	assert.Equal(t, int64(5), res.Hands[0].Payout)
	assert.Equal(t, int64(995), balance(t, tbl))
}

func TestInsurancePaysOnDealerBlackjack(t *testing.T) {
	tbl := stacked(t, "Th As 9d Kc")
	id := bet(t, tbl, 10)

	require.NoError(t, tbl.Deal())
	assert.Equal(t, []Action{ActionInsurance}, tbl.LegalActions(id))

	err := tbl.TakeInsurance(id, 6)
	assert.ErrorIs(t, err, ledger.ErrBetAboveMaximum)

	require.NoError(t, tbl.TakeInsurance(id, 5))
	assert.ErrorIs(t, tbl.TakeInsurance(id, 5), ErrIllegalAction)

	require.NoError(t, tbl.CloseInsurance())
	assert.Equal(t, Settlement, tbl.Phase())

	res := settle(t, tbl)
	assert.Equal(t, ledger.Loss, res.Hands[0].Outcome)
	require.Len(t, res.SideBets, 1)
	assert.Equal(t, sidebet.Insurance, res.SideBets[0].Kind)
	assert.Equal(t, int64(15), res.SideBets[0].Payout)
	assert.Equal(t, int64(1000), balance(t, tbl))
	assert.Equal(t, int64(0), res.Net["alice"])
}

func TestInsuranceLosesWithoutDealerBlackjack(t *testing.T) {
	tbl := stacked(t, "Th As 9d 7c")
	id := bet(t, tbl, 10)

	require.NoError(t, tbl.Deal())
	require.NoError(t, tbl.TakeInsurance(id, 5))
	require.NoError(t, tbl.DeclineInsurance())
	require.Equal(t, PlayerTurn, tbl.Phase())
	require.NoError(t, tbl.Stand(id))

	res := settle(t, tbl)
	assert.Equal(t, 18, res.DealerTotal)
	assert.Equal(t, ledger.Win, res.Hands[0].Outcome)
	require.Len(t, res.SideBets, 1)
	assert.Equal(t, ledger.Lost, res.SideBets[0].Status)
	assert.Equal(t, int64(1005), balance(t, tbl))
}

func TestInsuranceNotOffered(t *testing.T) {
	tbl := stacked(t, "Th As 9d 7c", func(r *config.Rules) { r.Insurance = false })
	id := bet(t, tbl, 10)

	require.NoError(t, tbl.Deal())
	assert.False(t, tbl.InsuranceOpen())
	assert.ErrorIs(t, tbl.TakeInsurance(id, 5), ErrIllegalAction)
	assert.ErrorIs(t, tbl.CloseInsurance(), ErrIllegalAction)
	assert.Equal(t, PlayerTurn, tbl.Phase())
}

func TestSplitAndDoubleAfterSplit(t *testing.T) {
	tbl := stacked(t, "8h 6c 8d Tc 3s Ks 9h 7d")
	id := bet(t, tbl, 10)

	require.NoError(t, tbl.Deal())
	assert.Contains(t, tbl.LegalActions(id), ActionSplit)

	newID, err := tbl.Split(id)
	require.NoError(t, err)
	assert.Equal(t, int64(980), balance(t, tbl))

	snap := tbl.Snapshot()
	require.Len(t, snap.Hands, 2)
	assert.Equal(t, id, snap.Hands[0].ID)
	assert.Equal(t, newID, snap.Hands[1].ID)
	assert.Equal(t, id, snap.Hands[1].SplitFrom)
	assert.Equal(t, 11, snap.Hands[0].Summary.Total)
	assert.Equal(t, 18, snap.Hands[1].Summary.Total)
	assert.Equal(t, id, snap.ActiveHand)

	assert.ErrorIs(t, tbl.Stand(newID), ErrIllegalAction, "split hands play in order")
	assert.ErrorIs(t, tbl.Surrender(id), ErrIllegalAction, "no surrender after a split")

	require.NoError(t, tbl.Double(id))
	assert.Equal(t, newID, tbl.ActiveHand())
	require.NoError(t, tbl.Stand(newID))

	res := settle(t, tbl)
	assert.Equal(t, 23, res.DealerTotal)
	require.Len(t, res.Hands, 2)
	assert.Equal(t, ledger.Win, res.Hands[0].Outcome)
	assert.True(t, res.Hands[0].Doubled)
	assert.Equal(t, int64(40), res.Hands[0].Payout)
	assert.Equal(t, ledger.Win, res.Hands[1].Outcome)
	assert.Equal(t, int64(20), res.Hands[1].Payout)
	assert.Equal(t, int64(1030), balance(t, tbl))
}

func TestDoubleAfterSplitDisabled(t *testing.T) {
	tbl := stacked(t, "8h 6c 8d Tc 3s Ks", func(r *config.Rules) { r.DoubleAfterSplit = false })
	id := bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())
	_, err := tbl.Split(id)
	require.NoError(t, err)

	var illegalErr *IllegalActionError
	require.ErrorAs(t, tbl.Double(id), &illegalErr)
	assert.Equal(t, "double after split not allowed", illegalErr.Rule)
}

func TestSplitTwentyOneIsNotBlackjack(t *testing.T) {
	tbl := stacked(t, "As 5c Ad Tc 9h Kd 2c")
	id := bet(t, tbl, 10)

	require.NoError(t, tbl.Deal())
	_, err := tbl.Split(id)
	require.NoError(t, err)
	assert.Equal(t, DealerTurn, tbl.Phase(), "split aces take one card each")

	res := settle(t, tbl)
	assert.Equal(t, 17, res.DealerTotal)
	assert.Equal(t, ledger.Win, res.Hands[0].Outcome)
	assert.Equal(t, 20, res.Hands[0].Total)
	assert.Equal(t, ledger.Win, res.Hands[1].Outcome)
	assert.Equal(t, 21, res.Hands[1].Total)
	assert.Equal(t, int64(20), res.Hands[1].Payout, "21 on split aces pays even money")
}

func TestResplitAces(t *testing.T) {
	cards := "As 5c Ad Tc Ah 9d"

	tbl := stacked(t, cards)
	id := bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())
	_, err := tbl.Split(id)
	require.NoError(t, err)
	assert.Equal(t, DealerTurn, tbl.Phase(), "aces stand when they may not be resplit")

	tbl = stacked(t, cards, func(r *config.Rules) { r.ResplitAces = true })
	id = bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())
	_, err = tbl.Split(id)
	require.NoError(t, err)
	require.Equal(t, PlayerTurn, tbl.Phase())
	assert.Equal(t, []Action{ActionStand, ActionSplit}, tbl.LegalActions(id))
	assert.ErrorIs(t, tbl.Hit(id), ErrIllegalAction)
}

func TestSplitLimit(t *testing.T) {
	tests := []struct {
		name   string
		cards  string
		limit  int
		splits int
	}{
		{"one split", "8h 6c 8d Tc 8s 2c", 1, 1},
		{"two splits", "8h 6c 8d Tc 8s 2c 8c 3h", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := stacked(t, tt.cards, func(r *config.Rules) { r.MaxSplitHands = tt.limit })
			id := bet(t, tbl, 10)
			require.NoError(t, tbl.Deal())

			for range tt.splits {
				_, err := tbl.Split(id)
				require.NoError(t, err)
			}
			assert.Len(t, tbl.Snapshot().Hands, tt.splits+1)

			h, err := tbl.Hand(id)
			require.NoError(t, err)
			require.True(t, h.Summary().Pair)
			assert.NotContains(t, tbl.LegalActions(id), ActionSplit)

			_, err = tbl.Split(id)
			var illegalErr *IllegalActionError
			require.ErrorAs(t, err, &illegalErr)
			assert.Contains(t, illegalErr.Rule, "split limit")
		})
	}
}

func TestDoubleNeedsBalance(t *testing.T) {
	tbl := stacked(t, "5h 6c 6d Tc")
	require.NoError(t, tbl.AddPlayer("bob", 10))
	id, err := tbl.PlaceBet("bob", 10)
	require.NoError(t, err)
	require.NoError(t, tbl.Deal())

	err = tbl.Double(id)
	assert.ErrorIs(t, err, ErrIllegalAction)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.NotContains(t, tbl.LegalActions(id), ActionDouble)
}

func TestDoubleDrawsOneCard(t *testing.T) {
	tbl := stacked(t, "5h 6c 6d Tc 2s Kd")
	id := bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())

	require.NoError(t, tbl.Double(id))
	h, err := tbl.Hand(id)
	require.NoError(t, err)
	assert.Len(t, h.Cards, 3)
	assert.Equal(t, Standing, h.Status)
	assert.Equal(t, int64(20), h.Amount)

	res := settle(t, tbl)
	assert.Equal(t, 26, res.DealerTotal)
	assert.Equal(t, int64(40), res.Hands[0].Payout)
}

func TestHitStopsAtTwentyOne(t *testing.T) {
	tbl := stacked(t, "5h 6c 6d Tc Ts")
	id := bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())

	require.NoError(t, tbl.Hit(id))
	h, err := tbl.Hand(id)
	require.NoError(t, err)
	assert.Equal(t, Standing, h.Status)
	assert.Equal(t, DealerTurn, tbl.Phase())
}

func TestDealerSoftSeventeen(t *testing.T) {
	cards := "Th 6c 9d Ac 4h"

	tbl := stacked(t, cards)
	id := bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())
	require.NoError(t, tbl.Stand(id))
	res := settle(t, tbl)
	assert.Equal(t, 17, res.DealerTotal)
	assert.Equal(t, ledger.Win, res.Hands[0].Outcome)

	tbl = stacked(t, cards, func(r *config.Rules) { r.DealerHitsSoft17 = true })
	id = bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())
	require.NoError(t, tbl.Stand(id))
	res = settle(t, tbl)
	assert.Equal(t, 21, res.DealerTotal)
	assert.Equal(t, ledger.Loss, res.Hands[0].Outcome)
}

func TestDealerStep(t *testing.T) {
	tbl := stacked(t, "Th 6c 9d 5c 2h 4s")
	id := bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())
	require.NoError(t, tbl.Stand(id))

	done, err := tbl.DealerStep()
	require.NoError(t, err)
	assert.False(t, done)
	assert.False(t, tbl.Snapshot().Dealer.HoleHidden)
	assert.Equal(t, 13, tbl.Dealer().Total)

	done, err = tbl.DealerStep()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 17, tbl.Dealer().Total)
	assert.Equal(t, Settlement, tbl.Phase())

	_, err = tbl.DealerStep()
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestDealerStepWithEmptyShoe(t *testing.T) {
	tbl := stacked(t, "Th 6c 9d 5c")
	id := bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())
	require.NoError(t, tbl.Stand(id))

	done, err := tbl.DealerStep()
	require.ErrorIs(t, err, deck.ErrShoeExhausted)
	assert.False(t, done)
	assert.True(t, tbl.Snapshot().Dealer.HoleHidden, "failed step leaves the hole card down")
	assert.Equal(t, DealerTurn, tbl.Phase())

	tbl.Reshuffle()
	require.NoError(t, tbl.AdvanceDealer())
	assert.False(t, tbl.Snapshot().Dealer.HoleHidden)
	assert.Equal(t, Settlement, tbl.Phase())
}

func TestMultipleHandsPlayInOrder(t *testing.T) {
	tbl := stacked(t, "Th 9h 7c 6c 2s 8d 8c 5h")
	first := bet(t, tbl, 10)
	second := bet(t, tbl, 20)

	require.NoError(t, tbl.Deal())
	assert.Equal(t, first, tbl.ActiveHand())
	assert.ErrorIs(t, tbl.Stand(second), ErrIllegalAction)

	require.NoError(t, tbl.Stand(first))
	assert.Equal(t, second, tbl.ActiveHand())
	require.NoError(t, tbl.Hit(second))
	require.NoError(t, tbl.Stand(second))

	res := settle(t, tbl)
	assert.Equal(t, 20, res.DealerTotal)
	assert.Equal(t, ledger.Loss, res.Hands[0].Outcome)
	assert.Equal(t, 19, res.Hands[1].Total)
	assert.Equal(t, ledger.Loss, res.Hands[1].Outcome)
}

func TestSideBetsSettle(t *testing.T) {
	tbl := stacked(t, "7c 7h 7d Tc")
	id := bet(t, tbl, 10)

	_, err := tbl.PlaceSideBet(id, sidebet.TwentyOnePlusThree, 5)
	require.NoError(t, err)
	_, err = tbl.PlaceSideBet(id, sidebet.PerfectPairs, 5)
	require.NoError(t, err)
	_, err = tbl.PlaceSideBet(id, sidebet.Over13, 5)
	require.NoError(t, err)

	_, err = tbl.PlaceSideBet(id, sidebet.Under13, 5)
	assert.ErrorIs(t, err, ErrIllegalAction, "one over/under pick per hand")
	_, err = tbl.PlaceSideBet(id, sidebet.Insurance, 5)
	assert.ErrorIs(t, err, ErrIllegalAction)
	_, err = tbl.PlaceSideBet(id, sidebet.RoyalMatch, 500)
	assert.ErrorIs(t, err, ledger.ErrBetAboveMaximum)
	_, err = tbl.PlaceSideBet(42, sidebet.RoyalMatch, 5)
	assert.ErrorIs(t, err, ErrUnknownHand)
	assert.Equal(t, int64(975), balance(t, tbl))

	require.NoError(t, tbl.Deal())
	require.NoError(t, tbl.Stand(id))
	res := settle(t, tbl)

	assert.Equal(t, ledger.Loss, res.Hands[0].Outcome)
	require.Len(t, res.SideBets, 3)
	byKind := map[sidebet.Kind]ledger.SideBet{}
	for _, sb := range res.SideBets {
		byKind[sb.Kind] = sb
	}
	assert.Equal(t, sidebet.LabelThreeOfAKind, byKind[sidebet.TwentyOnePlusThree].Label)
	assert.Equal(t, int64(155), byKind[sidebet.TwentyOnePlusThree].Payout)
	assert.Equal(t, sidebet.LabelMixedPair, byKind[sidebet.PerfectPairs].Label)
	assert.Equal(t, int64(35), byKind[sidebet.PerfectPairs].Payout)
	assert.Equal(t, ledger.Won, byKind[sidebet.Over13].Status)
	assert.Equal(t, int64(10), byKind[sidebet.Over13].Payout)

	assert.Equal(t, int64(-10+150+30+5), res.Net["alice"])
	assert.Equal(t, int64(1000+175), balance(t, tbl))
}

func TestIllegalOutsidePhase(t *testing.T) {
	tbl := stacked(t, "Th 9c 9d Tc")

	assert.ErrorIs(t, tbl.Deal(), ErrIllegalAction, "no bets placed")
	assert.ErrorIs(t, tbl.Hit(1), ErrIllegalAction)
	assert.ErrorIs(t, tbl.AdvanceDealer(), ErrIllegalAction)
	_, err := tbl.Settle()
	assert.ErrorIs(t, err, ErrIllegalAction)
	assert.ErrorIs(t, tbl.StartNextRound(), ErrIllegalAction)

	id := bet(t, tbl, 10)
	assert.ErrorIs(t, tbl.StartRound(), ErrIllegalAction)
	require.NoError(t, tbl.Deal())

	_, err = tbl.PlaceBet("alice", 10)
	assert.ErrorIs(t, err, ErrIllegalAction)
	assert.ErrorIs(t, tbl.ClearBets(), ErrIllegalAction)
	assert.ErrorIs(t, tbl.Hit(99), ErrUnknownHand)

	_, err = tbl.HandSummary(99)
	assert.ErrorIs(t, err, ErrUnknownHand)

	require.NoError(t, tbl.Stand(id))
	assert.ErrorIs(t, tbl.Stand(id), ErrIllegalAction)
}

func TestBetValidation(t *testing.T) {
	tbl := stacked(t, "Th 9c 9d Tc")

	_, err := tbl.PlaceBet("alice", 1)
	assert.ErrorIs(t, err, ledger.ErrBetBelowMinimum)
	_, err = tbl.PlaceBet("alice", 501)
	assert.ErrorIs(t, err, ledger.ErrBetAboveMaximum)
	_, err = tbl.PlaceBet("nobody", 10)
	assert.ErrorIs(t, err, ledger.ErrUnknownAccount)

	require.NoError(t, tbl.AddPlayer("bob", 7))
	_, err = tbl.PlaceBet("bob", 10)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	assert.Empty(t, tbl.Snapshot().Hands, "failed bets leave no hands behind")

	bet(t, tbl, 50)
	bet(t, tbl, 50)
	assert.Equal(t, int64(900), balance(t, tbl))
	require.NoError(t, tbl.ClearBets())
	assert.Equal(t, int64(1000), balance(t, tbl))
	assert.Empty(t, tbl.Snapshot().Hands)
}

func TestDealReshufflesOrFailsCleanly(t *testing.T) {
	tbl := stacked(t, "Th 9c 9d Tc")
	bet(t, tbl, 10)
	bet(t, tbl, 10)

	err := tbl.Deal()
	assert.ErrorIs(t, err, deck.ErrShoeExhausted)
	assert.Equal(t, Betting, tbl.Phase())
	assert.Len(t, tbl.Snapshot().Hands, 2)
	for _, h := range tbl.Snapshot().Hands {
		assert.Empty(t, h.Cards)
	}
}

func TestShoeExhaustedMidRound(t *testing.T) {
	tbl := stacked(t, "Th 9c 2d 5c")
	id := bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())

	err := tbl.Hit(id)
	require.ErrorIs(t, err, deck.ErrShoeExhausted)
	h, err := tbl.Hand(id)
	require.NoError(t, err)
	assert.Len(t, h.Cards, 2, "failed hit leaves the hand untouched")

	tbl.Reshuffle()
	require.NoError(t, tbl.Hit(id))
	assert.Equal(t, 1, tbl.Snapshot().Shoe.Reshuffles)
}

func TestSnapshotDescribesShoe(t *testing.T) {
	tbl, err := New(config.Default(), WithRNG(randutil.New(3)), WithLogger(testLogger()))
	require.NoError(t, err)

	shoe := tbl.Snapshot().Shoe
	assert.Equal(t, 6, shoe.Decks)
	assert.InDelta(t, 0.75, shoe.Penetration, 1e-9)
	assert.Equal(t, 312, shoe.TotalCards)
	assert.Equal(t, 0, shoe.CardsDealt)
	assert.False(t, shoe.ReshuffleDue)
}

func TestSnapshotHidesHoleCard(t *testing.T) {
	tbl := stacked(t, "Th 9c Td Kc")
	id := bet(t, tbl, 10)
	require.NoError(t, tbl.Deal())

	snap := tbl.Snapshot()
	assert.Equal(t, PlayerTurn, snap.Phase)
	assert.True(t, snap.Dealer.HoleHidden)
	require.Len(t, snap.Dealer.Cards, 2)
	assert.Equal(t, deck.Nine, snap.Dealer.Cards[0].Rank)
	assert.Equal(t, deck.Rank(0), snap.Dealer.Cards[1].Rank)
	assert.Equal(t, 9, snap.Dealer.Total)
	assert.Equal(t, []Action{ActionHit, ActionStand, ActionDouble, ActionSplit, ActionSurrender}, snap.Hands[0].Legal)

	// Mutating the snapshot does not reach the table.
	snap.Hands[0].Cards[0] = deck.Card{}
	h, err := tbl.Hand(id)
	require.NoError(t, err)
	assert.Equal(t, deck.Ten, h.Cards[0].Rank)

	summary, err := tbl.HandSummary(id)
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Total)
	assert.True(t, summary.Pair)
}

type recorder struct {
	rounds []RoundResult
	err    error
}

func (r *recorder) Record(res RoundResult) error {
	if r.err != nil {
		return r.err
	}
	r.rounds = append(r.rounds, res)
	return nil
}

func TestStartNextRoundRecordsHistory(t *testing.T) {
	rec := &recorder{err: errors.New("disk full")}
	clock := quartz.NewMock(t)
	ids := 0

	tbl, err := New(config.Default(),
		WithShoe(deck.NewStackedShoe(deck.MustParseCards("Th 9c 9d Tc Th 9c 9d Tc")...)),
		WithLogger(testLogger()),
		WithRecorder(rec),
		WithClock(clock),
		WithHistoryLimit(1),
		WithRoundIDs(func() string { ids++; return string(rune('a' + ids - 1)) }),
	)
	require.NoError(t, err)
	require.NoError(t, tbl.AddPlayer("alice", -1))
	assert.Equal(t, int64(1000), balance(t, tbl))
	assert.Equal(t, "a", tbl.RoundID())

	for round := 1; round <= 2; round++ {
		id := bet(t, tbl, 10)
		require.NoError(t, tbl.Deal())
		require.NoError(t, tbl.Stand(id))
		res := settle(t, tbl)
		assert.Equal(t, round, res.Round)
		assert.Equal(t, clock.Now(), res.SettledAt)

		if round == 1 {
			err := tbl.StartNextRound()
			require.Error(t, err)
			assert.Equal(t, Cleanup, tbl.Phase(), "failed record keeps the round open")
			rec.err = nil
		}
		require.NoError(t, tbl.StartNextRound())
		assert.Equal(t, Betting, tbl.Phase())
	}

	assert.Equal(t, 3, tbl.Round())
	require.Len(t, rec.rounds, 2)
	assert.Equal(t, "a", rec.rounds[0].ID)
	assert.Equal(t, "b", rec.rounds[1].ID)
	assert.Equal(t, ledger.Push, rec.rounds[1].Hands[0].Outcome)

	history := tbl.History()
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].Round)
	assert.Nil(t, tbl.Result())
}

func TestAddPlayer(t *testing.T) {
	tbl := stacked(t, "Th")
	assert.ErrorIs(t, tbl.AddPlayer("alice", 10), ledger.ErrDuplicateAccount)
	assert.Error(t, tbl.AddPlayer("", 10))
	require.NoError(t, tbl.AddPlayer("bob", 10))
	assert.Equal(t, []string{"alice", "bob"}, tbl.Players())
}

// TestChipsAreConserved plays many shuffled rounds with a simple policy and
// checks that every chip is accounted for.
func TestChipsAreConserved(t *testing.T) {
	rules := config.Default()
	rules.Decks = 1
	tbl, err := New(rules, WithRNG(randutil.New(7)), WithLogger(testLogger()), WithHistoryLimit(0))
	require.NoError(t, err)
	require.NoError(t, tbl.AddPlayer("alice", 100000))

	var net int64
	for range 500 {
		id := bet(t, tbl, 10)
		_, err := tbl.PlaceSideBet(id, sidebet.LuckyLucky, 1)
		require.NoError(t, err)
		require.NoError(t, tbl.Deal())

		if tbl.InsuranceOpen() {
			require.NoError(t, tbl.CloseInsurance())
		}
		for tbl.Phase() == PlayerTurn {
			active := tbl.ActiveHand()
			summary, err := tbl.HandSummary(active)
			require.NoError(t, err)
			if summary.Total < 17 {
				err = tbl.Hit(active)
			} else {
				err = tbl.Stand(active)
			}
			if errors.Is(err, deck.ErrShoeExhausted) {
				tbl.Reshuffle()
				continue
			}
			require.NoError(t, err)
		}
		for tbl.Phase() == DealerTurn {
			if err := tbl.AdvanceDealer(); errors.Is(err, deck.ErrShoeExhausted) {
				tbl.Reshuffle()
			} else {
				require.NoError(t, err)
			}
		}

		res := settle(t, tbl)
		net += res.Net["alice"]
		assert.Equal(t, res.Returned()-res.Wagered(), res.Net["alice"])
		require.NoError(t, tbl.StartNextRound())
	}

	assert.Equal(t, int64(100000)+net, balance(t, tbl))
	assert.Positive(t, tbl.Snapshot().Shoe.Reshuffles)
}
