// Package ledger records wagers and player balances for one table and pays
// them out. Balances are debited when a wager is placed and credited with
// the full return (stake included) when it settles.
package ledger

import (
	"fmt"
	"slices"

	"github.com/lox/blackjack/internal/sidebet"
)

// Ledger owns the accounts and wagers of a single table. It is not safe for
// concurrent use; the table that owns it serialises access.
type Ledger struct {
	limits    Limits
	blackjack Ratio

	accounts map[string]int64
	bets     map[BetID]*Bet
	sides    map[BetID]*SideBet
	order    []BetID
	nextID   BetID
}

// New creates an empty ledger with the given limits and blackjack payout
func New(limits Limits, blackjack Ratio) *Ledger {
	return &Ledger{
		limits:    limits,
		blackjack: blackjack,
		accounts:  make(map[string]int64),
		bets:      make(map[BetID]*Bet),
		sides:     make(map[BetID]*SideBet),
		nextID:    1,
	}
}

// Limits returns the table limits
func (l *Ledger) Limits() Limits {
	return l.limits
}

// Open creates an account with a starting balance
func (l *Ledger) Open(owner string, balance int64) error {
	if _, ok := l.accounts[owner]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAccount, owner)
	}
	if balance < 0 {
		return fmt.Errorf("%w: negative opening balance %d", ErrInvalidBetAmount, balance)
	}
	l.accounts[owner] = balance
	return nil
}

// Balance returns the owner's available balance
func (l *Ledger) Balance(owner string) (int64, error) {
	bal, ok := l.accounts[owner]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, owner)
	}
	return bal, nil
}

// Accounts returns the account names in sorted order
func (l *Ledger) Accounts() []string {
	names := make([]string, 0, len(l.accounts))
	for name := range l.accounts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CanAfford reports whether owner holds at least amount
func (l *Ledger) CanAfford(owner string, amount int64) bool {
	bal, ok := l.accounts[owner]
	return ok && bal >= amount
}

func (l *Ledger) debit(owner string, amount int64) error {
	bal, ok := l.accounts[owner]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, owner)
	}
	if bal < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, owner, bal, amount)
	}
	l.accounts[owner] = bal - amount
	return nil
}

func (l *Ledger) credit(owner string, amount int64) {
	l.accounts[owner] += amount
}

func (l *Ledger) allocate() BetID {
	id := l.nextID
	l.nextID++
	l.order = append(l.order, id)
	return id
}

func checkLimits(amount, lo, hi int64) error {
	if amount < lo || amount <= 0 {
		return fmt.Errorf("%w: %d < %d", ErrBetBelowMinimum, amount, lo)
	}
	if hi > 0 && amount > hi {
		return fmt.Errorf("%w: %d > %d", ErrBetAboveMaximum, amount, hi)
	}
	return nil
}

// Place records a primary bet for a hand after checking table limits and
// the owner's balance.
func (l *Ledger) Place(owner string, hand int, amount int64) (BetID, error) {
	if err := checkLimits(amount, l.limits.MinBet, l.limits.MaxBet); err != nil {
		return 0, err
	}
	if err := l.debit(owner, amount); err != nil {
		return 0, err
	}
	id := l.allocate()
	l.bets[id] = &Bet{ID: id, Owner: owner, Hand: hand, Amount: amount, Status: Pending}
	return id, nil
}

// PlaceSide records a side bet against the side-bet limits. Insurance has
// its own cap and goes through PlaceInsurance.
func (l *Ledger) PlaceSide(owner string, hand int, kind sidebet.Kind, amount int64) (BetID, error) {
	if kind == sidebet.Insurance {
		return 0, fmt.Errorf("%w: insurance is placed with PlaceInsurance", ErrInvalidBetAmount)
	}
	if err := checkLimits(amount, l.limits.MinSideBet, l.limits.MaxSideBet); err != nil {
		return 0, err
	}
	return l.placeSide(owner, hand, kind, amount)
}

// PlaceInsurance records an insurance wager of at most maxAmount
func (l *Ledger) PlaceInsurance(owner string, hand int, amount, maxAmount int64) (BetID, error) {
	if err := checkLimits(amount, 1, maxAmount); err != nil {
		return 0, err
	}
	return l.placeSide(owner, hand, sidebet.Insurance, amount)
}

func (l *Ledger) placeSide(owner string, hand int, kind sidebet.Kind, amount int64) (BetID, error) {
	if err := l.debit(owner, amount); err != nil {
		return 0, err
	}
	id := l.allocate()
	l.sides[id] = &SideBet{ID: id, Owner: owner, Hand: hand, Kind: kind, Amount: amount, Status: Pending}
	return id, nil
}

func (l *Ledger) pendingBet(id BetID) (*Bet, error) {
	b, ok := l.bets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBet, id)
	}
	if b.Settled() {
		return nil, fmt.Errorf("%w: %d", ErrAlreadySettled, id)
	}
	return b, nil
}

// Double doubles the stake of a pending bet, debiting the owner again
func (l *Ledger) Double(id BetID) error {
	b, err := l.pendingBet(id)
	if err != nil {
		return err
	}
	if err := l.debit(b.Owner, b.Amount); err != nil {
		return err
	}
	b.Amount *= 2
	return nil
}

// Split opens a new bet equal to the original for the hand split off it
func (l *Ledger) Split(id BetID, newHand int) (BetID, error) {
	b, err := l.pendingBet(id)
	if err != nil {
		return 0, err
	}
	if err := l.debit(b.Owner, b.Amount); err != nil {
		return 0, err
	}
	nid := l.allocate()
	l.bets[nid] = &Bet{ID: nid, Owner: b.Owner, Hand: newHand, Amount: b.Amount, Status: Pending}
	return nid, nil
}

// Payout is the total returned on a bet of amount for the outcome
func Payout(amount int64, outcome Outcome, blackjack Ratio) int64 {
	switch outcome {
	case Win:
		return amount * 2
	case BlackjackWin:
		return amount + blackjack.Of(amount)
	case Push:
		return amount
	case Surrender:
		return amount / 2
	default:
		return 0
	}
}

// Settle resolves a primary bet exactly once and credits the payout
func (l *Ledger) Settle(id BetID, outcome Outcome) (int64, error) {
	b, err := l.pendingBet(id)
	if err != nil {
		return 0, err
	}
	payout := Payout(b.Amount, outcome, l.blackjack)
	b.Outcome = outcome
	b.Status = statusFor(outcome)
	b.Payout = payout
	l.credit(b.Owner, payout)
	return payout, nil
}

// SettleSide resolves a side bet from its evaluation result
func (l *Ledger) SettleSide(id BetID, res sidebet.Result) (int64, error) {
	s, ok := l.sides[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownBet, id)
	}
	if s.Settled() {
		return 0, fmt.Errorf("%w: %d", ErrAlreadySettled, id)
	}
	if res.Kind != s.Kind {
		return 0, fmt.Errorf("side bet %d is %s, result is for %s", id, s.Kind, res.Kind)
	}
	payout := res.Payout(s.Amount)
	s.Label = res.Label
	s.Payout = payout
	if res.Won {
		s.Status = Won
		s.Multiplier = res.Multiplier
	} else {
		s.Status = Lost
	}
	l.credit(s.Owner, payout)
	return payout, nil
}

// Refund returns the stake of a pending wager of either kind
func (l *Ledger) Refund(id BetID) error {
	if b, ok := l.bets[id]; ok {
		if b.Settled() {
			return fmt.Errorf("%w: %d", ErrAlreadySettled, id)
		}
		b.Status = Refunded
		b.Payout = b.Amount
		l.credit(b.Owner, b.Amount)
		return nil
	}
	if s, ok := l.sides[id]; ok {
		if s.Settled() {
			return fmt.Errorf("%w: %d", ErrAlreadySettled, id)
		}
		s.Status = Refunded
		s.Payout = s.Amount
		l.credit(s.Owner, s.Amount)
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownBet, id)
}

// Bet returns a copy of a primary bet
func (l *Ledger) Bet(id BetID) (Bet, error) {
	b, ok := l.bets[id]
	if !ok {
		return Bet{}, fmt.Errorf("%w: %d", ErrUnknownBet, id)
	}
	return *b, nil
}

// SideBet returns a copy of a side bet
func (l *Ledger) SideBet(id BetID) (SideBet, error) {
	s, ok := l.sides[id]
	if !ok {
		return SideBet{}, fmt.Errorf("%w: %d", ErrUnknownBet, id)
	}
	return *s, nil
}

// Bets returns copies of all primary bets in placement order
func (l *Ledger) Bets() []Bet {
	out := []Bet{}
	for _, id := range l.order {
		if b, ok := l.bets[id]; ok {
			out = append(out, *b)
		}
	}
	return out
}

// SideBets returns copies of all side bets in placement order
func (l *Ledger) SideBets() []SideBet {
	out := []SideBet{}
	for _, id := range l.order {
		if s, ok := l.sides[id]; ok {
			out = append(out, *s)
		}
	}
	return out
}

// Pending counts wagers of either kind that are not yet resolved
func (l *Ledger) Pending() int {
	n := 0
	for _, b := range l.bets {
		if !b.Settled() {
			n++
		}
	}
	for _, s := range l.sides {
		if !s.Settled() {
			n++
		}
	}
	return n
}

// Reset refunds anything still pending and forgets every wager. Balances
// are kept.
func (l *Ledger) Reset() {
	for _, id := range l.order {
		if b, ok := l.bets[id]; ok && !b.Settled() {
			l.credit(b.Owner, b.Amount)
		}
		if s, ok := l.sides[id]; ok && !s.Settled() {
			l.credit(s.Owner, s.Amount)
		}
	}
	clear(l.bets)
	clear(l.sides)
	l.order = l.order[:0]
}
