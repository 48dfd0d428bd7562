// Package table runs blackjack rounds. A Table owns one shoe, one ledger and
// the state of the current round, and moves the round through betting,
// dealing, player turns, the dealer turn and settlement.
//
// A Table is synchronous and not safe for concurrent use. Embeddings that
// run many tables give each its own instance.
package table

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/hand"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/sidebet"
)

// MaxHands is the most primary bets a single round accepts
const MaxHands = 7

// Table is one blackjack table
type Table struct {
	rules     config.Rules
	logger    *log.Logger
	clock     quartz.Clock
	shoe      *deck.Shoe
	ledger    *ledger.Ledger
	evaluator *sidebet.Evaluator
	recorder  Recorder
	newID     func() string

	phase         Phase
	round         int
	roundID       string
	startedAt     time.Time
	hands         []*Hand
	nextHand      HandID
	active        int
	dealer        DealerHand
	insuranceOpen bool
	reshuffles    int
	result        *RoundResult

	history      []RoundResult
	historyLimit int
}

// New creates a table for the rules, validating them first. The table
// starts in the Betting phase of round 1.
func New(rules config.Rules, opts ...Option) (*Table, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	cfg := &tableConfig{historyLimit: DefaultHistoryLimit}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = log.New(io.Discard)
	}
	if cfg.clock == nil {
		cfg.clock = quartz.NewReal()
	}
	if cfg.idFunc == nil {
		cfg.idFunc = uuid.NewString
	}

	shoe := cfg.shoe
	if shoe == nil {
		rng := cfg.rng
		if rng == nil {
			rng, _ = randutil.NewFromTime()
		}
		var err error
		shoe, err = deck.NewShoe(rules.Decks, rules.Penetration, rng)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
		}
	}

	t := &Table{
		rules:        rules,
		logger:       cfg.logger.WithPrefix("table"),
		clock:        cfg.clock,
		shoe:         shoe,
		ledger:       ledger.New(rules.Limits, rules.BlackjackPayout),
		evaluator:    rules.Evaluator(),
		recorder:     cfg.recorder,
		newID:        cfg.idFunc,
		historyLimit: cfg.historyLimit,
		round:        1,
		active:       -1,
	}
	t.openRound()
	return t, nil
}

// Rules returns the rules the table was created with
func (t *Table) Rules() config.Rules {
	return t.rules
}

// AddPlayer opens an account for a player. A negative balance gives the
// player the rules' starting balance.
func (t *Table) AddPlayer(name string, balance int64) error {
	if name == "" {
		return fmt.Errorf("player name must not be empty")
	}
	if balance < 0 {
		balance = t.rules.StartingBalance
	}
	if err := t.ledger.Open(name, balance); err != nil {
		return err
	}
	t.logger.Debug("Player joined", "player", name, "balance", balance)
	return nil
}

// Balance returns a player's available balance
func (t *Table) Balance(player string) (int64, error) {
	return t.ledger.Balance(player)
}

// Players returns the player names in sorted order
func (t *Table) Players() []string {
	return t.ledger.Accounts()
}

// Phase returns the current phase
func (t *Table) Phase() Phase {
	return t.phase
}

// Round returns the current round number, starting at 1
func (t *Table) Round() int {
	return t.round
}

// RoundID returns the unique ID of the current round
func (t *Table) RoundID() string {
	return t.roundID
}

// ReshuffleDue reports whether the cut card has been reached
func (t *Table) ReshuffleDue() bool {
	return t.shoe.NeedsReshuffle()
}

// Reshuffle replaces the shoe. It is always allowed and is how a caller
// recovers from deck.ErrShoeExhausted before retrying the command.
func (t *Table) Reshuffle() {
	t.shoe.Reshuffle()
	t.reshuffles++
	t.logger.Info("Shoe reshuffled", "round", t.round, "cards", t.shoe.TotalCards())
}

// ActiveHand returns the hand receiving player actions, or 0 when none is
func (t *Table) ActiveHand() HandID {
	if h := t.current(); h != nil {
		return h.ID
	}
	return 0
}

// HandSummary evaluates one hand of the current round
func (t *Table) HandSummary(id HandID) (hand.Summary, error) {
	h, err := t.hand(id)
	if err != nil {
		return hand.Summary{}, err
	}
	return h.Summary(), nil
}

// Hand returns a copy of one hand of the current round
func (t *Table) Hand(id HandID) (Hand, error) {
	h, err := t.hand(id)
	if err != nil {
		return Hand{}, err
	}
	return h.clone(), nil
}

// Result returns the settled result of the current round, or nil before
// settlement
func (t *Table) Result() *RoundResult {
	if t.result == nil {
		return nil
	}
	r := t.result.clone()
	return &r
}

// History returns the completed rounds kept in memory, oldest first
func (t *Table) History() []RoundResult {
	out := make([]RoundResult, len(t.history))
	for i := range t.history {
		out[i] = t.history[i].clone()
	}
	return out
}

func (t *Table) hand(id HandID) (*Hand, error) {
	for _, h := range t.hands {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, unknownHand(id)
}

func (t *Table) current() *Hand {
	if t.phase != PlayerTurn || t.insuranceOpen || t.active < 0 || t.active >= len(t.hands) {
		return nil
	}
	return t.hands[t.active]
}

func (t *Table) setPhase(p Phase) {
	if p == t.phase {
		return
	}
	t.logger.Debug("Phase change", "round", t.round, "from", t.phase, "to", p)
	t.phase = p
}

// openRound prepares a fresh Betting phase, reshuffling first when the cut
// card has been reached.
func (t *Table) openRound() {
	if t.shoe.NeedsReshuffle() {
		t.Reshuffle()
	}
	t.roundID = t.newID()
	t.hands = nil
	t.nextHand = 1
	t.active = -1
	t.dealer = DealerHand{}
	t.insuranceOpen = false
	t.result = nil
	t.startedAt = time.Time{}
	t.phase = Betting
	t.logger.Debug("Round open", "round", t.round, "id", t.roundID)
}

// splits counts the splits made from the hand that holds the original bet
func (t *Table) splits(root HandID) int {
	n := -1
	for _, h := range t.hands {
		if h.Lineage == root {
			n++
		}
	}
	return n
}

func (t *Table) indexOf(id HandID) int {
	return slices.IndexFunc(t.hands, func(h *Hand) bool { return h.ID == id })
}
