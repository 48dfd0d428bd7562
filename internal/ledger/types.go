package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/blackjack/internal/sidebet"
)

var (
	// ErrInvalidBetAmount is the parent of the table-limit errors
	ErrInvalidBetAmount    = errors.New("invalid bet amount")
	ErrBetBelowMinimum     = fmt.Errorf("%w: below table minimum", ErrInvalidBetAmount)
	ErrBetAboveMaximum     = fmt.Errorf("%w: above table maximum", ErrInvalidBetAmount)
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownBet          = errors.New("unknown bet")
	ErrUnknownAccount      = errors.New("unknown account")
	ErrDuplicateAccount    = errors.New("account already exists")
	ErrAlreadySettled      = errors.New("bet already settled")
)

// BetID identifies a wager in the ledger
type BetID int

// Outcome is the result of a primary bet
type Outcome int

const (
	Win Outcome = iota
	BlackjackWin
	Push
	Loss
	Surrender
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case BlackjackWin:
		return "blackjack"
	case Push:
		return "push"
	case Loss:
		return "loss"
	case Surrender:
		return "surrender"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (o *Outcome) UnmarshalText(b []byte) error {
	for c := Win; c <= Surrender; c++ {
		if c.String() == string(b) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// Status is the lifecycle state of a wager
type Status int

const (
	Pending Status = iota
	Won
	Lost
	Pushed
	Surrendered
	Refunded
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Pushed:
		return "push"
	case Surrendered:
		return "surrendered"
	case Refunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(b []byte) error {
	for c := Pending; c <= Refunded; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown bet status %q", b)
}

func statusFor(o Outcome) Status {
	switch o {
	case Win, BlackjackWin:
		return Won
	case Push:
		return Pushed
	case Surrender:
		return Surrendered
	default:
		return Lost
	}
}

// Ratio is an exact payout ratio such as 3:2
type Ratio struct {
	Num int64
	Den int64
}

// Common blackjack payout ratios
var (
	ThreeToTwo = Ratio{Num: 3, Den: 2}
	SixToFive  = Ratio{Num: 6, Den: 5}
)

// Of returns amount×ratio rounded down to the chip
func (r Ratio) Of(amount int64) int64 {
	return amount * r.Num / r.Den
}

// Float returns the ratio as a decimal (1.5 for 3:2)
func (r Ratio) Float() float64 {
	return float64(r.Num) / float64(r.Den)
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d:%d", r.Num, r.Den)
}

// MarshalText implements encoding.TextMarshaler
func (r Ratio) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Ratio) UnmarshalText(b []byte) error {
	parsed, err := ParseRatio(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRatio accepts "3:2", "6:5", "1.5" or "1.2"
func ParseRatio(s string) (Ratio, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, ":"); ok {
		n, err1 := strconv.ParseInt(num, 10, 64)
		d, err2 := strconv.ParseInt(den, 10, 64)
		if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
			return Ratio{}, fmt.Errorf("invalid payout ratio %q", s)
		}
		return Ratio{Num: n, Den: d}, nil
	}
	switch s {
	case "1.5":
		return ThreeToTwo, nil
	case "1.2":
		return SixToFive, nil
	}
	return Ratio{}, fmt.Errorf("invalid payout ratio %q", s)
}

// Limits are the table minimums and maximums
type Limits struct {
	MinBet     int64 `json:"min_bet"`
	MaxBet     int64 `json:"max_bet"`
	MinSideBet int64 `json:"min_side_bet"`
	MaxSideBet int64 `json:"max_side_bet"`
}

// Bet is a primary wager on one hand
type Bet struct {
	ID      BetID   `json:"id"`
	Owner   string  `json:"owner"`
	Hand    int     `json:"hand"`
	Amount  int64   `json:"amount"`
	Status  Status  `json:"status"`
	Outcome Outcome `json:"outcome"`
	Payout  int64   `json:"payout"`
}

// Settled reports whether the bet has been resolved
func (b Bet) Settled() bool {
	return b.Status != Pending
}

// SideBet is an auxiliary wager. Label and Multiplier record the combination
// that was paid, if any.
type SideBet struct {
	ID         BetID        `json:"id"`
	Owner      string       `json:"owner"`
	Hand       int          `json:"hand"`
	Kind       sidebet.Kind `json:"kind"`
	Amount     int64        `json:"amount"`
	Status     Status       `json:"status"`
	Label      string       `json:"label,omitempty"`
	Multiplier float64      `json:"multiplier,omitempty"`
	Payout     int64        `json:"payout"`
}

// Settled reports whether the side bet has been resolved
func (s SideBet) Settled() bool {
	return s.Status != Pending
}
