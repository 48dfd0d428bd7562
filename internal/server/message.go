package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/table"
)

// Message is the envelope for every WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a message stamped with now
func NewMessage(messageType MessageType, data any, now time.Time) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: now,
	}, nil
}

// Client → Server Messages

type JoinData struct {
	Player  string `json:"player"`
	Balance int64  `json:"balance,omitempty"`
}

type BetData struct {
	Player string `json:"player"`
	Amount int64  `json:"amount"`
}

type SideBetData struct {
	Hand   table.HandID `json:"hand"`
	Kind   string       `json:"kind"`
	Amount int64        `json:"amount"`
}

// HandData addresses a single hand; Amount is only used by insurance
type HandData struct {
	Hand   table.HandID `json:"hand"`
	Amount int64        `json:"amount,omitempty"`
}

type HistoryData struct {
	Limit int `json:"limit,omitempty"`
}

// Server → Client Messages

type WelcomeData struct {
	Session  string         `json:"session"`
	Rules    config.Rules   `json:"rules"`
	Snapshot table.Snapshot `json:"snapshot"`
}

// StateData answers every successful command with the new table state.
// Only the field matching the command is set alongside the snapshot.
type StateData struct {
	Command  MessageType         `json:"command"`
	Hand     table.HandID        `json:"hand,omitempty"`
	Bet      ledger.BetID        `json:"bet,omitempty"`
	Done     *bool               `json:"done,omitempty"`
	Legal    []table.Action      `json:"legal,omitempty"`
	Result   *table.RoundResult  `json:"result,omitempty"`
	History  []table.RoundResult `json:"history,omitempty"`
	Snapshot table.Snapshot      `json:"snapshot"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ClosingData struct {
	Reason string `json:"reason"`
}

// errBadRequest marks malformed client input
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// errorCode maps engine errors onto wire codes. Insufficient balance is
// checked before illegal action because a refused double carries both.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, table.ErrIllegalAction):
		return CodeIllegalAction
	case errors.Is(err, ledger.ErrInvalidBetAmount):
		return CodeInvalidBetAmount
	case errors.Is(err, deck.ErrShoeExhausted):
		return CodeShoeExhausted
	case errors.Is(err, table.ErrUnknownHand):
		return CodeUnknownHand
	case errors.Is(err, ledger.ErrAlreadySettled):
		return CodeAlreadySettled
	case errors.Is(err, errBadRequest),
		errors.Is(err, ledger.ErrUnknownAccount),
		errors.Is(err, ledger.ErrDuplicateAccount):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}
