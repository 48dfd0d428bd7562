package server

import (
	"encoding/json"
	"sync"

	"github.com/lox/blackjack/internal/sidebet"
	"github.com/lox/blackjack/internal/table"
)

// Session is one client's private table. Commands are applied one at a
// time in arrival order.
type Session struct {
	ID    string
	mu    sync.Mutex
	table *table.Table
}

func decode[T any](msg *Message) (T, error) {
	var v T
	if len(msg.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return v, badRequest("invalid %s data: %v", msg.Type, err)
	}
	return v, nil
}

// Handle applies one client message to the table. It returns the state to
// send back, or the error that prevented the command. A failed command
// leaves the table unchanged.
func (s *Session) Handle(msg *Message) (*StateData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table
	out := &StateData{Command: msg.Type}

	var err error
	switch msg.Type {
	case MessageTypeJoin:
		var d JoinData
		if d, err = decode[JoinData](msg); err == nil {
			if d.Player == "" {
				return nil, badRequest("player name required")
			}
			balance := d.Balance
			if balance <= 0 {
				balance = -1
			}
			err = t.AddPlayer(d.Player, balance)
		}

	case MessageTypeBet:
		var d BetData
		if d, err = decode[BetData](msg); err == nil {
			out.Hand, err = t.PlaceBet(d.Player, d.Amount)
		}

	case MessageTypeSideBet:
		var d SideBetData
		if d, err = decode[SideBetData](msg); err == nil {
			kind, perr := sidebet.ParseKind(d.Kind)
			if perr != nil {
				return nil, badRequest("%v", perr)
			}
			out.Hand = d.Hand
			out.Bet, err = t.PlaceSideBet(d.Hand, kind, d.Amount)
		}

	case MessageTypeClearBets:
		err = t.ClearBets()

	case MessageTypeDeal:
		err = t.Deal()

	case MessageTypeHit, MessageTypeStand, MessageTypeDouble, MessageTypeSplit, MessageTypeSurrender:
		var d HandData
		if d, err = decode[HandData](msg); err == nil {
			out.Hand, err = s.play(msg.Type, d.Hand)
		}

	case MessageTypeInsurance:
		var d HandData
		if d, err = decode[HandData](msg); err == nil {
			out.Hand = d.Hand
			err = t.TakeInsurance(d.Hand, d.Amount)
		}

	case MessageTypeCloseInsurance:
		err = t.CloseInsurance()

	case MessageTypeDealer:
		err = t.AdvanceDealer()

	case MessageTypeDealerStep:
		var done bool
		done, err = t.DealerStep()
		out.Done = &done

	case MessageTypeSettle:
		out.Result, err = t.Settle()

	case MessageTypeNextRound:
		err = t.StartNextRound()

	case MessageTypeReshuffle:
		t.Reshuffle()

	case MessageTypeSnapshot:

	case MessageTypeLegal:
		var d HandData
		if d, err = decode[HandData](msg); err == nil {
			if _, err = t.Hand(d.Hand); err == nil {
				out.Hand = d.Hand
				out.Legal = t.LegalActions(d.Hand)
				if out.Legal == nil {
					out.Legal = []table.Action{}
				}
			}
		}

	case MessageTypeHistory:
		var d HistoryData
		if d, err = decode[HistoryData](msg); err == nil {
			out.History = t.History()
			if d.Limit > 0 && len(out.History) > d.Limit {
				out.History = out.History[len(out.History)-d.Limit:]
			}
		}

	default:
		return nil, badRequest("unknown message type: %s", msg.Type)
	}

	if err != nil {
		return nil, err
	}
	out.Snapshot = t.Snapshot()
	return out, nil
}

// play runs a player action. Split reports the new hand's ID.
func (s *Session) play(kind MessageType, id table.HandID) (table.HandID, error) {
	t := s.table
	switch kind {
	case MessageTypeHit:
		return id, t.Hit(id)
	case MessageTypeStand:
		return id, t.Stand(id)
	case MessageTypeDouble:
		return id, t.Double(id)
	case MessageTypeSplit:
		return t.Split(id)
	default:
		return id, t.Surrender(id)
	}
}

// Snapshot returns the table state
func (s *Session) Snapshot() table.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Snapshot()
}
