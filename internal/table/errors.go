package table

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalAction is matched by every *IllegalActionError
	ErrIllegalAction = errors.New("illegal action")
	ErrUnknownHand   = errors.New("unknown hand")
)

// IllegalActionError reports a command issued outside its legal phase or
// hand state. Rule names the violated rule. Cause, when set, is the
// underlying error kind (an insufficient balance, for example).
type IllegalActionError struct {
	Action Action
	Hand   HandID
	Rule   string
	Cause  error
}

func (e *IllegalActionError) Error() string {
	if e.Hand != 0 {
		return fmt.Sprintf("illegal %s on hand %d: %s", e.Action, e.Hand, e.Rule)
	}
	return fmt.Sprintf("illegal %s: %s", e.Action, e.Rule)
}

// Is matches ErrIllegalAction
func (e *IllegalActionError) Is(target error) bool {
	return target == ErrIllegalAction
}

func (e *IllegalActionError) Unwrap() error {
	return e.Cause
}

func illegal(action Action, id HandID, rule string) *IllegalActionError {
	return &IllegalActionError{Action: action, Hand: id, Rule: rule}
}

func unknownHand(id HandID) error {
	return fmt.Errorf("%w: %d", ErrUnknownHand, id)
}
