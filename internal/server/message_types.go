package server

// MessageType names a WebSocket message
type MessageType string

// WebSocket message type constants
const (
	// Client to server: commands
	MessageTypeJoin           MessageType = "join"
	MessageTypeBet            MessageType = "bet"
	MessageTypeSideBet        MessageType = "side_bet"
	MessageTypeClearBets      MessageType = "clear_bets"
	MessageTypeDeal           MessageType = "deal"
	MessageTypeHit            MessageType = "hit"
	MessageTypeStand          MessageType = "stand"
	MessageTypeDouble         MessageType = "double"
	MessageTypeSplit          MessageType = "split"
	MessageTypeSurrender      MessageType = "surrender"
	MessageTypeInsurance      MessageType = "insurance"
	MessageTypeCloseInsurance MessageType = "close_insurance"
	MessageTypeDealer         MessageType = "dealer"
	MessageTypeDealerStep     MessageType = "dealer_step"
	MessageTypeSettle         MessageType = "settle"
	MessageTypeNextRound      MessageType = "next_round"
	MessageTypeReshuffle      MessageType = "reshuffle"

	// Client to server: queries
	MessageTypeSnapshot MessageType = "snapshot"
	MessageTypeLegal    MessageType = "legal"
	MessageTypeHistory  MessageType = "history"

	// Server to client
	MessageTypeWelcome MessageType = "welcome"
	MessageTypeState   MessageType = "state"
	MessageTypeError   MessageType = "error"
	MessageTypeClosing MessageType = "closing"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Error codes sent in ErrorData
const (
	CodeIllegalAction       = "illegal_action"
	CodeInvalidBetAmount    = "invalid_bet_amount"
	CodeInsufficientBalance = "insufficient_balance"
	CodeShoeExhausted       = "shoe_exhausted"
	CodeUnknownHand         = "unknown_hand"
	CodeAlreadySettled      = "already_settled"
	CodeBadRequest          = "bad_request"
	CodeInternal            = "internal_error"
)
