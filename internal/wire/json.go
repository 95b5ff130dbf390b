package wire

import (
	"encoding/json"
	"fmt"
)

// jsonEnvelope is the superset of fields any request or response frame
// may carry; unused fields are omitted on encode and ignored on decode.
type jsonEnvelope struct {
	Type      string   `json:"type"`
	Username  string   `json:"username,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	Symbol    string   `json:"symbol,omitempty"`
	Side      string   `json:"side,omitempty"`
	Price     float64  `json:"price,omitempty"`
	Quantity  uint32   `json:"quantity,omitempty"`
	OrderID   *uint64  `json:"order_id,omitempty"`
	Status    string   `json:"status,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// JSONCodec reads and writes the text framing: one JSON object per
// message, newline-delimited on the wire.
type JSONCodec struct{}

// DecodeRequest parses a single join or new_order request object.
func (JSONCodec) DecodeRequest(data []byte) (DecodedMessage, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return DecodedMessage{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch env.Type {
	case "join":
		return DecodedMessage{
			Type: MessageJoin,
			Join: &JoinMessage{
				Username:  env.Username,
				SessionID: orDefault(env.SessionID, DefaultSessionID),
			},
		}, nil
	case "new_order":
		side := SideBuy
		if env.Side == "sell" {
			side = SideSell
		}
		var orderID uint64
		if env.OrderID != nil {
			orderID = *env.OrderID
		}
		return DecodedMessage{
			Type: MessageNewOrder,
			NewOrder: &NewOrderMessage{
				OrderID:   orderID,
				Side:      side,
				Price:     env.Price,
				Quantity:  env.Quantity,
				Symbol:    orDefault(env.Symbol, DefaultSymbol),
				SessionID: orDefault(env.SessionID, DefaultSessionID),
			},
		}, nil
	default:
		return DecodedMessage{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
}

// Response is a generic JSON reply: success/error plus whichever
// identifying fields the caller wants to echo back.
type Response struct {
	Status    string  `json:"status"`
	Message   string  `json:"message,omitempty"`
	OrderID   *uint64 `json:"order_id,omitempty"`
	SessionID string  `json:"session_id,omitempty"`
	Username  string  `json:"username,omitempty"`
}

// EncodeResponse serialises r as a single JSON line (caller appends the
// delimiter).
func (JSONCodec) EncodeResponse(r Response) ([]byte, error) {
	return json.Marshal(r)
}
