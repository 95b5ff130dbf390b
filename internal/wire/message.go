// Package wire implements the two framings the trading protocol speaks
// on the same TCP port: a fixed-layout binary format and a line-oriented
// JSON format, one of which is chosen when the server starts. Both are
// exposed through Codec so the connection read loop never has to know
// which one is in use.
package wire

// MessageType identifies the payload that follows a binary header, and
// doubles as the "type" discriminant of a decoded message regardless of
// which framing produced it.
type MessageType uint8

const (
	MessageJoin       MessageType = 1
	MessageNewOrder   MessageType = 2
	MessageOrderAck   MessageType = 3
	MessageTrade      MessageType = 4
	MessageMarketData MessageType = 5
)

func (t MessageType) String() string {
	switch t {
	case MessageJoin:
		return "join"
	case MessageNewOrder:
		return "new_order"
	case MessageOrderAck:
		return "order_ack"
	case MessageTrade:
		return "trade"
	case MessageMarketData:
		return "market_data"
	default:
		return "unknown"
	}
}

// Side mirrors the wire encoding of a buy/sell side: 0 = buy, 1 = sell.
type Side uint8

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

// DefaultSessionID is the session_id a join or new_order message is
// assigned when the field is absent (JSON framing) or empty after
// trimming NUL padding (binary framing).
const DefaultSessionID = "default"

// DefaultSymbol is the symbol a new_order message is assigned when the
// field is absent or empty.
const DefaultSymbol = "STOCK"

// JoinMessage requests that a connection join a session under a
// username.
type JoinMessage struct {
	SeqNum    uint32
	Username  string
	SessionID string
}

// NewOrderMessage submits a limit order.
type NewOrderMessage struct {
	SeqNum    uint32
	OrderID   uint64
	Side      Side
	Price     float64
	Quantity  uint32
	Symbol    string
	SessionID string
}

// OrderAckMessage reports the outcome of a JoinMessage or
// NewOrderMessage.
type OrderAckMessage struct {
	SeqNum  uint32
	OrderID uint64
	Success bool
	Message string
}

// TradeMessage reports one executed fill. Neither framing's documented
// payload table defines a wire shape for it (binary lists only
// JOIN/NEW_ORDER/MARKET_DATA/ORDER_ACK; JSON's responses carry only
// order_id/status/message), so it stays unencoded for now — a per-fill
// price and quantity is reserved here for a future trade feed rather
// than invented into either framing's response shape.
type TradeMessage struct {
	SeqNum   uint32
	OrderID  uint64
	Price    float64
	Quantity uint32
	Symbol   string
}

// MarketDataMessage is a top-of-book snapshot published by the
// market-data emitter.
type MarketDataMessage struct {
	SeqNum    uint32
	Symbol    string
	BestBid   float64
	BestAsk   float64
	BidSize   uint32
	AskSize   uint32
	Timestamp uint64
}
