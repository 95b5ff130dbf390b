package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the width of the fixed header preceding every binary
// payload: type (u8) + length (u16) + seq_num (u32).
const HeaderSize = 1 + 2 + 4

const (
	usernameFieldLen  = 32
	sessionIDFieldLen = 32
	symbolFieldLen    = 8
	ackMessageFieldLen = 256
)

// ErrDecode is returned for a truncated or otherwise malformed binary
// frame.
var ErrDecode = errors.New("wire: malformed frame")

// ErrUnknownMessageType is returned when a header names a type this
// codec does not know how to decode a payload for.
var ErrUnknownMessageType = errors.New("wire: unknown message type")

// BinaryCodec reads and writes the fixed-layout binary framing: a
// packed HeaderSize-byte (7-byte) header of type, length and seq_num,
// always big-endian so no host-endianness branch is needed, followed by
// a fixed-size payload whose shape depends on the header's type byte.
//
// Double values are encoded by reinterpreting the IEEE-754 bit pattern
// as a uint64 and writing it big-endian, mirroring original_source's
// htonDouble/ntohDouble.
type BinaryCodec struct{}

// DecodedMessage is the result of decoding one binary frame: Type names
// which of the typed fields below is populated.
type DecodedMessage struct {
	Type       MessageType
	Join       *JoinMessage
	NewOrder   *NewOrderMessage
	OrderAck   *OrderAckMessage
	Trade      *TradeMessage
	MarketData *MarketDataMessage
}

// decodeFrame reads one frame (header + payload) from buf, assuming buf
// already holds a complete frame, and returns the decoded message plus
// the number of bytes consumed. Codec.Decode (codec.go) checks
// completeness first and delegates here.
func (BinaryCodec) decodeFrame(buf []byte) (DecodedMessage, int, error) {
	if len(buf) < HeaderSize {
		return DecodedMessage{}, 0, ErrDecode
	}

	typ := MessageType(buf[0])
	length := binary.BigEndian.Uint16(buf[1:3])
	seqNum := binary.BigEndian.Uint32(buf[3:7])

	total := HeaderSize + int(length)
	if len(buf) < total {
		return DecodedMessage{}, 0, ErrDecode
	}
	payload := buf[HeaderSize:total]

	switch typ {
	case MessageJoin:
		m, err := decodeJoin(seqNum, payload)
		if err != nil {
			return DecodedMessage{}, 0, err
		}
		return DecodedMessage{Type: typ, Join: m}, total, nil
	case MessageNewOrder:
		m, err := decodeNewOrder(seqNum, payload)
		if err != nil {
			return DecodedMessage{}, 0, err
		}
		return DecodedMessage{Type: typ, NewOrder: m}, total, nil
	case MessageOrderAck:
		m, err := decodeOrderAck(seqNum, payload)
		if err != nil {
			return DecodedMessage{}, 0, err
		}
		return DecodedMessage{Type: typ, OrderAck: m}, total, nil
	case MessageMarketData:
		m, err := decodeMarketData(seqNum, payload)
		if err != nil {
			return DecodedMessage{}, 0, err
		}
		return DecodedMessage{Type: typ, MarketData: m}, total, nil
	default:
		return DecodedMessage{}, 0, fmt.Errorf("%w: %d", ErrUnknownMessageType, typ)
	}
}

func decodeJoin(seqNum uint32, payload []byte) (*JoinMessage, error) {
	if len(payload) < usernameFieldLen+sessionIDFieldLen {
		return nil, ErrDecode
	}
	return &JoinMessage{
		SeqNum:    seqNum,
		Username:  decodeFixedString(payload[0:usernameFieldLen]),
		SessionID: orDefault(decodeFixedString(payload[usernameFieldLen:usernameFieldLen+sessionIDFieldLen]), DefaultSessionID),
	}, nil
}

func decodeNewOrder(seqNum uint32, payload []byte) (*NewOrderMessage, error) {
	const fixedLen = 8 + 1 + 8 + 4 + symbolFieldLen + sessionIDFieldLen
	if len(payload) < fixedLen {
		return nil, ErrDecode
	}
	off := 0
	orderID := binary.BigEndian.Uint64(payload[off : off+8])
	off += 8
	side := Side(payload[off])
	off++
	price := decodeFloat64(payload[off : off+8])
	off += 8
	quantity := binary.BigEndian.Uint32(payload[off : off+4])
	off += 4
	symbol := orDefault(decodeFixedString(payload[off:off+symbolFieldLen]), DefaultSymbol)
	off += symbolFieldLen
	sessionID := orDefault(decodeFixedString(payload[off:off+sessionIDFieldLen]), DefaultSessionID)

	return &NewOrderMessage{
		SeqNum:    seqNum,
		OrderID:   orderID,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Symbol:    symbol,
		SessionID: sessionID,
	}, nil
}

func decodeOrderAck(seqNum uint32, payload []byte) (*OrderAckMessage, error) {
	const fixedLen = 8 + 1 + ackMessageFieldLen
	if len(payload) < fixedLen {
		return nil, ErrDecode
	}
	off := 0
	orderID := binary.BigEndian.Uint64(payload[off : off+8])
	off += 8
	success := payload[off] != 0
	off++
	message := decodeFixedString(payload[off : off+ackMessageFieldLen])

	return &OrderAckMessage{
		SeqNum:  seqNum,
		OrderID: orderID,
		Success: success,
		Message: message,
	}, nil
}

func decodeMarketData(seqNum uint32, payload []byte) (*MarketDataMessage, error) {
	const fixedLen = symbolFieldLen + 8 + 8 + 4 + 4 + 8
	if len(payload) < fixedLen {
		return nil, ErrDecode
	}
	off := 0
	symbol := decodeFixedString(payload[off : off+symbolFieldLen])
	off += symbolFieldLen
	bestBid := decodeFloat64(payload[off : off+8])
	off += 8
	bestAsk := decodeFloat64(payload[off : off+8])
	off += 8
	bidSize := binary.BigEndian.Uint32(payload[off : off+4])
	off += 4
	askSize := binary.BigEndian.Uint32(payload[off : off+4])
	off += 4
	timestamp := binary.BigEndian.Uint64(payload[off : off+8])

	return &MarketDataMessage{
		SeqNum:    seqNum,
		Symbol:    symbol,
		BestBid:   bestBid,
		BestAsk:   bestAsk,
		BidSize:   bidSize,
		AskSize:   askSize,
		Timestamp: timestamp,
	}, nil
}

// EncodeJoin serialises a join request.
func (BinaryCodec) EncodeJoin(m JoinMessage) []byte {
	payload := make([]byte, usernameFieldLen+sessionIDFieldLen)
	encodeFixedString(payload[0:usernameFieldLen], m.Username)
	encodeFixedString(payload[usernameFieldLen:usernameFieldLen+sessionIDFieldLen], m.SessionID)
	return withHeader(MessageJoin, m.SeqNum, payload)
}

// EncodeNewOrder serialises a new-order request.
func (BinaryCodec) EncodeNewOrder(m NewOrderMessage) []byte {
	payload := make([]byte, 8+1+8+4+symbolFieldLen+sessionIDFieldLen)
	off := 0
	binary.BigEndian.PutUint64(payload[off:off+8], m.OrderID)
	off += 8
	payload[off] = byte(m.Side)
	off++
	encodeFloat64(payload[off:off+8], m.Price)
	off += 8
	binary.BigEndian.PutUint32(payload[off:off+4], m.Quantity)
	off += 4
	encodeFixedString(payload[off:off+symbolFieldLen], m.Symbol)
	off += symbolFieldLen
	encodeFixedString(payload[off:off+sessionIDFieldLen], m.SessionID)
	return withHeader(MessageNewOrder, m.SeqNum, payload)
}

// EncodeOrderAckMsg serialises an order acknowledgement.
func (BinaryCodec) EncodeOrderAckMsg(m OrderAckMessage) []byte {
	payload := make([]byte, 8+1+ackMessageFieldLen)
	off := 0
	binary.BigEndian.PutUint64(payload[off:off+8], m.OrderID)
	off += 8
	if m.Success {
		payload[off] = 1
	}
	off++
	encodeFixedString(payload[off:off+ackMessageFieldLen], m.Message)
	return withHeader(MessageOrderAck, m.SeqNum, payload)
}

// EncodeMarketDataMsg serialises a top-of-book snapshot.
func (BinaryCodec) EncodeMarketDataMsg(m MarketDataMessage) []byte {
	payload := make([]byte, symbolFieldLen+8+8+4+4+8)
	off := 0
	encodeFixedString(payload[off:off+symbolFieldLen], m.Symbol)
	off += symbolFieldLen
	encodeFloat64(payload[off:off+8], m.BestBid)
	off += 8
	encodeFloat64(payload[off:off+8], m.BestAsk)
	off += 8
	binary.BigEndian.PutUint32(payload[off:off+4], m.BidSize)
	off += 4
	binary.BigEndian.PutUint32(payload[off:off+4], m.AskSize)
	off += 4
	binary.BigEndian.PutUint64(payload[off:off+8], m.Timestamp)
	return withHeader(MessageMarketData, m.SeqNum, payload)
}

func withHeader(typ MessageType, seqNum uint32, payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	out[0] = byte(typ)
	binary.BigEndian.PutUint16(out[1:3], uint16(len(payload)))
	binary.BigEndian.PutUint32(out[3:7], seqNum)
	copy(out[HeaderSize:], payload)
	return out
}

// encodeFixedString NUL-pads s into dst, truncating by one byte if
// necessary to guarantee the result is NUL-terminated.
func encodeFixedString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	max := len(dst) - 1
	if len(s) < max {
		max = len(s)
	}
	copy(dst, s[:max])
}

// decodeFixedString reads a NUL-padded fixed-size field back to a string.
func decodeFixedString(src []byte) string {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func encodeFloat64(dst []byte, v float64) {
	binary.BigEndian.PutUint64(dst, math.Float64bits(v))
}

func decodeFloat64(src []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(src))
}
