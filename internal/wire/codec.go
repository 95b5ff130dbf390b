package wire

import "bytes"

// Codec is the framing-agnostic surface the dispatcher drives: decode
// whatever has been read so far, and encode outgoing acks/snapshots.
// BinaryCodec and JSONCodec both implement it so one read loop
// (handleConn in cmd/matchd) can serve whichever framing the server was
// configured with.
type Codec interface {
	// Decode attempts to decode one message from the front of buf. If
	// buf does not yet hold a complete message, it returns ok=false
	// and consumed=0 (not an error) so the caller can read more bytes
	// and retry; err is only set for a malformed (not merely
	// incomplete) frame.
	Decode(buf []byte) (msg DecodedMessage, consumed int, ok bool, err error)
	EncodeOrderAck(seqNum uint32, orderID uint64, success bool, message string) []byte
	EncodeMarketData(seqNum uint32, symbol string, bestBid, bestAsk float64, bidSize, askSize uint32, timestampNanos uint64) []byte
}

// Decode implements Codec for the binary framing: a frame is complete
// once buf holds at least HeaderSize + length bytes.
func (c BinaryCodec) Decode(buf []byte) (DecodedMessage, int, bool, error) {
	if len(buf) < HeaderSize {
		return DecodedMessage{}, 0, false, nil
	}
	length := int(buf[1])<<8 | int(buf[2])
	if len(buf) < HeaderSize+length {
		return DecodedMessage{}, 0, false, nil
	}

	msg, n, err := c.decodeFrame(buf)
	if err != nil {
		return DecodedMessage{}, 0, false, err
	}
	return msg, n, true, nil
}

func (c BinaryCodec) EncodeOrderAck(seqNum uint32, orderID uint64, success bool, message string) []byte {
	return c.EncodeOrderAckMsg(OrderAckMessage{SeqNum: seqNum, OrderID: orderID, Success: success, Message: message})
}

func (c BinaryCodec) EncodeMarketData(seqNum uint32, symbol string, bestBid, bestAsk float64, bidSize, askSize uint32, timestampNanos uint64) []byte {
	return c.EncodeMarketDataMsg(MarketDataMessage{
		SeqNum:    seqNum,
		Symbol:    symbol,
		BestBid:   bestBid,
		BestAsk:   bestAsk,
		BidSize:   bidSize,
		AskSize:   askSize,
		Timestamp: timestampNanos,
	})
}

// jsonDelimiter separates successive JSON objects on the wire.
const jsonDelimiter = '\n'

// Decode implements Codec for the JSON framing: a frame is complete once
// buf contains a newline.
func (c JSONCodec) Decode(buf []byte) (DecodedMessage, int, bool, error) {
	idx := bytes.IndexByte(buf, jsonDelimiter)
	if idx < 0 {
		return DecodedMessage{}, 0, false, nil
	}
	msg, err := c.DecodeRequest(bytes.TrimSpace(buf[:idx]))
	if err != nil {
		return DecodedMessage{}, 0, false, err
	}
	return msg, idx + 1, true, nil
}

func (c JSONCodec) EncodeOrderAck(seqNum uint32, orderID uint64, success bool, message string) []byte {
	status := "success"
	if !success {
		status = "error"
	}
	id := orderID
	b, _ := c.EncodeResponse(Response{
		Status:  status,
		Message: message,
		OrderID: &id,
	})
	return append(b, jsonDelimiter)
}

func (c JSONCodec) EncodeMarketData(seqNum uint32, symbol string, bestBid, bestAsk float64, bidSize, askSize uint32, timestampNanos uint64) []byte {
	// Market data has no natural place in the request/response JSON
	// shape spec.md documents (join/new_order/responses only), so the
	// JSON framing reuses Response's free-form Message field rather than
	// inventing an undocumented object shape. Only the symbol is carried;
	// seqNum, prices, sizes and the timestamp are not encoded.
	b, _ := c.EncodeResponse(Response{
		Status:    "market_data",
		Message:   symbol,
		SessionID: "",
	})
	return append(b, jsonDelimiter)
}

var (
	_ Codec = BinaryCodec{}
	_ Codec = JSONCodec{}
)
