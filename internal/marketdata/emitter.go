// Package marketdata builds and publishes top-of-book snapshots: the
// best bid/ask and their resting sizes for a symbol, fire-and-forget
// over a Sink.
package marketdata

import (
	"sync/atomic"
	"time"

	"github.com/efreitasn/matchd/internal/wire"
)

// Emitter builds MARKET_DATA datagrams and hands them to a Sink. It
// owns the outgoing sequence number, which is monotonic per Emitter and
// wraps on overflow exactly like the binary header's seq_num field.
type Emitter struct {
	codec  wire.BinaryCodec
	sink   Sink
	seqNum uint32
}

// NewEmitter creates an emitter that publishes through sink.
func NewEmitter(sink Sink) *Emitter {
	return &Emitter{sink: sink}
}

// Publish builds a snapshot for symbol and sends it through the sink.
// Delivery is best-effort: a Send error is returned to the caller to log
// but never blocks or retries.
func (e *Emitter) Publish(symbol string, bestBid, bestAsk float64, bidSize, askSize uint32) error {
	seq := atomic.AddUint32(&e.seqNum, 1)

	frame := e.codec.EncodeMarketDataMsg(wire.MarketDataMessage{
		SeqNum:    seq,
		Symbol:    symbol,
		BestBid:   bestBid,
		BestAsk:   bestAsk,
		BidSize:   bidSize,
		AskSize:   askSize,
		Timestamp: uint64(time.Now().UnixNano()),
	})

	return e.sink.Send(frame)
}
