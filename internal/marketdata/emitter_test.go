package marketdata

import (
	"errors"
	"testing"

	"github.com/efreitasn/matchd/internal/wire"
)

type recordingSink struct {
	sent [][]byte
	err  error
}

func (s *recordingSink) Send(b []byte) error {
	s.sent = append(s.sent, append([]byte(nil), b...))
	return s.err
}

func TestPublishEncodesSnapshot(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(sink)

	if err := e.Publish("ACME", 100, 101, 50, 30); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("expected exactly one datagram, got %d", len(sink.sent))
	}

	var codec wire.BinaryCodec
	decoded, _, ok, err := codec.Decode(sink.sent[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ok {
		t.Fatalf("expected a complete frame")
	}
	if decoded.Type != wire.MessageMarketData {
		t.Fatalf("type = %v, want market_data", decoded.Type)
	}
	md := decoded.MarketData
	if md == nil {
		t.Fatalf("expected a market data message, got %+v", decoded)
	}
	if md.Symbol != "ACME" || md.BestBid != 100 || md.BestAsk != 101 || md.BidSize != 50 || md.AskSize != 30 {
		t.Fatalf("unexpected snapshot: %+v", md)
	}
}

func TestPublishSeqNumMonotonic(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(sink)

	var codec wire.BinaryCodec
	for i := 0; i < 3; i++ {
		if err := e.Publish("ACME", 1, 2, 1, 1); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	var lastSeq uint32
	for i, frame := range sink.sent {
		decoded, _, _, err := codec.Decode(frame)
		if err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if decoded.MarketData.SeqNum <= lastSeq && i > 0 {
			t.Fatalf("seq num did not increase: %d <= %d", decoded.MarketData.SeqNum, lastSeq)
		}
		lastSeq = decoded.MarketData.SeqNum
	}
}

func TestPublishPropagatesSinkError(t *testing.T) {
	wantErr := errors.New("boom")
	sink := &recordingSink{err: wantErr}
	e := NewEmitter(sink)

	if err := e.Publish("ACME", 1, 2, 1, 1); err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}
