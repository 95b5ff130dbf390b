package dispatch

import (
	"testing"

	"go.uber.org/zap"

	"github.com/efreitasn/matchd/internal/orderbook"
	"github.com/efreitasn/matchd/internal/pool"
	"github.com/efreitasn/matchd/internal/session"
	"github.com/efreitasn/matchd/internal/wire"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *session.Registry) {
	t.Helper()
	p := pool.New[orderbook.Order](0, 0)
	reg := session.NewRegistry(p)
	d := New(reg, p, zap.NewNop(), nil, session.DefaultSeedBalance)
	return d, reg
}

func TestHandleJoinThenNewOrderRests(t *testing.T) {
	d, _ := newTestDispatcher(t)

	join := d.HandleJoin(1, wire.JoinMessage{Username: "alice", SessionID: session.DefaultSessionID})
	if !join.Success {
		t.Fatalf("join failed: %s", join.Message)
	}

	res := d.HandleNewOrder(1, wire.NewOrderMessage{
		OrderID: 1, Side: wire.SideBuy, Price: 10, Quantity: 5,
		Symbol: "ACME", SessionID: session.DefaultSessionID,
	})
	if !res.Success || res.Message != "added to book" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHandleJoinRejectsDuplicateUsername(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.HandleJoin(1, wire.JoinMessage{Username: "alice", SessionID: session.DefaultSessionID})
	res := d.HandleJoin(2, wire.JoinMessage{Username: "alice", SessionID: session.DefaultSessionID})
	if res.Success {
		t.Fatalf("expected duplicate join to fail")
	}
	if res.Message != ErrDuplicateUsername.Error() {
		t.Fatalf("message = %q, want %q", res.Message, ErrDuplicateUsername.Error())
	}
}

func TestHandleNewOrderRejectsUnjoinedConnection(t *testing.T) {
	d, _ := newTestDispatcher(t)

	res := d.HandleNewOrder(99, wire.NewOrderMessage{OrderID: 1, Side: wire.SideBuy, Price: 10, Quantity: 1, Symbol: "ACME"})
	if res.Success || res.Message != ErrUserNotFound.Error() {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHandleNewOrderRejectsInsufficientFunds(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.HandleJoin(1, wire.JoinMessage{Username: "alice", SessionID: session.DefaultSessionID})

	res := d.HandleNewOrder(1, wire.NewOrderMessage{
		OrderID: 1, Side: wire.SideBuy, Price: 20000, Quantity: 1000,
		Symbol: "ACME", SessionID: session.DefaultSessionID,
	})
	if res.Success || res.Message != ErrInsufficientFunds.Error() {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHandleNewOrderRejectsInsufficientPosition(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.HandleJoin(1, wire.JoinMessage{Username: "alice", SessionID: session.DefaultSessionID})

	res := d.HandleNewOrder(1, wire.NewOrderMessage{
		OrderID: 1, Side: wire.SideSell, Price: 10, Quantity: 5,
		Symbol: "ACME", SessionID: session.DefaultSessionID,
	})
	if res.Success || res.Message != ErrInsufficientPosition.Error() {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// Scenario 2 from the testable-properties scenario list: resting then
// matching settles both sides symmetrically.
func TestNewOrderSettlesBothSidesOnFullMatch(t *testing.T) {
	d, reg := newTestDispatcher(t)
	sess := reg.Default()

	d.HandleJoin(1, wire.JoinMessage{Username: "seller", SessionID: session.DefaultSessionID})
	d.HandleJoin(2, wire.JoinMessage{Username: "buyer", SessionID: session.DefaultSessionID})

	seller, _ := sess.User("seller")
	seller.AddPosition("ACME", 10)
	buyer, _ := sess.User("buyer")
	buyerStartBalance := buyer.Balance()
	sellerStartBalance := seller.Balance()

	sellRes := d.HandleNewOrder(1, wire.NewOrderMessage{
		OrderID: 1, Side: wire.SideSell, Price: 100, Quantity: 10, Symbol: "ACME", SessionID: session.DefaultSessionID,
	})
	if !sellRes.Success || sellRes.Message != "added to book" {
		t.Fatalf("sell order: %+v", sellRes)
	}

	buyRes := d.HandleNewOrder(2, wire.NewOrderMessage{
		OrderID: 2, Side: wire.SideBuy, Price: 100, Quantity: 10, Symbol: "ACME", SessionID: session.DefaultSessionID,
	})
	if !buyRes.Success || buyRes.Message != "matched" {
		t.Fatalf("buy order: %+v", buyRes)
	}

	if got := buyer.Balance(); got != buyerStartBalance-1000 {
		t.Fatalf("buyer balance = %v, want %v", got, buyerStartBalance-1000)
	}
	if got := seller.Balance(); got != sellerStartBalance+1000 {
		t.Fatalf("seller balance = %v, want %v", got, sellerStartBalance+1000)
	}
	if got := buyer.Position("ACME"); got != 10 {
		t.Fatalf("buyer position = %d, want 10", got)
	}
	if got := seller.Position("ACME"); got != 0 {
		t.Fatalf("seller position = %d, want 0", got)
	}

	book, _ := sess.Book("ACME")
	if book.BestBid() != 0 || book.BestAsk() != 0 {
		t.Fatalf("expected empty book after full cross")
	}
}

func TestNewOrderPartialFillSettlesOnlyFilledPortion(t *testing.T) {
	d, reg := newTestDispatcher(t)
	sess := reg.Default()

	d.HandleJoin(1, wire.JoinMessage{Username: "seller", SessionID: session.DefaultSessionID})
	d.HandleJoin(2, wire.JoinMessage{Username: "buyer", SessionID: session.DefaultSessionID})
	seller, _ := sess.User("seller")
	seller.AddPosition("ACME", 10)
	buyer, _ := sess.User("buyer")

	d.HandleNewOrder(1, wire.NewOrderMessage{OrderID: 1, Side: wire.SideSell, Price: 100, Quantity: 10, Symbol: "ACME", SessionID: session.DefaultSessionID})
	res := d.HandleNewOrder(2, wire.NewOrderMessage{OrderID: 2, Side: wire.SideBuy, Price: 100, Quantity: 4, Symbol: "ACME", SessionID: session.DefaultSessionID})
	if !res.Success {
		t.Fatalf("buy order: %+v", res)
	}

	if got := buyer.Position("ACME"); got != 4 {
		t.Fatalf("buyer position = %d, want 4", got)
	}
	if got := seller.Position("ACME"); got != 6 {
		t.Fatalf("seller position = %d, want 6", got)
	}

	book, _ := sess.Book("ACME")
	if got := book.BestAsk(); got != 100 {
		t.Fatalf("best ask = %v, want 100 (6 remaining)", got)
	}
}

// Reproduces the MatchOrder-then-AddResidual composition directly:
// resting SELL 5 @100, incoming BUY 10 @100 should leave exactly 5
// resting on the bid side, not the incoming order's original quantity.
func TestNewOrderResidualPostedIsTrueRemainingNotOriginalQuantity(t *testing.T) {
	d, reg := newTestDispatcher(t)
	sess := reg.Default()

	d.HandleJoin(1, wire.JoinMessage{Username: "seller", SessionID: session.DefaultSessionID})
	d.HandleJoin(2, wire.JoinMessage{Username: "buyer", SessionID: session.DefaultSessionID})
	seller, _ := sess.User("seller")
	seller.AddPosition("ACME", 5)
	buyer, _ := sess.User("buyer")

	d.HandleNewOrder(1, wire.NewOrderMessage{OrderID: 1, Side: wire.SideSell, Price: 100, Quantity: 5, Symbol: "ACME", SessionID: session.DefaultSessionID})
	res := d.HandleNewOrder(2, wire.NewOrderMessage{OrderID: 2, Side: wire.SideBuy, Price: 100, Quantity: 10, Symbol: "ACME", SessionID: session.DefaultSessionID})
	if !res.Success || res.Message != "added to book" {
		t.Fatalf("buy order: %+v", res)
	}

	if got := buyer.Position("ACME"); got != 5 {
		t.Fatalf("buyer position after first fill = %d, want 5", got)
	}

	// A second seller should only be able to fill the true residual (5),
	// not the buy order's original quantity (10).
	d.HandleJoin(3, wire.JoinMessage{Username: "seller2", SessionID: session.DefaultSessionID})
	seller2, _ := sess.User("seller2")
	seller2.AddPosition("ACME", 5)

	sellRes := d.HandleNewOrder(3, wire.NewOrderMessage{OrderID: 3, Side: wire.SideSell, Price: 100, Quantity: 5, Symbol: "ACME", SessionID: session.DefaultSessionID})
	if !sellRes.Success || sellRes.Message != "matched" {
		t.Fatalf("second sell order: %+v", sellRes)
	}

	if got := buyer.Position("ACME"); got != 10 {
		t.Fatalf("buyer position after second fill = %d, want 10 total", got)
	}

	book, _ := sess.Book("ACME")
	if got := book.BestBid(); got != 0 {
		t.Fatalf("best bid = %v, want 0 (buy order fully satisfied at 10, nothing left resting)", got)
	}
}

func TestHandleDisconnectFreesUsernameForRejoin(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.HandleJoin(1, wire.JoinMessage{Username: "alice", SessionID: session.DefaultSessionID})
	d.HandleDisconnect(1)

	res := d.HandleJoin(2, wire.JoinMessage{Username: "alice", SessionID: session.DefaultSessionID})
	if !res.Success {
		t.Fatalf("expected rejoin after disconnect to succeed, got %+v", res)
	}
}
