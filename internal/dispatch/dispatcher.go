// Package dispatch implements the per-connection request handling that
// sits between the wire codecs and the session/book/pool layer: decode,
// route, pre-trade check, match, settle, respond.
package dispatch

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/efreitasn/matchd/internal/accounting"
	"github.com/efreitasn/matchd/internal/orderbook"
	"github.com/efreitasn/matchd/internal/pool"
	"github.com/efreitasn/matchd/internal/session"
	"github.com/efreitasn/matchd/internal/wire"
)

// Result is the logical outcome of handling one request, independent of
// which wire framing will carry it back to the client.
type Result struct {
	Success bool
	Message string
	OrderID uint64
}

// BookChangeFunc is notified whenever a match or insertion may have
// moved the top of book for (sessionID, symbol), so a market-data
// emitter can publish a fresh snapshot. It must not block.
type BookChangeFunc func(sessionID, symbol string)

// OrderMetricsFunc is notified once per accepted new-order request with
// its side and the fills it produced, so a metrics registry can update
// its counters. It must not block.
type OrderMetricsFunc func(side string, fillCount int, fillQty uint32)

// Dispatcher routes decoded requests to the session/book/pool layer. One
// Dispatcher is shared by every connection; per-connection state is just
// the small connID -> sessionID binding established by join.
type Dispatcher struct {
	registry    *session.Registry
	pool        *pool.Pool[orderbook.Order]
	logger      *zap.Logger
	onChange    BookChangeFunc
	onOrder     OrderMetricsFunc
	seedBalance float64

	mu       sync.RWMutex
	connsess map[uint64]string // connID -> sessionID
}

// New creates a Dispatcher. onChange may be nil. seedBalance is the cash
// balance a newly joined user starts with; pass session.DefaultSeedBalance
// to use the protocol default.
func New(registry *session.Registry, p *pool.Pool[orderbook.Order], logger *zap.Logger, onChange BookChangeFunc, seedBalance float64) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		pool:        p,
		logger:      logger,
		onChange:    onChange,
		seedBalance: seedBalance,
		connsess:    make(map[uint64]string),
	}
}

// SetOrderMetrics attaches a metrics hook invoked after every accepted
// new-order request. Call once during wiring, before traffic starts.
func (d *Dispatcher) SetOrderMetrics(fn OrderMetricsFunc) {
	d.onOrder = fn
}

// HandleJoin processes a join request for a connection.
func (d *Dispatcher) HandleJoin(connID uint64, m wire.JoinMessage) Result {
	sess, ok := d.registry.Get(m.SessionID)
	if !ok {
		d.logger.Info("join rejected: unknown session", zap.String("session_id", m.SessionID))
		return Result{Success: false, Message: ErrSessionNotFound.Error()}
	}

	if _, err := sess.AddUser(m.Username, connID, d.seedBalance); err != nil {
		d.logger.Info("join rejected", zap.String("username", m.Username), zap.Error(err))
		return Result{Success: false, Message: ErrDuplicateUsername.Error()}
	}

	d.mu.Lock()
	d.connsess[connID] = sess.ID()
	d.mu.Unlock()

	d.logger.Info("user joined", zap.String("username", m.Username), zap.String("session_id", sess.ID()))
	return Result{Success: true, Message: "joined"}
}

// HandleNewOrder processes a new-order request for a connection that has
// already joined.
func (d *Dispatcher) HandleNewOrder(connID uint64, m wire.NewOrderMessage) Result {
	sess, user, ok := d.resolveConn(connID)
	if !ok {
		return Result{Success: false, Message: ErrUserNotFound.Error()}
	}

	if err := orderbook.ValidateOrderInput(m.Price, m.Quantity); err != nil {
		return Result{Success: false, Message: err.Error(), OrderID: m.OrderID}
	}

	side := orderbook.Buy
	if m.Side == wire.SideSell {
		side = orderbook.Sell
	}

	if side == orderbook.Buy {
		if !user.CanAfford(m.Price, m.Quantity) {
			return Result{Success: false, Message: ErrInsufficientFunds.Error(), OrderID: m.OrderID}
		}
	} else {
		if user.Position(m.Symbol) < m.Quantity {
			return Result{Success: false, Message: ErrInsufficientPosition.Error(), OrderID: m.OrderID}
		}
	}

	book := sess.CreateBook(m.Symbol)

	o, err := d.pool.Acquire(func(o *orderbook.Order) {
		o.ID = m.OrderID
		o.Side = side
		o.Price = m.Price
		o.Quantity = m.Quantity
	})
	if err != nil {
		return Result{Success: false, Message: err.Error(), OrderID: m.OrderID}
	}

	result, err := book.MatchOrder(o)
	if err != nil {
		d.pool.Release(o)
		return Result{Success: false, Message: err.Error(), OrderID: m.OrderID}
	}

	d.settle(sess, user, m.Symbol, side, result.Fills)
	d.recordOrderMetrics(side, result.Fills)

	if result.Remaining > 0 {
		sess.TrackOwner(o.ID, user.Username())
		if err := book.AddResidual(o, result.Remaining); err != nil {
			sess.ForgetOwner(o.ID)
			d.pool.Release(o)
			return Result{Success: false, Message: err.Error(), OrderID: m.OrderID}
		}
		d.notifyChange(sess.ID(), m.Symbol)
		return Result{Success: true, Message: "added to book", OrderID: o.ID}
	}

	d.pool.Release(o)
	d.notifyChange(sess.ID(), m.Symbol)
	return Result{Success: true, Message: "matched", OrderID: o.ID}
}

// HandleDisconnect releases a connection's join binding, e.g. on socket
// close. It never removes the account from the session — only the live
// connection.
func (d *Dispatcher) HandleDisconnect(connID uint64) {
	sess, user, ok := d.resolveConn(connID)
	if !ok {
		return
	}
	_ = sess.RemoveUser(user.Username())

	d.mu.Lock()
	delete(d.connsess, connID)
	d.mu.Unlock()
}

// settle applies balance/position deltas for every fill: the submitter
// gets the full delta for its own side; the resting order's owner (if
// still tracked) gets the mirrored delta on the other side. An untracked
// counterparty (no owner recorded, e.g. liquidity seeded without going
// through TrackOwner) only settles the submitter's side, matching the
// documented fallback.
func (d *Dispatcher) settle(sess *session.Session, submitter *accounting.User, symbol string, side orderbook.Side, fills []orderbook.Fill) {
	for _, f := range fills {
		notional := f.Price * float64(f.Quantity)
		tradeID := uuid.NewString()
		d.logger.Info("trade executed",
			zap.String("trade_id", tradeID),
			zap.String("symbol", symbol),
			zap.Uint64("resting_order_id", f.RestingOrderID),
			zap.Float64("price", f.Price),
			zap.Uint32("quantity", f.Quantity),
		)

		if side == orderbook.Buy {
			submitter.UpdateBalance(-notional)
			submitter.AddPosition(symbol, f.Quantity)
		} else {
			submitter.UpdateBalance(notional)
			submitter.RemovePosition(symbol, f.Quantity)
		}

		if ownerName, ok := sess.OwnerOf(f.RestingOrderID); ok {
			if counterparty, ok := sess.User(ownerName); ok {
				if side == orderbook.Buy {
					counterparty.UpdateBalance(notional)
					counterparty.RemovePosition(symbol, f.Quantity)
				} else {
					counterparty.UpdateBalance(-notional)
					counterparty.AddPosition(symbol, f.Quantity)
				}
			}
		}

		if f.RestingFullyFilled {
			sess.ForgetOwner(f.RestingOrderID)
		}
	}
}

func (d *Dispatcher) recordOrderMetrics(side orderbook.Side, fills []orderbook.Fill) {
	if d.onOrder == nil {
		return
	}
	var qty uint32
	for _, f := range fills {
		qty += f.Quantity
	}
	label := "buy"
	if side == orderbook.Sell {
		label = "sell"
	}
	d.onOrder(label, len(fills), qty)
}

func (d *Dispatcher) resolveConn(connID uint64) (*session.Session, *accounting.User, bool) {
	d.mu.RLock()
	sessID, ok := d.connsess[connID]
	d.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}

	sess, ok := d.registry.Get(sessID)
	if !ok {
		return nil, nil, false
	}
	user, ok := sess.UserByConn(connID)
	if !ok {
		return nil, nil, false
	}
	return sess, user, true
}

func (d *Dispatcher) notifyChange(sessionID, symbol string) {
	if d.onChange != nil {
		d.onChange(sessionID, symbol)
	}
}
