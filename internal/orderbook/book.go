package orderbook

import (
	"sync"

	"github.com/google/btree"

	"github.com/efreitasn/matchd/internal/pool"
)

const treeDegree = 32

// Book maintains the bid and ask sides of a single symbol. Levels are kept
// in two B-trees ordered for O(log n) best-price lookup; each level holds
// its resting orders in a FIFO list for price-time priority. A secondary
// index gives O(log n) cancellation by order id without scanning either
// side.
//
// Lock order: a Book's own mutex is always the innermost lock acquired —
// callers holding a Session or Registry lock may take a Book lock, never
// the reverse.
type Book struct {
	symbol string

	mu    sync.RWMutex
	bids  *btree.BTreeG[*priceLevel]
	asks  *btree.BTreeG[*priceLevel]

	bidLevels map[float64]*priceLevel
	askLevels map[float64]*priceLevel

	index map[uint64]*orderLocus

	pool *pool.Pool[Order]
}

// NewBook creates an empty book for symbol. p is the allocator that backs
// every Order resident on the book; the book releases an order's handle
// back to p as soon as it is fully filled or cancelled.
func NewBook(symbol string, p *pool.Pool[Order]) *Book {
	return &Book{
		symbol:    symbol,
		bids:      btree.NewG[*priceLevel](treeDegree, bidLevelLess),
		asks:      btree.NewG[*priceLevel](treeDegree, askLevelLess),
		bidLevels: make(map[float64]*priceLevel),
		askLevels: make(map[float64]*priceLevel),
		index:     make(map[uint64]*orderLocus),
		pool:      p,
	}
}

// Symbol returns the book's symbol.
func (b *Book) Symbol() string {
	return b.symbol
}

// AddOrder matches o against resting liquidity and inserts whatever
// quantity is left over as a new resting order. The order is fully
// consumed (and its handle released back to the pool) if it fills
// entirely; callers must not use o after calling AddOrder if the
// returned remaining quantity across fills covers it.
func (b *Book) AddOrder(o *Order) ([]Fill, error) {
	if err := validateOrder(o); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fills, remaining := b.matchAgainst(o.Side, o.Price, o.Quantity)
	if remaining > 0 {
		b.insertResting(o, remaining)
	} else {
		b.pool.Release(o)
	}
	return fills, nil
}

// MatchOrder runs the same matching walk as AddOrder but never inserts a
// residual: whatever quantity is left unfilled is reported back to the
// caller instead of resting on the book. Used for pure price discovery
// and for callers that decide separately whether a residual should rest.
func (b *Book) MatchOrder(o *Order) (MatchResult, error) {
	if err := validateOrder(o); err != nil {
		return MatchResult{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fills, remaining := b.matchAgainst(o.Side, o.Price, o.Quantity)
	return MatchResult{Fills: fills, Remaining: remaining}, nil
}

// AddResidual inserts qty of o directly as a resting order, without
// running the matching walk. It exists for callers that already called
// MatchOrder themselves and now need to post exactly the reported
// Remaining quantity — o.Quantity is o's original, immutable incoming
// quantity and is never the right value to re-insert after a partial
// match (see MatchOrder). qty must be greater than zero and no larger
// than o.Quantity.
func (b *Book) AddResidual(o *Order, qty uint32) error {
	if qty == 0 || qty > o.Quantity {
		return ErrInvalidOrder
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.insertResting(o, qty)
	return nil
}

// CancelOrder removes a resting order by id, returning its handle to the
// pool. It reports whether an order with that id was found.
func (b *Book) CancelOrder(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	loc, ok := b.index[id]
	if !ok {
		return false
	}
	delete(b.index, id)

	ro := loc.elem.Value.(*restingOrder)
	loc.level.orders.Remove(loc.elem)
	loc.level.total -= ro.remaining

	if loc.level.empty() {
		b.removeLevel(loc.side, loc.level.price)
	}

	b.pool.Release(ro.order)
	return true
}

// BestBid returns the best (highest) resting bid price, or 0 if the bid
// side is empty.
func (b *Book) BestBid() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lvl, ok := b.bids.Min()
	if !ok {
		return 0
	}
	return lvl.price
}

// BestAsk returns the best (lowest) resting ask price, or 0 if the ask
// side is empty.
func (b *Book) BestAsk() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lvl, ok := b.asks.Min()
	if !ok {
		return 0
	}
	return lvl.price
}

// BestBidSize returns the total resting quantity at the best bid price,
// or 0 if the bid side is empty.
func (b *Book) BestBidSize() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lvl, ok := b.bids.Min()
	if !ok {
		return 0
	}
	return lvl.total
}

// BestAskSize returns the total resting quantity at the best ask price,
// or 0 if the ask side is empty.
func (b *Book) BestAskSize() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lvl, ok := b.asks.Min()
	if !ok {
		return 0
	}
	return lvl.total
}

// TopOfBook returns the best bid/ask price and size in one locked pass,
// so callers publishing a consistent snapshot don't need four separate
// locks that could observe the book mutating in between.
func (b *Book) TopOfBook() (bestBid, bestAsk float64, bidSize, askSize uint32) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if lvl, ok := b.bids.Min(); ok {
		bestBid, bidSize = lvl.price, lvl.total
	}
	if lvl, ok := b.asks.Min(); ok {
		bestAsk, askSize = lvl.price, lvl.total
	}
	return
}

// Crossed reports whether the book is in an invalid crossed state (best
// bid >= best ask). It is used by property tests to assert the matching
// walk never leaves the book crossed.
func (b *Book) Crossed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bidLvl, bidOK := b.bids.Min()
	askLvl, askOK := b.asks.Min()
	if !bidOK || !askOK {
		return false
	}
	return bidLvl.price >= askLvl.price
}

// Clear removes every resting order from both sides, releasing all order
// handles back to the pool.
func (b *Book) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseAll(b.bids)
	b.releaseAll(b.asks)

	b.bids = btree.NewG[*priceLevel](treeDegree, bidLevelLess)
	b.asks = btree.NewG[*priceLevel](treeDegree, askLevelLess)
	b.bidLevels = make(map[float64]*priceLevel)
	b.askLevels = make(map[float64]*priceLevel)
	b.index = make(map[uint64]*orderLocus)
}

func (b *Book) releaseAll(tree *btree.BTreeG[*priceLevel]) {
	tree.Ascend(func(lvl *priceLevel) bool {
		for e := lvl.orders.Front(); e != nil; e = e.Next() {
			b.pool.Release(e.Value.(*restingOrder).order)
		}
		return true
	})
}

// matchAgainst walks the opposite side of side starting from the best
// price, consuming resting liquidity while price is marketable, until
// either the incoming quantity is exhausted or the book runs out of
// crossable liquidity. It mutates the book (reducing/removing resting
// orders) even though it never inserts the incoming order itself — both
// AddOrder and MatchOrder share this one walk.
//
// Callers must hold b.mu for writing.
func (b *Book) matchAgainst(side Side, price float64, qty uint32) ([]Fill, uint32) {
	var oppTree *btree.BTreeG[*priceLevel]
	var oppLevels map[float64]*priceLevel
	var crosses func(levelPrice float64) bool

	if side == Buy {
		oppTree, oppLevels = b.asks, b.askLevels
		crosses = func(levelPrice float64) bool { return levelPrice <= price }
	} else {
		oppTree, oppLevels = b.bids, b.bidLevels
		crosses = func(levelPrice float64) bool { return levelPrice >= price }
	}

	var fills []Fill
	remaining := qty

	for remaining > 0 {
		lvl, ok := oppTree.Min()
		if !ok || !crosses(lvl.price) {
			break
		}

		for remaining > 0 {
			front := lvl.orders.Front()
			if front == nil {
				break
			}
			ro := front.Value.(*restingOrder)

			fillQty := remaining
			if ro.remaining < fillQty {
				fillQty = ro.remaining
			}

			remaining -= fillQty
			ro.remaining -= fillQty
			lvl.total -= fillQty

			fills = append(fills, Fill{
				Price:              lvl.price,
				Quantity:           fillQty,
				RestingOrderID:     ro.order.ID,
				RestingFullyFilled: ro.remaining == 0,
			})

			if ro.remaining == 0 {
				lvl.orders.Remove(front)
				delete(b.index, ro.order.ID)
				b.pool.Release(ro.order)
			}
		}

		if lvl.empty() {
			oppTree.Delete(lvl)
			delete(oppLevels, lvl.price)
		}
	}

	return fills, remaining
}

// insertResting places qty of o's remaining quantity on the book as a new
// resting order. Callers must hold b.mu for writing.
func (b *Book) insertResting(o *Order, qty uint32) {
	var tree *btree.BTreeG[*priceLevel]
	var levels map[float64]*priceLevel

	if o.Side == Buy {
		tree, levels = b.bids, b.bidLevels
	} else {
		tree, levels = b.asks, b.askLevels
	}

	lvl, ok := levels[o.Price]
	if !ok {
		lvl = newPriceLevel(o.Price)
		levels[o.Price] = lvl
		tree.ReplaceOrInsert(lvl)
	}

	ro := &restingOrder{order: o, remaining: qty}
	elem := lvl.pushBack(ro)

	b.index[o.ID] = &orderLocus{side: o.Side, level: lvl, elem: elem}
}

func (b *Book) removeLevel(side Side, price float64) {
	if side == Buy {
		lvl := b.bidLevels[price]
		b.bids.Delete(lvl)
		delete(b.bidLevels, price)
	} else {
		lvl := b.askLevels[price]
		b.asks.Delete(lvl)
		delete(b.askLevels, price)
	}
}
