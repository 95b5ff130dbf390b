package orderbook

import "container/list"

// priceLevel is the FIFO queue of resting orders at one price, plus a
// cached total so BestBid/BestAsk depth reporting never has to walk the
// list.
type priceLevel struct {
	price    float64
	total    uint32
	orders   *list.List // of *restingOrder, front = oldest = next to fill
}

func newPriceLevel(price float64) *priceLevel {
	return &priceLevel{
		price:  price,
		orders: list.New(),
	}
}

// restingOrder wraps an Order handle with the quantity still unfilled
// while it sits on a level. The Order itself never changes after it is
// acquired from the pool; remaining quantity lives here instead.
type restingOrder struct {
	order     *Order
	remaining uint32
}

func (lvl *priceLevel) pushBack(ro *restingOrder) *list.Element {
	lvl.total += ro.remaining
	return lvl.orders.PushBack(ro)
}

func (lvl *priceLevel) empty() bool {
	return lvl.orders.Len() == 0
}

// orderLocus is the index entry that lets CancelOrder find an order's
// level and list element in O(1) instead of scanning the book.
type orderLocus struct {
	side Side
	level *priceLevel
	elem  *list.Element
}

func bidLevelLess(a, b *priceLevel) bool {
	return a.price > b.price
}

func askLevelLess(a, b *priceLevel) bool {
	return a.price < b.price
}
