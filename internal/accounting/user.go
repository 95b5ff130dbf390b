// Package accounting tracks per-user balance and symbol positions:
// pre-trade affordability checks and the balance/position deltas a fill
// applies to both sides of a trade.
package accounting

import (
	"errors"
	"sync"
)

// ErrInsufficientBalance names a failed CanAfford check for callers that
// want an error value; nothing in this package returns it, and the
// dispatcher reports its own ErrInsufficientFunds instead. User itself
// never blocks a balance update, it only reports whether one would be
// affordable.
var ErrInsufficientBalance = errors.New("accounting: insufficient balance")

// User holds one connected participant's trading account: balance,
// per-symbol positions, and the connection it is currently attached to.
//
// A User's own mutex guards balance and position mutations; it is always
// the innermost lock a caller holding a Session lock may acquire.
type User struct {
	mu sync.Mutex

	username string
	connID   uint64
	active   bool

	balance   float64
	positions map[string]uint32
}

// NewUser creates an account for username, freshly attached to connID
// with the given starting balance and no positions.
func NewUser(username string, connID uint64, startingBalance float64) *User {
	return &User{
		username:  username,
		connID:    connID,
		active:    true,
		balance:   startingBalance,
		positions: make(map[string]uint32),
	}
}

// Username returns the account's username.
func (u *User) Username() string {
	return u.username
}

// ConnID returns the connection id the user is currently attached to.
func (u *User) ConnID() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.connID
}

// SetConnID reattaches the account to a new connection, e.g. on
// reconnect within the same session.
func (u *User) SetConnID(connID uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.connID = connID
}

// Active reports whether the user's connection is currently live.
func (u *User) Active() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.active
}

// SetActive marks the user connected or disconnected. A disconnected
// user keeps its balance and positions — it is not removed from the
// session, only marked inactive.
func (u *User) SetActive(active bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.active = active
}

// Balance returns the user's current cash balance.
func (u *User) Balance() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.balance
}

// UpdateBalance adds delta (negative for a debit) to the user's balance.
func (u *User) UpdateBalance(delta float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.balance += delta
}

// CanAfford reports whether the user's current balance covers price *
// quantity. It does not reserve anything — the caller must still apply
// the debit via UpdateBalance once a trade actually executes.
func (u *User) CanAfford(price float64, quantity uint32) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.balance >= price*float64(quantity)
}

// Position returns the user's current resting quantity in symbol.
func (u *User) Position(symbol string) uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.positions[symbol]
}

// AddPosition increases the user's holding in symbol by quantity, e.g.
// after a buy fill.
func (u *User) AddPosition(symbol string, quantity uint32) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.positions[symbol] += quantity
}

// RemovePosition decreases the user's holding in symbol by quantity,
// e.g. after a sell fill. It floors at zero rather than going negative,
// and drops the symbol's entry once the holding reaches zero —
// the dispatcher is expected to only ever remove what a prior add (or
// the session's default seed) made available.
func (u *User) RemovePosition(symbol string, quantity uint32) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if quantity >= u.positions[symbol] {
		delete(u.positions, symbol)
		return
	}
	u.positions[symbol] -= quantity
}
