// Package session groups connected users and the order books they trade
// against into one trading session. A process normally runs a single
// default session, but the type supports more so the dispatcher and
// market-data emitter never have to special-case "the one session".
package session

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/efreitasn/matchd/internal/accounting"
	"github.com/efreitasn/matchd/internal/orderbook"
	"github.com/efreitasn/matchd/internal/pool"
)

var (
	// ErrUserExists is returned by AddUser for a username already
	// connected to the session.
	ErrUserExists = errors.New("session: user already connected")
	// ErrUserNotFound is returned when looking up a username or
	// connection id the session does not know about.
	ErrUserNotFound = errors.New("session: user not found")
)

// DefaultSeedBalance seeds a newly joined user's cash balance. The
// protocol has no deposit/withdraw operation, so every participant
// starts with the same working capital. Overridable via config, e.g.
// for tests that need more headroom than the default affords.
const DefaultSeedBalance = 10_000.0

// Session owns the users and order books of one trading session and is
// safe for concurrent use.
//
// Lock order: Session's mutex is acquired before any Book or User mutex
// it hands out — never the reverse.
type Session struct {
	id string

	pool *pool.Pool[orderbook.Order]

	mu          sync.RWMutex
	users       map[string]*accounting.User // username -> user
	usersByConn map[uint64]*accounting.User // connID -> user
	books       map[string]*orderbook.Book  // symbol -> book

	// owners tracks which username placed each resting order id. The
	// wire-level Order record carries no owner field (matching the
	// protocol it implements), so settling both sides of a trade
	// needs this out-of-band lookup: the submitting user is known to
	// the dispatcher already, but the counterparty is only known by
	// its resting order id. Entries are added when an order starts
	// resting and removed by the dispatcher once that order is fully
	// filled; a cancel made directly on a Book leaves its entry here.
	owners map[uint64]string

	nextOrderID uint64
}

// New creates an empty session identified by id, backed by p for order
// record allocation.
func New(id string, p *pool.Pool[orderbook.Order]) *Session {
	return &Session{
		id:          id,
		pool:        p,
		users:       make(map[string]*accounting.User),
		usersByConn: make(map[uint64]*accounting.User),
		books:       make(map[string]*orderbook.Book),
		owners:      make(map[uint64]string),
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string {
	return s.id
}

// NextOrderID returns a fresh, monotonically increasing order id unique
// within the session.
func (s *Session) NextOrderID() uint64 {
	return atomic.AddUint64(&s.nextOrderID, 1)
}

// AddUser joins username to the session over connID, seeding its account
// with startingBalance if it has not been seen before. A username that
// reconnects on a new connID is reattached rather than duplicated.
func (s *Session) AddUser(username string, connID uint64, startingBalance float64) (*accounting.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[username]; ok {
		if u.Active() {
			return nil, ErrUserExists
		}
		u.SetConnID(connID)
		u.SetActive(true)
		s.usersByConn[connID] = u
		return u, nil
	}

	u := accounting.NewUser(username, connID, startingBalance)
	s.users[username] = u
	s.usersByConn[connID] = u
	return u, nil
}

// RemoveUser marks username's connection inactive without discarding its
// balance or positions, and forgets its connID mapping.
func (s *Session) RemoveUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}
	delete(s.usersByConn, u.ConnID())
	u.SetActive(false)
	return nil
}

// User looks up an account by username.
func (s *Session) User(username string) (*accounting.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	return u, ok
}

// UserByConn looks up an account by the connection it is currently
// attached to.
func (s *Session) UserByConn(connID uint64) (*accounting.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByConn[connID]
	return u, ok
}

// CreateBook returns the book for symbol, creating an empty one on first
// use.
func (s *Session) CreateBook(symbol string) *orderbook.Book {
	s.mu.RLock()
	b, ok := s.books[symbol]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.books[symbol]; ok {
		return b
	}
	b = orderbook.NewBook(symbol, s.pool)
	s.books[symbol] = b
	return b
}

// Book looks up an existing book without creating one.
func (s *Session) Book(symbol string) (*orderbook.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[symbol]
	return b, ok
}

// Symbols returns the symbols that currently have a book.
func (s *Session) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.books))
	for sym := range s.books {
		out = append(out, sym)
	}
	return out
}

// ActiveUserCount returns the number of users marked active, for
// metrics reporting.
func (s *Session) ActiveUserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Active() {
			n++
		}
	}
	return n
}

// TrackOwner records that orderID was placed by username while it rests
// on a book. Call once, right before handing the order to Book.AddOrder.
func (s *Session) TrackOwner(orderID uint64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[orderID] = username
}

// OwnerOf returns the username that placed orderID, if it is still
// tracked.
func (s *Session) OwnerOf(orderID uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.owners[orderID]
	return u, ok
}

// ForgetOwner drops the ownership entry for orderID. Call once an order
// id has left the book for good (fully filled or cancelled) — never for
// an id that merely shrank from a partial fill, since later fills
// against the same resting order still need its owner.
func (s *Session) ForgetOwner(orderID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.owners, orderID)
}
