package session

import (
	"testing"

	"github.com/efreitasn/matchd/internal/orderbook"
	"github.com/efreitasn/matchd/internal/pool"
)

func TestNewRegistryBootstrapsDefaultSession(t *testing.T) {
	r := NewRegistry(pool.New[orderbook.Order](0, 0))

	s, ok := r.Get(DefaultSessionID)
	if !ok {
		t.Fatalf("expected default session to exist")
	}
	if r.Default() != s {
		t.Fatalf("Default() should return the bootstrapped default session")
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	r := NewRegistry(pool.New[orderbook.Order](0, 0))

	a := r.GetOrCreate("alt")
	b := r.GetOrCreate("alt")
	if a != b {
		t.Fatalf("expected the same session instance across calls")
	}
	if _, ok := r.Get("alt"); !ok {
		t.Fatalf("expected Get to find the session created by GetOrCreate")
	}
}

func TestIDsIncludesDefaultAndCreated(t *testing.T) {
	r := NewRegistry(pool.New[orderbook.Order](0, 0))
	r.GetOrCreate("alt")

	ids := r.IDs()
	found := map[string]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[DefaultSessionID] || !found["alt"] {
		t.Fatalf("IDs() = %v, want both %q and alt", ids, DefaultSessionID)
	}
}
