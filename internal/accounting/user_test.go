package accounting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanAffordReflectsBalance(t *testing.T) {
	u := NewUser("alice", 1, 100)

	assert.True(t, u.CanAfford(10, 5), "100 balance should afford 10*5=50")
	assert.False(t, u.CanAfford(10, 20), "100 balance should not afford 10*20=200")
}

func TestUpdateBalanceAppliesSignedDelta(t *testing.T) {
	u := NewUser("alice", 1, 100)

	u.UpdateBalance(-50)
	require.Equal(t, 50.0, u.Balance())

	u.UpdateBalance(25)
	assert.Equal(t, 75.0, u.Balance())
}

func TestAddAndRemovePosition(t *testing.T) {
	u := NewUser("alice", 1, 0)

	u.AddPosition("ACME", 10)
	require.Equal(t, uint32(10), u.Position("ACME"))

	u.RemovePosition("ACME", 4)
	assert.Equal(t, uint32(6), u.Position("ACME"))
}

func TestRemovePositionFloorsAtZero(t *testing.T) {
	u := NewUser("alice", 1, 0)

	u.AddPosition("ACME", 3)
	u.RemovePosition("ACME", 10)
	assert.Equal(t, uint32(0), u.Position("ACME"), "position should floor at zero, not go negative")
}

func TestSetActiveTogglesState(t *testing.T) {
	u := NewUser("alice", 1, 0)
	require.True(t, u.Active(), "new user should start active")

	u.SetActive(false)
	assert.False(t, u.Active())
}

func TestSetConnIDReattaches(t *testing.T) {
	u := NewUser("alice", 1, 0)
	u.SetConnID(42)
	assert.Equal(t, uint64(42), u.ConnID())
}
