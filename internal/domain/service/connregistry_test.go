package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionRegistry_AttachDetach(t *testing.T) {
	reg := NewConnectionRegistry()

	n := reg.Attach("conn1", "ABC123", "p1")
	require.Equal(t, 1, n)

	n = reg.Attach("conn2", "ABC123", "p1")
	require.Equal(t, 2, n, "multi-tab: second connection for the same player")

	require.ElementsMatch(t, []string{"conn1", "conn2"}, reg.ConnectionsOf("ABC123", "p1"))

	loc, remaining, ok := reg.Detach("conn1")
	require.True(t, ok)
	require.Equal(t, "ABC123", loc.RoomCode)
	require.Equal(t, "p1", loc.PlayerID)
	require.Equal(t, 1, remaining)

	_, remaining, ok = reg.Detach("conn2")
	require.True(t, ok)
	require.Equal(t, 0, remaining)
}

func TestConnectionRegistry_DetachUnknown(t *testing.T) {
	reg := NewConnectionRegistry()

	_, _, ok := reg.Detach("nope")
	require.False(t, ok)
}

func TestConnectionRegistry_DropRoom(t *testing.T) {
	reg := NewConnectionRegistry()
	reg.Attach("conn1", "ABC123", "p1")

	reg.DropRoom("ABC123")

	require.Empty(t, reg.ConnectionsOf("ABC123", "p1"))
}
