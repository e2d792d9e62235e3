package realtime

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryJoinIsIdempotent(t *testing.T) {
	registry := NewRegistry()

	registry.Join("conn-1", "project:alpha")
	registry.Join("conn-1", "project:alpha")
	registry.Join("conn-1", "project:alpha")

	require.Equal(t, []string{"conn-1"}, registry.MembersOf("project:alpha"))
	require.Equal(t, []string{"project:alpha"}, registry.Rooms("conn-1"))
}

func TestRegistryLeaveUnknownRoomIsNoop(t *testing.T) {
	registry := NewRegistry()

	registry.Join("conn-1", "project:alpha")
	registry.Leave("conn-1", "project:beta")
	registry.Leave("conn-2", "project:alpha")

	require.Equal(t, []string{"conn-1"}, registry.MembersOf("project:alpha"))
}

func TestRegistryRoomKeysAreNormalized(t *testing.T) {
	registry := NewRegistry()

	registry.Join("conn-1", "  Project:Alpha ")

	require.Equal(t, []string{"conn-1"}, registry.MembersOf("project:alpha"))
}

func TestRegistryLeaveAllClearsEveryMembership(t *testing.T) {
	registry := NewRegistry()

	registry.Join("conn-1", "project:alpha")
	registry.Join("conn-1", "project:beta")
	registry.Join("conn-1", "user:alice")
	registry.Join("conn-2", "project:alpha")

	left := registry.LeaveAll("conn-1")
	sort.Strings(left)
	require.Equal(t, []string{"project:alpha", "project:beta", "user:alice"}, left)

	require.Nil(t, registry.Rooms("conn-1"))
	require.Nil(t, registry.MembersOf("project:beta"))
	require.Nil(t, registry.MembersOf("user:alice"))
	require.Equal(t, []string{"conn-2"}, registry.MembersOf("project:alpha"))

	// A second call finds nothing left to do.
	require.Nil(t, registry.LeaveAll("conn-1"))
}

func TestRegistrySnapshotIsDetached(t *testing.T) {
	registry := NewRegistry()

	registry.Join("conn-1", "project:alpha")
	registry.Join("conn-2", "project:alpha")

	snapshot := registry.MembersOf("project:alpha")
	require.Len(t, snapshot, 2)

	registry.Leave("conn-2", "project:alpha")

	// The earlier snapshot is unaffected by subsequent membership changes.
	require.Len(t, snapshot, 2)
	require.Equal(t, []string{"conn-1"}, registry.MembersOf("project:alpha"))
}

func TestRegistryEmptyInputsAreIgnored(t *testing.T) {
	registry := NewRegistry()

	registry.Join("", "project:alpha")
	registry.Join("conn-1", "")

	require.Nil(t, registry.MembersOf("project:alpha"))
	require.Nil(t, registry.Rooms("conn-1"))
	require.Nil(t, registry.LeaveAll(""))
}
