package room

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate_Defaults(t *testing.T) {
	reg := NewRegistry("python")

	r := reg.GetOrCreate("r1")

	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, "", r.Code)
	assert.Equal(t, "python", r.Language)
	assert.Empty(t, r.Users)
	assert.Nil(t, r.LastOutput)
	assert.True(t, reg.Exists("r1"))
}

func TestExists_DoesNotCreate(t *testing.T) {
	reg := NewRegistry("python")

	assert.False(t, reg.Exists("r1"))
	assert.False(t, reg.Exists("r1"), "a read-only check must not create the room")
}

func TestAddUser_Idempotent(t *testing.T) {
	reg := NewRegistry("python")

	reg.AddUser("r1", User{ID: "A", Name: "Alice"})
	r := reg.AddUser("r1", User{ID: "A", Name: "Alice"})

	require.Len(t, r.Users, 1)
	assert.Equal(t, "A", r.Users[0].ID)
}

func TestAddUser_PreservesJoinOrder(t *testing.T) {
	reg := NewRegistry("python")

	reg.AddUser("r1", User{ID: "A", Name: "Alice"})
	r := reg.AddUser("r1", User{ID: "B", Name: "Bob"})

	require.Len(t, r.Users, 2)
	assert.Equal(t, []User{{ID: "A", Name: "Alice"}, {ID: "B", Name: "Bob"}}, r.Users)
}

func TestRemoveUser_KeepsRoomWithRemainingMembers(t *testing.T) {
	reg := NewRegistry("python")
	reg.AddUser("r1", User{ID: "A", Name: "Alice"})
	reg.AddUser("r1", User{ID: "B", Name: "Bob"})

	removal, found := reg.RemoveUser("A")

	require.True(t, found)
	assert.Equal(t, "r1", removal.RoomID)
	assert.False(t, removal.Deleted)
	require.Len(t, removal.Room.Users, 1)
	assert.Equal(t, "B", removal.Room.Users[0].ID)
	assert.True(t, reg.Exists("r1"))
}

func TestRemoveUser_DestroysEmptyRoom(t *testing.T) {
	reg := NewRegistry("python")
	reg.AddUser("r1", User{ID: "A", Name: "Alice"})
	reg.SetCode("r1", "print(1)")

	removal, found := reg.RemoveUser("A")

	require.True(t, found)
	assert.True(t, removal.Deleted)
	assert.False(t, reg.Exists("r1"))

	// A later join gets a fresh room with defaults, not the stale state.
	fresh := reg.AddUser("r1", User{ID: "C", Name: "Cara"})
	assert.Equal(t, "", fresh.Code)
	assert.Equal(t, "python", fresh.Language)
	assert.Nil(t, fresh.LastOutput)
}

func TestRemoveUser_UnknownConnection(t *testing.T) {
	reg := NewRegistry("python")
	reg.AddUser("r1", User{ID: "A", Name: "Alice"})

	_, found := reg.RemoveUser("nobody")

	assert.False(t, found)
	assert.True(t, reg.Exists("r1"))
}

func TestSetters_ReplaceWholesale(t *testing.T) {
	reg := NewRegistry("python")

	r := reg.SetCode("r1", "print(1)")
	assert.Equal(t, "print(1)", r.Code)

	r = reg.SetLanguage("r1", "go")
	assert.Equal(t, "go", r.Language)
	assert.Equal(t, "print(1)", r.Code)

	r = reg.SetLastOutput("r1", Outcome{Result: json.RawMessage(`{"run":{"output":"1\n"}}`)})
	require.NotNil(t, r.LastOutput)
	assert.Empty(t, r.LastOutput.Error)

	// The next completion fully overwrites the previous outcome.
	r = reg.SetLastOutput("r1", Outcome{Error: "Execution failed: boom"})
	require.NotNil(t, r.LastOutput)
	assert.Nil(t, r.LastOutput.Result)
	assert.Equal(t, "Execution failed: boom", r.LastOutput.Error)
}

func TestSetters_CreateRoomImplicitly(t *testing.T) {
	reg := NewRegistry("python")

	reg.SetCode("r1", "x = 1")

	assert.True(t, reg.Exists("r1"))
}

func TestSnapshot_IsIsolatedFromLaterMutations(t *testing.T) {
	reg := NewRegistry("python")
	snapshot := reg.AddUser("r1", User{ID: "A", Name: "Alice"})

	reg.AddUser("r1", User{ID: "B", Name: "Bob"})
	reg.SetCode("r1", "changed")

	assert.Len(t, snapshot.Users, 1)
	assert.Equal(t, "", snapshot.Code)
}
