/*
Package room contains the authoritative in-memory store for shared room state.

This file defines the Registry, which owns the room map. Rooms exist implicitly
from first reference (get-or-create) and are destroyed the instant their last
member leaves. The Registry has no knowledge of transport.
*/
package room

import (
	"sync"

	"github.com/rs/zerolog"

	"coderoom/internal/pkg/logx"
)

// Registry is the authoritative store of all active rooms.
// Every operation is atomic: the internal lock makes each call a single
// all-or-nothing replace, so concurrent callers never observe a half-applied
// mutation. The room map is never mutated outside this type.
type Registry struct {
	// rooms stores all live Room instances, keyed by room id.
	rooms map[string]*Room

	// defaultLanguage is the language assigned to freshly created rooms.
	defaultLanguage string

	// mu protects concurrent access to the rooms map.
	mu sync.RWMutex

	// structured logger with Registry context.
	logger zerolog.Logger
}

// Removal describes the effect of removing a user from whatever room held it.
type Removal struct {
	// RoomID is the id of the affected room.
	RoomID string

	// Room is the state of the room after removal. When Deleted is true it is
	// the final (empty-roster) state and the room no longer exists.
	Room Room

	// Deleted reports whether the room was destroyed because it became empty.
	Deleted bool
}

// NewRegistry constructs an empty Registry whose new rooms default to the given language.
func NewRegistry(defaultLanguage string) *Registry {
	return &Registry{
		rooms:           make(map[string]*Room),
		defaultLanguage: defaultLanguage,
		logger:          logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// Exists reports whether a room with the given id currently has state.
// Unlike the mutating operations, it never creates the room.
func (g *Registry) Exists(roomID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.rooms[roomID]
	return ok
}

// GetOrCreate returns a snapshot of the room, creating it with defaults first
// if it does not exist. It never fails.
func (g *Registry) GetOrCreate(roomID string) Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.getOrCreateLocked(roomID).snapshot()
}

// getOrCreateLocked returns the live room for roomID, creating it if needed.
// Callers must hold mu.
func (g *Registry) getOrCreateLocked(roomID string) *Room {
	r, ok := g.rooms[roomID]
	if !ok {
		r = &Room{
			ID:       roomID,
			Code:     "",
			Language: g.defaultLanguage,
			Users:    []User{},
		}
		g.rooms[roomID] = r

		g.logger.Info().Str("room_id", roomID).Msg("Room created.")
	}

	return r
}

// AddUser inserts the user into the room's roster unless an entry with the same
// id is already present, and returns the resulting room snapshot so the caller
// can broadcast the roster. Insertion order is join order.
func (g *Registry) AddUser(roomID string, u User) Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.getOrCreateLocked(roomID)

	for _, existing := range r.Users {
		if existing.ID == u.ID {
			return r.snapshot()
		}
	}

	r.Users = append(r.Users, u)

	g.logger.Info().
		Str("room_id", roomID).
		Str("user_id", u.ID).
		Int("total_users", len(r.Users)).
		Msg("User joined room.")

	return r.snapshot()
}

// RemoveUser scans all rooms for the connection id and removes the first match.
// If the room becomes empty it is deleted immediately. The second return value
// is false when no room held the connection.
func (g *Registry) RemoveUser(connectionID string) (Removal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for roomID, r := range g.rooms {
		idx := -1
		for i, u := range r.Users {
			if u.ID == connectionID {
				idx = i
				break
			}
		}
		if idx == -1 {
			continue
		}

		r.Users = append(r.Users[:idx], r.Users[idx+1:]...)

		removal := Removal{RoomID: roomID, Room: r.snapshot()}

		if len(r.Users) == 0 {
			delete(g.rooms, roomID)
			removal.Deleted = true

			g.logger.Info().Str("room_id", roomID).Msg("Room is empty. Room destroyed.")
		} else {
			g.logger.Info().
				Str("room_id", roomID).
				Str("user_id", connectionID).
				Int("total_users", len(r.Users)).
				Msg("User left room.")
		}

		return removal, true
	}

	return Removal{}, false
}

// SetCode replaces the room's document text wholesale (no diffing, no merge)
// and returns the resulting snapshot.
func (g *Registry) SetCode(roomID string, code string) Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.getOrCreateLocked(roomID)
	r.Code = code

	return r.snapshot()
}

// SetLanguage replaces the room's selected language wholesale and returns the
// resulting snapshot.
func (g *Registry) SetLanguage(roomID string, language string) Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.getOrCreateLocked(roomID)
	r.Language = language

	return r.snapshot()
}

// SetLastOutput replaces the room's last execution outcome wholesale and
// returns the resulting snapshot. Whichever execution completes last wins.
func (g *Registry) SetLastOutput(roomID string, outcome Outcome) Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.getOrCreateLocked(roomID)
	r.LastOutput = &outcome

	return r.snapshot()
}
