/*
Package presence maintains the ephemeral, per-connection side channel of cursor positions.

Cursor state is volatile: it is never part of Room state and never included in the
snapshot sent to new joiners. A joiner sees the roster, but learns a peer's cursor
only when that peer next moves it.
*/
package presence

import (
	"hash/fnv"
	"sync"
)

// PaletteSize is the number of cursor decoration colors clients cycle through.
// Every peer derives the same palette slot for a given connection id, so no
// server-side color assignment or coordination is needed.
const PaletteSize = 8

// Position is a cursor location inside the shared document.
type Position struct {
	Line   int `json:"lineNumber"`
	Column int `json:"column"`
}

// CursorUpdate is the payload relayed to every room member except the mover.
type CursorUpdate struct {
	ID         string   `json:"id"`
	UserName   string   `json:"userName"`
	Position   Position `json:"position"`
	ColorIndex int      `json:"colorIndex"`
}

// Tracker keeps the latest known cursor position per connection.
type Tracker struct {
	mu      sync.RWMutex
	cursors map[string]Position
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		cursors: make(map[string]Position),
	}
}

// Track records the connection's latest cursor position and returns the update
// payload to relay to the rest of the room.
func (t *Tracker) Track(connectionID string, userName string, pos Position) CursorUpdate {
	t.mu.Lock()
	t.cursors[connectionID] = pos
	t.mu.Unlock()

	return CursorUpdate{
		ID:         connectionID,
		UserName:   userName,
		Position:   pos,
		ColorIndex: PaletteIndex(connectionID),
	}
}

// Last returns the most recently tracked position for the connection id.
func (t *Tracker) Last(connectionID string) (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pos, ok := t.cursors[connectionID]
	return pos, ok
}

// Forget drops the connection's cursor state on disconnect.
func (t *Tracker) Forget(connectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.cursors, connectionID)
}

// PaletteIndex maps a connection id to a palette slot as a pure, deterministic
// function (FNV-1a folded into the palette size). All peers converge on the
// same slot for the same id without any communication.
func PaletteIndex(connectionID string) int {
	h := fnv.New32a()
	h.Write([]byte(connectionID))
	return int(h.Sum32() % PaletteSize)
}
