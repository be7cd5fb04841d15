/*
Package room contains the authoritative in-memory store for shared room state.

This file defines the data model: the Room aggregate, the User entry of the roster,
and the Outcome of the most recent code execution.
*/
package room

import "encoding/json"

// User represents one roster entry, scoped to a single live connection.
// Identity and name are immutable for the lifetime of the connection.
type User struct {
	// ID is the connection identifier, unique per active connection.
	ID string `json:"id"`

	// Name is the caller-supplied display name.
	Name string `json:"name"`
}

// Outcome is the result of the most recent code execution for a room.
// Exactly one of Result and Error is set: Result carries the execution
// service's structured response body, Error a normalized failure message.
type Outcome struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Room is the unit of shared collaborative state, identified by an opaque string id.
// Code, Language, and LastOutput are always defined once the room exists, even if
// still at their default values.
type Room struct {
	// ID is the caller-supplied room identifier.
	ID string `json:"roomId"`

	// Code is the current full document text.
	Code string `json:"code"`

	// Language is the selected execution language tag.
	Language string `json:"language"`

	// Users is the roster in join order, unique by connection id.
	Users []User `json:"users"`

	// LastOutput is the outcome of the most recent execution, nil until the first one completes.
	LastOutput *Outcome `json:"lastOutput"`
}

// snapshot returns a defensive copy of the room so callers can marshal or
// broadcast it without racing later mutations of the registry's copy.
func (r *Room) snapshot() Room {
	users := make([]User, len(r.Users))
	copy(users, r.Users)

	out := Room{
		ID:       r.ID,
		Code:     r.Code,
		Language: r.Language,
		Users:    users,
	}

	if r.LastOutput != nil {
		o := *r.LastOutput
		out.LastOutput = &o
	}

	return out
}
