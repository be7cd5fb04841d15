/*
Package randx provides functions for generating unique identifiers.

It is primarily used to mint per-connection ids and outbound message ids.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnectionID generates a UUID v4 string used as the unique id of one live connection.
func ConnectionID() string {
	return uuid.New().String()
}

// MessageID generates a UUID v4 string to serve as a unique identifier for an outbound message.
func MessageID() string {
	return uuid.New().String()
}
