/*
Package session contains the protocol state machine that connects transport events
to room state, presence, and execution, and decides broadcast fan-out.

This file defines the closed set of protocol message variants and the outbound
message envelope. Every inbound and outbound event type is statically known, so
dispatch is an exhaustive switch rather than string-keyed dynamic lookup.
*/
package session

import (
	"time"

	"coderoom/internal/app/presence"
	"coderoom/internal/app/room"
	"coderoom/internal/pkg/randx"
)

// MessageType identifies one protocol message variant.
type MessageType string

// Inbound message types, sent by clients.
const (
	TypeJoin       MessageType = "join"
	TypeCodeChange MessageType = "code_change"
	TypeLangChange MessageType = "lang_change"
	TypeCursorMove MessageType = "cursor_move"
	TypeExecute    MessageType = "execute"
)

// Outbound message types, sent by the server.
const (
	TypeInitState       MessageType = "init_state"
	TypeUserListUpdate  MessageType = "user_list_update"
	TypeCodeUpdate      MessageType = "code_update"
	TypeLangUpdate      MessageType = "lang_update"
	TypeCursorUpdate    MessageType = "cursor_update"
	TypeExecutionResult MessageType = "execution_result"
	TypeExecutionError  MessageType = "execution_error"
)

// Message is the outbound envelope written to clients.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// NewMessage wraps a payload in an outbound envelope with a fresh message id
// and a server-side timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		ID:        randx.MessageID(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// JoinPayload subscribes the connection to a room's broadcast group.
type JoinPayload struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

// CodeChangePayload replaces the room's document text wholesale.
type CodeChangePayload struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

// LangChangePayload replaces the room's selected language.
type LangChangePayload struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

// CursorMovePayload reports the sender's cursor position; never persisted.
type CursorMovePayload struct {
	RoomID   string            `json:"roomId"`
	Position presence.Position `json:"position"`
	UserName string            `json:"userName"`
}

// InitStatePayload is the full room snapshot sent to a newly joined connection
// to catch it up. Peer cursor positions are deliberately absent.
type InitStatePayload struct {
	Code     string        `json:"code"`
	Language string        `json:"language"`
	Output   *room.Outcome `json:"output"`
}

// ErrorEventPayload carries a readable failure message to the room.
type ErrorEventPayload struct {
	Message string `json:"message"`
}
