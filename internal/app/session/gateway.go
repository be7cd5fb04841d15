/*
Package session contains the protocol state machine that connects transport events
to room state, presence, and execution, and decides broadcast fan-out.

This file defines the Gateway, the single dispatch loop for all rooms. Every
connection's events funnel through one channel in arrival order, so all room and
presence mutations happen on one logical thread of execution. The only suspension
point is the outbound call to the execution service, which runs in its own
goroutine while the loop keeps servicing every other event.
*/
package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"coderoom/internal/app/execution"
	"coderoom/internal/app/presence"
	"coderoom/internal/app/room"
	"coderoom/internal/pkg/logx"
)

const (
	eventChannelBuffer    = 256
	outboundChannelBuffer = 1024
)

// AnonymousName is the display name given to users who join without one.
const AnonymousName = "Anonymous"

// event is one parsed inbound frame together with its source connection.
type event struct {
	client  *Client
	msgType MessageType
	payload json.RawMessage
}

// delivery is one marshaled frame bound for a room's broadcast group.
type delivery struct {
	roomID    string
	frame     []byte
	excludeID string
}

// Gateway maps inbound transport events to registry, presence, and execution
// operations and fans resulting state out to the relevant subset of a room's
// connections. The members map is owned exclusively by the run loop.
type Gateway struct {
	registry    *room.Registry
	cursors     *presence.Tracker
	coordinator *execution.Coordinator

	// events receives parsed inbound frames, per-connection FIFO.
	events chan event

	// unregister receives connections whose transport dropped.
	unregister chan *Client

	// outbound receives deliveries published from other goroutines
	// (execution completions, the REST execute path).
	outbound chan delivery

	// stopChan signals the run loop to exit.
	stopChan chan struct{}

	// wg waits for the run loop during shutdown.
	wg sync.WaitGroup

	// members maps room id to the connections subscribed to its broadcasts.
	members map[string]map[string]*Client

	// structured logger with Gateway context.
	logger zerolog.Logger
}

// NewGateway constructs a Gateway over the given registry and cursor tracker.
// Call AttachCoordinator and then Start before serving connections.
func NewGateway(registry *room.Registry, cursors *presence.Tracker) *Gateway {
	return &Gateway{
		registry:   registry,
		cursors:    cursors,
		events:     make(chan event, eventChannelBuffer),
		unregister: make(chan *Client, eventChannelBuffer),
		outbound:   make(chan delivery, outboundChannelBuffer),
		stopChan:   make(chan struct{}),
		members:    make(map[string]map[string]*Client),
		logger:     logx.Logger().With().Str("component", "Gateway").Logger(),
	}
}

// AttachCoordinator wires the execution coordinator in after construction.
// The coordinator publishes back through the Gateway, so the two are built in
// two steps. Must be called before Start.
func (g *Gateway) AttachCoordinator(c *execution.Coordinator) {
	g.coordinator = c
}

// Start launches the dispatch loop.
func (g *Gateway) Start() {
	g.wg.Add(1)
	go g.run()
}

// Shutdown stops the dispatch loop and waits for it to drain.
func (g *Gateway) Shutdown() {
	g.logger.Info().Msg("Shutting down Gateway dispatch loop...")

	select {
	case <-g.stopChan:
	default:
		close(g.stopChan)
	}

	g.wg.Wait()

	g.logger.Info().Msg("Gateway shutdown complete.")
}

// dispatch forwards a parsed inbound frame into the run loop.
func (g *Gateway) dispatch(ev event) {
	select {
	case g.events <- ev:
	case <-g.stopChan:
	}
}

// Unregister notifies the run loop that a connection is gone.
// Safe to call from any goroutine.
func (g *Gateway) Unregister(c *Client) {
	select {
	case g.unregister <- c:
	case <-g.stopChan:
	}
}

// PublishExecutionResult broadcasts a successful execution result to every
// member of the room, including whichever member triggered it.
func (g *Gateway) PublishExecutionResult(roomID string, result json.RawMessage) {
	g.publish(roomID, NewMessage(TypeExecutionResult, result), "")
}

// PublishExecutionError broadcasts a normalized execution failure to every
// member of the room.
func (g *Gateway) PublishExecutionError(roomID string, message string) {
	g.publish(roomID, NewMessage(TypeExecutionError, ErrorEventPayload{Message: message}), "")
}

// publish marshals a message and hands it to the run loop for fan-out.
// Safe to call from any goroutine.
func (g *Gateway) publish(roomID string, msg Message, excludeID string) {
	frame, err := json.Marshal(msg)
	if err != nil {
		g.logger.Error().Err(err).Str("room_id", roomID).Msg("Error marshaling message for publish.")
		return
	}

	select {
	case g.outbound <- delivery{roomID: roomID, frame: frame, excludeID: excludeID}:
	case <-g.stopChan:
	default:
		g.logger.Warn().Str("room_id", roomID).Msg("Outbound channel full, dropping publish.")
	}
}

// run is the dispatch loop. It owns the members map; nothing else touches it.
func (g *Gateway) run() {
	defer func() {
		for _, conns := range g.members {
			for _, c := range conns {
				select {
				case <-c.send:
				default:
					close(c.send)
				}
			}
		}
		g.members = nil

		g.wg.Done()
	}()

	g.logger.Info().Msg("Gateway dispatch loop started.")

	for {
		select {
		case ev := <-g.events:
			g.handleEvent(ev)

		case c := <-g.unregister:
			g.handleDisconnect(c)

		case d := <-g.outbound:
			g.deliver(d)

		case <-g.stopChan:
			g.logger.Info().Msg("Gateway dispatch loop stopped.")
			return
		}
	}
}

// handleEvent dispatches one inbound frame over the closed set of message
// variants. Unknown types are logged and ignored: the protocol has no
// handshake, so malformed or premature events are never fatal.
func (g *Gateway) handleEvent(ev event) {
	switch ev.msgType {
	case TypeJoin:
		g.handleJoin(ev)
	case TypeCodeChange:
		g.handleCodeChange(ev)
	case TypeLangChange:
		g.handleLangChange(ev)
	case TypeCursorMove:
		g.handleCursorMove(ev)
	case TypeExecute:
		g.handleExecute(ev)
	default:
		g.logger.Warn().
			Str("msg_type", string(ev.msgType)).
			Str("client_id", ev.client.id).
			Msg("Client sent unsupported message type.")
	}
}

// handleJoin subscribes the connection to the room's broadcast group, adds the
// user to the roster, announces the roster to the whole room, and replies to
// the joiner with the full room snapshot.
func (g *Gateway) handleJoin(ev event) {
	var p JoinPayload
	if err := json.Unmarshal(ev.payload, &p); err != nil || p.RoomID == "" {
		g.logger.Warn().Str("client_id", ev.client.id).Msg("Client sent invalid join payload.")
		return
	}

	name := p.UserName
	if name == "" {
		name = AnonymousName
	}

	conns, ok := g.members[p.RoomID]
	if !ok {
		conns = make(map[string]*Client)
		g.members[p.RoomID] = conns
	}
	conns[ev.client.id] = ev.client
	ev.client.roomID = p.RoomID
	ev.client.name = name

	snapshot := g.registry.AddUser(p.RoomID, room.User{ID: ev.client.id, Name: name})

	g.logger.Info().
		Str("client_id", ev.client.id).
		Str("room_id", p.RoomID).
		Str("user_name", name).
		Msg("Client joined room.")

	// Roster goes to everyone, including the joiner.
	g.broadcastRoom(p.RoomID, NewMessage(TypeUserListUpdate, snapshot.Users), "")

	// The snapshot goes to the joiner only.
	g.sendTo(ev.client, NewMessage(TypeInitState, InitStatePayload{
		Code:     snapshot.Code,
		Language: snapshot.Language,
		Output:   snapshot.LastOutput,
	}))
}

// handleCodeChange replaces the document and fans the new text out to everyone
// but the sender, who already holds the authoritative value locally.
func (g *Gateway) handleCodeChange(ev event) {
	var p CodeChangePayload
	if err := json.Unmarshal(ev.payload, &p); err != nil {
		g.logger.Warn().Str("client_id", ev.client.id).Msg("Client sent invalid code_change payload.")
		return
	}

	if !g.joined(ev.client, p.RoomID) {
		return
	}

	g.registry.SetCode(p.RoomID, p.Code)

	g.broadcastRoom(p.RoomID, NewMessage(TypeCodeUpdate, p.Code), ev.client.id)
}

// handleLangChange replaces the language and fans it out to everyone including
// the sender, so every client reconciles through the same event path. The
// asymmetry with handleCodeChange is deliberate protocol behavior.
func (g *Gateway) handleLangChange(ev event) {
	var p LangChangePayload
	if err := json.Unmarshal(ev.payload, &p); err != nil {
		g.logger.Warn().Str("client_id", ev.client.id).Msg("Client sent invalid lang_change payload.")
		return
	}

	if !g.joined(ev.client, p.RoomID) {
		return
	}

	g.registry.SetLanguage(p.RoomID, p.Language)

	g.broadcastRoom(p.RoomID, NewMessage(TypeLangUpdate, p.Language), "")
}

// handleCursorMove relays the sender's cursor position to every other member of
// the room. Cursor positions mutate no room state.
func (g *Gateway) handleCursorMove(ev event) {
	var p CursorMovePayload
	if err := json.Unmarshal(ev.payload, &p); err != nil {
		g.logger.Warn().Str("client_id", ev.client.id).Msg("Client sent invalid cursor_move payload.")
		return
	}

	if !g.joined(ev.client, p.RoomID) {
		return
	}

	update := g.cursors.Track(ev.client.id, p.UserName, p.Position)

	g.broadcastRoom(p.RoomID, NewMessage(TypeCursorUpdate, update), ev.client.id)
}

// handleExecute delegates to the coordinator in its own goroutine so a slow
// execution service stalls only this request, never the dispatch loop. The
// outcome reaches the whole room, sender included, through the publish path.
func (g *Gateway) handleExecute(ev event) {
	var req execution.Request
	if err := json.Unmarshal(ev.payload, &req); err != nil {
		g.logger.Warn().Str("client_id", ev.client.id).Msg("Client sent invalid execute payload.")
		return
	}

	if !g.joined(ev.client, req.RoomID) {
		return
	}

	clientID := ev.client.id

	go func() {
		if _, execErr := g.coordinator.Execute(context.Background(), req); execErr != nil {
			g.logger.Warn().
				Str("client_id", clientID).
				Str("room_id", req.RoomID).
				Str("error", execErr.Message).
				Msg("Execution request failed.")
		}
	}()
}

// handleDisconnect removes the connection from every broadcast group, drops its
// cursor state, removes its roster entry, and notifies the remaining members.
// No broadcast happens when the room died with the departure.
func (g *Gateway) handleDisconnect(c *Client) {
	for roomID, conns := range g.members {
		if _, ok := conns[c.id]; ok {
			delete(conns, c.id)
			if len(conns) == 0 {
				delete(g.members, roomID)
			}
		}
	}

	g.cursors.Forget(c.id)

	removal, found := g.registry.RemoveUser(c.id)
	if found && !removal.Deleted {
		g.broadcastRoom(removal.RoomID, NewMessage(TypeUserListUpdate, removal.Room.Users), "")
	}

	select {
	case <-c.send:
	default:
		close(c.send)
	}

	g.logger.Info().Str("client_id", c.id).Msg("Client disconnected.")
}

// joined reports whether the connection previously joined the given room.
func (g *Gateway) joined(c *Client, roomID string) bool {
	conns, ok := g.members[roomID]
	if !ok {
		return false
	}

	_, ok = conns[c.id]
	if !ok {
		g.logger.Warn().
			Str("client_id", c.id).
			Str("room_id", roomID).
			Msg("Event for a room the client never joined. Ignored.")
	}
	return ok
}

// broadcastRoom marshals the message once and enqueues it for every member of
// the room except excludeID (empty means everyone).
func (g *Gateway) broadcastRoom(roomID string, msg Message, excludeID string) {
	conns, ok := g.members[roomID]
	if !ok {
		return
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		g.logger.Error().Err(err).Str("room_id", roomID).Msg("Error marshaling message for broadcast.")
		return
	}

	for id, c := range conns {
		if id == excludeID {
			continue
		}
		c.enqueue(frame)
	}
}

// deliver fans a published frame out inside the run loop.
func (g *Gateway) deliver(d delivery) {
	conns, ok := g.members[d.roomID]
	if !ok {
		return
	}

	for id, c := range conns {
		if id == d.excludeID {
			continue
		}
		c.enqueue(d.frame)
	}
}

// sendTo enqueues a message for a single connection.
func (g *Gateway) sendTo(c *Client, msg Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		g.logger.Error().Err(err).Str("client_id", c.id).Msg("Error marshaling message for client.")
		return
	}

	c.enqueue(frame)
}
