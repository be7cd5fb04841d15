/*
Package execution coordinates remote code execution for rooms.

This file defines the Coordinator, which validates execution requests, forwards
them to the Runner, reconciles the outcome into the room's state, and publishes
the result to every member of the room.
*/
package execution

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"coderoom/internal/app/room"
	"coderoom/internal/pkg/errs"
	"coderoom/internal/pkg/logx"
)

// DefaultVersion is the wildcard version sent when the request omits one.
const DefaultVersion = "*"

// Request carries everything needed to execute code on behalf of a room.
type Request struct {
	RoomID     string `json:"roomId"`
	Language   string `json:"language"`
	SourceCode string `json:"sourceCode"`
	Version    string `json:"version,omitempty"`
}

// Publisher fans execution outcomes out to every member of a room, including
// whichever member triggered the run, so all viewers see the same output.
type Publisher interface {
	PublishExecutionResult(roomID string, result json.RawMessage)
	PublishExecutionError(roomID string, message string)
}

// Coordinator forwards execution requests to the external service and
// reconciles results into room state. Concurrent requests for the same room
// are not serialized: whichever completes last overwrites the room's
// last output, regardless of issue order.
type Coordinator struct {
	registry *room.Registry
	runner   Runner
	events   Publisher
	logger   zerolog.Logger
}

// NewCoordinator constructs a Coordinator over the given registry, runner, and publisher.
func NewCoordinator(registry *room.Registry, runner Runner, events Publisher) *Coordinator {
	return &Coordinator{
		registry: registry,
		runner:   runner,
		events:   events,
		logger:   logx.Logger().With().Str("component", "Coordinator").Logger(),
	}
}

// Execute validates the request, runs it against the external service, stores
// the outcome as the room's last output, and publishes it to the room.
//
// A request missing roomId, language, or sourceCode fails immediately with a
// validation error: the external service is never contacted and no room state
// changes. Remote failures never propagate as panics; they are normalized into
// a readable message, stored, published, and returned to the caller.
func (c *Coordinator) Execute(ctx context.Context, req Request) (json.RawMessage, *errs.CustomError) {
	if req.RoomID == "" || req.Language == "" || req.SourceCode == "" {
		return nil, errs.NewError(errs.ErrExecMissingFields)
	}

	version := req.Version
	if version == "" {
		version = DefaultVersion
	}

	c.logger.Info().
		Str("room_id", req.RoomID).
		Str("language", req.Language).
		Msg("Executing code.")

	result, err := c.runner.Run(ctx, req.Language, version, req.SourceCode)
	if err != nil {
		c.logger.Warn().
			Str("room_id", req.RoomID).
			Err(err).
			Msg("Execution failed.")

		execErr := errs.NewError(errs.ErrExecFailed, err.Error())

		c.registry.SetLastOutput(req.RoomID, room.Outcome{Error: execErr.Message})
		c.events.PublishExecutionError(req.RoomID, execErr.Message)

		return nil, execErr
	}

	c.registry.SetLastOutput(req.RoomID, room.Outcome{Result: result})
	c.events.PublishExecutionResult(req.RoomID, result)

	return result, nil
}
