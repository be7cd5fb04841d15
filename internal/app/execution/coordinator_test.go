package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coderoom/internal/app/room"
	"coderoom/internal/pkg/errs"
)

// fakeRunner scripts the execution service. When gate is non-nil, each Run call
// blocks until the test releases it, which lets tests control completion order.
type fakeRunner struct {
	mu     sync.Mutex
	calls  int
	result json.RawMessage
	err    error
	gate   chan json.RawMessage
}

func (f *fakeRunner) Run(ctx context.Context, language, version, sourceCode string) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.gate != nil {
		return <-f.gate, nil
	}

	return f.result, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakePublisher records what the coordinator fanned out.
type fakePublisher struct {
	mu      sync.Mutex
	results []json.RawMessage
	errors  []string
	done    chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{done: make(chan struct{}, 16)}
}

func (f *fakePublisher) PublishExecutionResult(roomID string, result json.RawMessage) {
	f.mu.Lock()
	f.results = append(f.results, result)
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *fakePublisher) PublishExecutionError(roomID string, message string) {
	f.mu.Lock()
	f.errors = append(f.errors, message)
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *fakePublisher) waitPublished(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a publish")
	}
}

func TestExecute_MissingFieldsRejectedBeforeRemoteCall(t *testing.T) {
	cases := []struct {
		name string
		req  Request
	}{
		{"missing roomId", Request{Language: "python", SourceCode: "print(1)"}},
		{"missing language", Request{RoomID: "r1", SourceCode: "print(1)"}},
		{"missing sourceCode", Request{RoomID: "r1", Language: "python"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := room.NewRegistry("python")
			runner := &fakeRunner{}
			pub := newFakePublisher()
			coord := NewCoordinator(reg, runner, pub)

			result, execErr := coord.Execute(context.Background(), tc.req)

			require.NotNil(t, execErr)
			assert.Equal(t, errs.ErrExecMissingFields, execErr.Code)
			assert.Equal(t, http.StatusBadRequest, execErr.Status)
			assert.Nil(t, result)

			assert.Equal(t, 0, runner.callCount(), "the execution service must never be contacted")
			assert.False(t, reg.Exists("r1"), "no room state may be touched")
			assert.Empty(t, pub.results)
			assert.Empty(t, pub.errors)
		})
	}
}

func TestExecute_SuccessStoresAndPublishes(t *testing.T) {
	reg := room.NewRegistry("python")
	body := json.RawMessage(`{"language":"python","run":{"output":"1\n"}}`)
	runner := &fakeRunner{result: body}
	pub := newFakePublisher()
	coord := NewCoordinator(reg, runner, pub)

	result, execErr := coord.Execute(context.Background(), Request{
		RoomID:     "r1",
		Language:   "python",
		SourceCode: "print(1)",
	})

	require.Nil(t, execErr)
	assert.Equal(t, body, result)
	assert.Equal(t, 1, runner.callCount())

	snapshot := reg.GetOrCreate("r1")
	require.NotNil(t, snapshot.LastOutput)
	assert.Equal(t, body, snapshot.LastOutput.Result)
	assert.Empty(t, snapshot.LastOutput.Error)

	require.Len(t, pub.results, 1)
	assert.Equal(t, body, pub.results[0])
	assert.Empty(t, pub.errors)
}

func TestExecute_FailureNormalizedStoredAndPublished(t *testing.T) {
	reg := room.NewRegistry("python")
	runner := &fakeRunner{err: errors.New("service unavailable")}
	pub := newFakePublisher()
	coord := NewCoordinator(reg, runner, pub)

	result, execErr := coord.Execute(context.Background(), Request{
		RoomID:     "r1",
		Language:   "python",
		SourceCode: "print(1)",
	})

	require.NotNil(t, execErr)
	assert.Nil(t, result)
	assert.Equal(t, errs.ErrExecFailed, execErr.Code)
	assert.Equal(t, http.StatusInternalServerError, execErr.Status)
	assert.Equal(t, "Execution failed: service unavailable", execErr.Message)

	snapshot := reg.GetOrCreate("r1")
	require.NotNil(t, snapshot.LastOutput)
	assert.Nil(t, snapshot.LastOutput.Result)
	assert.Equal(t, "Execution failed: service unavailable", snapshot.LastOutput.Error)

	require.Len(t, pub.errors, 1)
	assert.Equal(t, "Execution failed: service unavailable", pub.errors[0])
	assert.Empty(t, pub.results)
}

func TestExecute_VersionDefaultsToWildcard(t *testing.T) {
	reg := room.NewRegistry("python")
	var gotVersion string
	runner := runnerFunc(func(ctx context.Context, language, version, sourceCode string) (json.RawMessage, error) {
		gotVersion = version
		return json.RawMessage(`{"run":{"output":""}}`), nil
	})
	coord := NewCoordinator(reg, runner, newFakePublisher())

	_, execErr := coord.Execute(context.Background(), Request{
		RoomID:     "r1",
		Language:   "python",
		SourceCode: "pass",
	})

	require.Nil(t, execErr)
	assert.Equal(t, DefaultVersion, gotVersion)
}

// runnerFunc adapts a function to the Runner interface.
type runnerFunc func(ctx context.Context, language, version, sourceCode string) (json.RawMessage, error)

func (f runnerFunc) Run(ctx context.Context, language, version, sourceCode string) (json.RawMessage, error) {
	return f(ctx, language, version, sourceCode)
}

// TestExecute_LastCompletionWins pins the documented overwrite race: with two
// in-flight executions for the same room, the stored outcome is whichever
// completed last, independent of which request was issued first.
func TestExecute_LastCompletionWins(t *testing.T) {
	reg := room.NewRegistry("python")
	runner := &fakeRunner{gate: make(chan json.RawMessage)}
	pub := newFakePublisher()
	coord := NewCoordinator(reg, runner, pub)

	run := func(i int) {
		_, execErr := coord.Execute(context.Background(), Request{
			RoomID:     "r1",
			Language:   "python",
			SourceCode: fmt.Sprintf("print(%d)", i),
		})
		assert.Nil(t, execErr)
	}

	// Issue X first, then Y; both block inside the runner.
	go run(1)
	go run(2)

	resultY := json.RawMessage(`{"run":{"output":"Y"}}`)
	resultX := json.RawMessage(`{"run":{"output":"X"}}`)

	// Release one completion as Y, wait for it to land, then complete X.
	runner.gate <- resultY
	pub.waitPublished(t)

	runner.gate <- resultX
	pub.waitPublished(t)

	snapshot := reg.GetOrCreate("r1")
	require.NotNil(t, snapshot.LastOutput)
	assert.Equal(t, resultX, snapshot.LastOutput.Result, "last completion wins")
}
