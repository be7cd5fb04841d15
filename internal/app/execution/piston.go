/*
Package execution coordinates remote code execution for rooms.

This file defines the Runner abstraction over the external execution service and
its HTTP implementation speaking the Piston wire protocol: the request carries
{language, version, files:[{content}]} and a successful response carries a run
object with the program output.
*/
package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"coderoom/internal/pkg/logx"
)

// Runner abstracts the external execution service: it accepts source code and
// returns the service's structured result body, or an error carrying a
// human-readable message.
type Runner interface {
	Run(ctx context.Context, language string, version string, sourceCode string) (json.RawMessage, error)
}

// runFile is one source file submitted for execution.
type runFile struct {
	Content string `json:"content"`
}

// runRequest is the Piston execute request body.
type runRequest struct {
	Language string    `json:"language"`
	Version  string    `json:"version"`
	Files    []runFile `json:"files"`
}

// runResponse is the subset of the Piston response needed to validate a result.
type runResponse struct {
	Run *struct {
		Output string `json:"output"`
	} `json:"run"`
	Message string `json:"message"`
}

// PistonRunner is the HTTP Runner implementation targeting a Piston-compatible endpoint.
type PistonRunner struct {
	apiURL string
	client *http.Client
	logger zerolog.Logger
}

// NewPistonRunner constructs a PistonRunner for the given execute endpoint.
// The client carries no timeout of its own; a hung service call stalls only the
// one request whose context it inherited.
func NewPistonRunner(apiURL string) *PistonRunner {
	return &PistonRunner{
		apiURL: apiURL,
		client: &http.Client{},
		logger: logx.Logger().With().Str("component", "PistonRunner").Logger(),
	}
}

// Run submits the source to the execution service and returns the raw result
// body on success. Network errors, non-2xx statuses, and malformed bodies are
// all surfaced as errors with a readable message.
func (p *PistonRunner) Run(ctx context.Context, language string, version string, sourceCode string) (json.RawMessage, error) {
	reqBody, err := json.Marshal(runRequest{
		Language: language,
		Version:  version,
		Files:    []runFile{{Content: sourceCode}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode execution request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build execution request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	p.logger.Info().Str("language", language).Str("version", version).Msg("Dispatching execution request.")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execution service unreachable: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read execution service response: %w", err)
	}

	var parsed runResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("execution service returned a malformed response")
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		if parsed.Message != "" {
			return nil, fmt.Errorf("%s", parsed.Message)
		}
		return nil, fmt.Errorf("execution service returned status %d", httpResp.StatusCode)
	}

	if parsed.Run == nil {
		return nil, fmt.Errorf("execution service returned a malformed response")
	}

	return json.RawMessage(body), nil
}
