// Package provider wraps completion backends behind the Eino framework.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Provider is a single completion backend.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// CreateCompletion opens a streaming completion for the given
	// conversation history. The stream is finite and not restartable;
	// a new call repeats the full request. No retry is performed here.
	CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error)
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// Error reports a completion-backend failure: network, API error
// response, or malformed streaming payload. It is raised in-band at the
// point in the stream where it occurs.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a provider failure.
func NewError(providerID string, err error) *Error {
	return &Error{Provider: providerID, Err: err}
}

// IsProviderError reports whether err is (or wraps) a provider failure.
func IsProviderError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}

// CompletionStream yields incremental text fragments from an in-flight
// completion. Suspension occurs at each Recv; no fragment is produced
// until the next one arrives from the transport.
type CompletionStream struct {
	providerID string
	reader     *schema.StreamReader[*schema.Message]
	closeOnce  sync.Once
}

// NewCompletionStream wraps an Eino stream reader.
func NewCompletionStream(providerID string, reader *schema.StreamReader[*schema.Message]) *CompletionStream {
	return &CompletionStream{providerID: providerID, reader: reader}
}

// Recv returns the next non-empty text fragment. It reports io.EOF when
// the backend signals end-of-response, and a *Error for any transport or
// protocol failure, including failures after fragments were yielded.
// Metadata-only chunks (finish reasons, token usage) are skipped.
func (s *CompletionStream) Recv() (string, error) {
	for {
		msg, err := s.reader.Recv()
		if err == io.EOF {
			return "", io.EOF
		}
		if err != nil {
			return "", NewError(s.providerID, err)
		}
		if msg.Content != "" {
			return msg.Content, nil
		}
	}
}

// Close releases the stream. Pipe-backed Eino readers panic on a second
// Close, so repeated calls are collapsed to one.
func (s *CompletionStream) Close() {
	s.closeOnce.Do(s.reader.Close)
}
