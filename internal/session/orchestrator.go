package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/schema"

	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/pkg/types"
)

const (
	// DefaultIdleTimeout is the maximum gap allowed between fragments.
	DefaultIdleTimeout = 60 * time.Second
	// ConnectMaxRetries is the maximum number of retries when opening the
	// completion stream. Never applied once the first fragment arrived.
	ConnectMaxRetries = 3
	// ConnectInitialInterval is the initial interval for connect backoff.
	ConnectInitialInterval = time.Second
	// ConnectMaxInterval is the maximum interval for connect backoff.
	ConnectMaxInterval = 15 * time.Second

	// missingSessionReply is streamed when the session does not exist.
	missingSessionReply = "Error: Could not find session."
	// apologyReply is streamed when the provider fails mid-turn.
	apologyReply = "Sorry, an error occurred while generating the response."
)

// ErrIdleTimeout is the provider failure reported when the stream stalls
// longer than the configured idle gap.
var ErrIdleTimeout = errors.New("completion stream idle timeout")

// Sink receives reply fragments in the order they were produced. A sink
// error means the caller is gone and consumption must stop.
type Sink func(fragment string) error

// OrchestratorConfig tunes turn execution.
type OrchestratorConfig struct {
	IdleTimeout    time.Duration
	ConnectRetries uint64
}

// Orchestrator runs a single conversational turn: it loads the session
// history, streams the model reply to a sink, and persists the completed
// user/assistant pair in one write.
type Orchestrator struct {
	store           *Store
	registry        *provider.Registry
	bus             *event.Bus
	idleTimeout     time.Duration
	connectRetries  uint64
	connectInterval time.Duration
}

// NewOrchestrator creates a turn orchestrator.
func NewOrchestrator(store *Store, registry *provider.Registry, bus *event.Bus, cfg OrchestratorConfig) *Orchestrator {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	retries := cfg.ConnectRetries
	if retries == 0 {
		retries = ConnectMaxRetries
	}
	return &Orchestrator{
		store:           store,
		registry:        registry,
		bus:             bus,
		idleTimeout:     idle,
		connectRetries:  retries,
		connectInterval: ConnectInitialInterval,
	}
}

type recvResult struct {
	fragment string
	err      error
}

// Run executes one turn against the given session. Fragments are forwarded
// to the sink as they arrive; the user/assistant pair is persisted only
// after the stream completed in full. Failures before completion surface to
// the caller as in-band fragments, never as partial persistence.
func (o *Orchestrator) Run(ctx context.Context, sessionID, query string, sink Sink) error {
	o.publish(event.TurnStarted, event.TurnStartedData{SessionID: sessionID})

	session, err := o.store.Get(ctx, sessionID)
	if err != nil {
		logging.Error().Str("sessionID", sessionID).Msg("turn aborted, session not found")
		o.failTurn(sessionID, "loading", err)
		if sinkErr := sink(missingSessionReply); sinkErr != nil {
			return sinkErr
		}
		return err
	}

	stream, err := o.openStream(ctx, session, query)
	if err != nil {
		logging.Error().Str("sessionID", sessionID).Err(err).Msg("failed to open completion stream")
		o.failTurn(sessionID, "streaming", err)
		if ctx.Err() != nil {
			return err
		}
		if sinkErr := sink(apologyReply); sinkErr != nil {
			return sinkErr
		}
		return err
	}
	defer stream.Close()

	chunks, err := o.consume(ctx, sessionID, stream, sink)
	if err != nil {
		return err
	}
	if chunks == nil {
		// Provider failure already reported in-band. Nothing to persist.
		return nil
	}

	reply := strings.Join(chunks, "")
	if err := o.store.AppendTurn(ctx, sessionID, query, reply); err != nil {
		// The reply already reached the caller in full. The failure is
		// observable on the event feed only.
		logging.Error().Str("sessionID", sessionID).Err(err).Msg("failed to persist turn")
		o.failTurn(sessionID, "persisting", err)
		return nil
	}

	o.publish(event.TurnCompleted, event.TurnCompletedData{
		SessionID: sessionID,
		Fragments: len(chunks),
	})
	return nil
}

// openStream builds the model request from stored history plus the new
// query and opens the completion stream, retrying creation with backoff.
func (o *Orchestrator) openStream(ctx context.Context, session *types.Session, query string) (*provider.CompletionStream, error) {
	prov, modelID, err := o.registry.Default()
	if err != nil {
		return nil, err
	}

	messages := make([]*schema.Message, 0, len(session.Messages)+1)
	for _, msg := range session.Messages {
		messages = append(messages, &schema.Message{
			Role:    schemaRole(msg.Role),
			Content: msg.Content,
		})
	}
	messages = append(messages, &schema.Message{Role: schema.User, Content: query})

	req := &provider.CompletionRequest{
		Model:    modelID,
		Messages: messages,
	}

	var stream *provider.CompletionStream
	operation := func() error {
		s, err := prov.CreateCompletion(ctx, req)
		if err != nil {
			return err
		}
		stream = s
		return nil
	}
	if err := backoff.Retry(operation, o.newConnectBackoff(ctx)); err != nil {
		return nil, err
	}
	return stream, nil
}

// consume drains the stream, forwarding fragments to the sink. It returns
// the accumulated fragments on success and nil on any handled failure; a
// non-nil error means the caller went away.
func (o *Orchestrator) consume(ctx context.Context, sessionID string, stream *provider.CompletionStream, sink Sink) ([]string, error) {
	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()

	results := make(chan recvResult)
	go func() {
		defer close(results)
		for {
			fragment, err := stream.Recv()
			select {
			case results <- recvResult{fragment: fragment, err: err}:
			case <-pumpCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	idle := time.NewTimer(o.idleTimeout)
	defer idle.Stop()

	chunks := []string{}
	for {
		select {
		case <-ctx.Done():
			stream.Close()
			logging.Info().Str("sessionID", sessionID).Msg("turn cancelled by caller")
			return nil, ctx.Err()

		case <-idle.C:
			stream.Close()
			logging.Error().Str("sessionID", sessionID).Str("timeout", o.idleTimeout.String()).Msg("completion stream stalled")
			o.failTurn(sessionID, "streaming", ErrIdleTimeout)
			if sinkErr := sink(apologyReply); sinkErr != nil {
				return nil, sinkErr
			}
			return nil, nil

		case res, ok := <-results:
			if !ok {
				// Pump exited on cancellation.
				return nil, ctx.Err()
			}
			if res.err == io.EOF {
				return chunks, nil
			}
			if res.err != nil {
				logging.Error().Str("sessionID", sessionID).Err(res.err).Msg("completion stream failed")
				o.failTurn(sessionID, "streaming", res.err)
				if sinkErr := sink(apologyReply); sinkErr != nil {
					return nil, sinkErr
				}
				return nil, nil
			}

			chunks = append(chunks, res.fragment)
			if sinkErr := sink(res.fragment); sinkErr != nil {
				stream.Close()
				return nil, fmt.Errorf("sink failed: %w", sinkErr)
			}

			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(o.idleTimeout)
		}
	}
}

func (o *Orchestrator) newConnectBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.connectInterval
	b.MaxInterval = ConnectMaxInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, o.connectRetries), ctx)
}

func (o *Orchestrator) failTurn(sessionID, stage string, err error) {
	o.publish(event.TurnErrored, event.TurnErroredData{
		SessionID: sessionID,
		Stage:     stage,
		Error:     err.Error(),
	})
}

func (o *Orchestrator) publish(t event.EventType, data any) {
	if o.bus != nil {
		o.bus.Publish(event.Event{Type: t, Data: data})
	}
}

func schemaRole(role types.Role) schema.RoleType {
	switch role {
	case types.RoleAssistant:
		return schema.Assistant
	case types.RoleSystem:
		return schema.System
	default:
		return schema.User
	}
}
