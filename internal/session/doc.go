// Package session provides chat session management for the Parley server.
//
// It contains the two halves of the conversation lifecycle:
//
//   - Store: CRUD operations over owned session records, plus AppendTurn,
//     which writes a completed user/assistant message pair in a single
//     atomic file replace.
//   - Orchestrator: execution of one conversational turn. It loads the
//     stored history, opens a completion stream through the provider
//     registry, forwards fragments to a caller-supplied sink as they
//     arrive, and persists the pair only once the stream finished in full.
//
// # Turn lifecycle
//
//	store := session.NewStore(storage, bus)
//	orch := session.NewOrchestrator(store, registry, bus, session.OrchestratorConfig{})
//
//	err := orch.Run(ctx, sessionID, "user query", func(fragment string) error {
//		// flush fragment to the client
//		return nil
//	})
//
// A turn moves through loading, streaming, and persisting. Failure in any
// stage leaves the store untouched: the caller gets a final in-band
// fragment (an apology, or an explanation for a missing session) instead
// of a partial turn. The one exception is a persistence failure after the
// full reply was already streamed; that is logged and published as a
// turn.errored event but never surfaced to the caller.
//
// Stream creation may be retried with exponential backoff before the
// first fragment. Once fragments flow there are no retries, and a stalled
// stream is cut off by the idle timeout.
package session
