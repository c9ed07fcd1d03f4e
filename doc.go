// Package feedback is the Composition Root of the suggestion feedback
// coordinator.
//
// It connects the core logic (pkg/core) with a storage adapter
// (pkg/adapters) and the HTTP transport (pkg/transport).
//
// A Coordinator records accept/reject decisions on suggestions shown to a
// user, submits them to the feedback API and keeps the current decision per
// suggestion in durable storage, one blob per namespace, so the state
// survives restarts.
//
// Features:
//
//   - **Optimistic**: network failures degrade to a local acknowledgment.
//   - **Idempotent**: a (suggestion, decision) pair is sent once per transport.
//   - **Pluggable storage**: filesystem (default), memory, Redis or SQL.
//   - **Typed metadata**: `NewRecorder[T]` accepts your own structs.
//
// Usage:
//
//	coord, err := feedback.New("anomalies",
//		feedback.WithBaseURL("http://localhost:8080"),
//		feedback.WithLogger(logger),
//	)
//
//	ack, err := coord.RecordDecision(ctx, "a-42", feedback.Accepted, "anomaly", nil)
package feedback
