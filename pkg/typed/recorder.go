// Package typed lets callers describe decision metadata with their own
// structs instead of raw maps.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/saferoomai/feedback/pkg/core"
)

// Record is a core.Record whose metadata has been decoded into T.
type Record[T any] struct {
	core.Record
	Data T
}

// Recorder wraps a core.Coordinator to provide type-safe metadata.
type Recorder[T any] struct {
	coord *core.Coordinator
	kind  string
}

// NewRecorder creates a Recorder that tags every decision with kind
// (the subject kind, e.g. "anomaly").
func NewRecorder[T any](coord *core.Coordinator, kind string) *Recorder[T] {
	return &Recorder[T]{coord: coord, kind: kind}
}

// Record submits decision with data as metadata.
func (r *Recorder[T]) Record(ctx context.Context, subjectID string, decision core.Decision, data T) (core.Ack, error) {
	md, err := Encode(data)
	if err != nil {
		return core.Ack{}, err
	}
	return r.coord.RecordDecision(ctx, subjectID, decision, r.kind, md)
}

// Accept records an accept decision.
func (r *Recorder[T]) Accept(ctx context.Context, subjectID string, data T) (core.Ack, error) {
	return r.Record(ctx, subjectID, core.Accepted, data)
}

// Reject records a reject decision.
func (r *Recorder[T]) Reject(ctx context.Context, subjectID string, data T) (core.Ack, error) {
	return r.Record(ctx, subjectID, core.Rejected, data)
}

// Coordinator returns the wrapped coordinator.
func (r *Recorder[T]) Coordinator() *core.Coordinator {
	return r.coord
}

// Fetch retrieves the remote record of subjectID and decodes its metadata.
// A subject unknown to the service yields (nil, nil).
func Fetch[T any](ctx context.Context, t core.Transport, subjectID string) (*Record[T], error) {
	rec, err := t.FetchOne(ctx, subjectID)
	if err != nil || rec == nil {
		return nil, err
	}
	data, err := Decode[T](rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", subjectID, err)
	}
	return &Record[T]{Record: *rec, Data: data}, nil
}

// Encode converts v to metadata through its JSON form. v must encode to a
// JSON object.
func Encode[T any](v T) (core.Metadata, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed metadata: %w", err)
	}
	var md core.Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, fmt.Errorf("failed to convert typed metadata to map: %w", err)
	}
	return md, nil
}

// Decode is the inverse of Encode. Keys unknown to T are ignored.
func Decode[T any](md core.Metadata) (T, error) {
	var out T
	if md == nil {
		return out, nil
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return out, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal into typed metadata: %w", err)
	}
	return out, nil
}
