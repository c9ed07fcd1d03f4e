package core

import "context"

// Blob is the JSON object persisted under a single key.
type Blob map[string]any

// Store defines the contract for durable, string-keyed JSON blobs.
// Adhering to this interface keeps the Coordinator independent of the
// underlying mechanism (files, Redis, SQL, memory).
type Store interface {
	// Load returns the blob stored under key.
	// A missing or unparseable blob yields (nil, nil); only real I/O
	// failures are returned as errors.
	Load(ctx context.Context, key string) (Blob, error)

	// Save replaces the blob stored under key.
	Save(ctx context.Context, key string, blob Blob) error

	// Clear removes key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error
}

// Initializer is implemented by stores that need setup before use
// (directories, schema migration, connection checks).
type Initializer interface {
	Initialize(ctx context.Context) error
}

// KeyLister is implemented by stores that can enumerate their keys.
type KeyLister interface {
	// Keys returns the stored keys matching a doublestar glob pattern.
	// An empty pattern matches everything.
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Watchable is implemented by stores that can report changes made by
// other processes.
type Watchable interface {
	// Watch emits an Event for every external change to a key matching
	// pattern. The channel is closed when ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Transport submits and queries feedback on the remote service.
type Transport interface {
	// Submit sends a decision. Transport failures are absorbed and reported
	// through Ack.Origin; only caller misuse returns an error.
	Submit(ctx context.Context, subjectID string, decision Decision, kind string, metadata Metadata) (Ack, error)

	// FetchOne returns the remote record for subjectID, or nil when the
	// service has none.
	FetchOne(ctx context.Context, subjectID string) (*Record, error)
}

// StatsReporter is implemented by transports that can report the aggregate
// counts kept by the remote service.
type StatsReporter interface {
	Stats(ctx context.Context) (RemoteStats, error)
}
