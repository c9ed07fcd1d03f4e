package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/lifecycle"
	"golang.org/x/sync/errgroup"
)

// DefaultBulkConcurrency bounds the number of concurrent FetchOne calls made
// by BulkLoadFromRemote.
const DefaultBulkConcurrency = 8

// Coordinator is the single point of truth for the decisions recorded in one
// namespace. It submits through a Transport, keeps the current decision per
// subject in memory and persists the whole map to a Store after every change.
//
// A Coordinator is safe for concurrent use.
type Coordinator struct {
	store     Store
	transport Transport
	logger    *slog.Logger
	bulkLimit int

	mu        sync.RWMutex
	namespace string
	ready     bool
	decisions map[string]Decision
	inFlight  map[string]int
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the logger used for absorbed failures.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBulkConcurrency bounds BulkLoadFromRemote fan-out. Values below 1 keep
// the default.
func WithBulkConcurrency(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.bulkLimit = n
		}
	}
}

// NewCoordinator creates a Coordinator. Call Initialize before use.
func NewCoordinator(store Store, transport Transport, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:     store,
		transport: transport,
		logger:    slog.Default(),
		bulkLimit: DefaultBulkConcurrency,
		decisions: make(map[string]Decision),
		inFlight:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize loads the persisted state of namespace into memory.
// Missing, corrupt or unreadable storage yields an empty state; only an
// invalid namespace is an error.
func (c *Coordinator) Initialize(ctx context.Context, namespace string) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}

	// Load under the lock so no RecordDecision lands between the read and
	// the swap.
	c.mu.Lock()
	defer c.mu.Unlock()
	decisions := c.load(ctx, namespace)
	c.namespace = namespace
	c.decisions = decisions
	c.ready = true

	c.logger.Debug("feedback state loaded", "namespace", namespace, "decisions", len(decisions))
	return nil
}

// Namespace returns the namespace the Coordinator was initialized with.
func (c *Coordinator) Namespace() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.namespace
}

// RecordDecision submits a decision and makes it the current one for
// subjectID.
//
// Workflow:
//  1. Validate arguments (misuse is the only error path).
//  2. Submit through the Transport; it degrades to a local ack on failure.
//  3. Update the in-memory map and persist the whole map.
//  4. Return the Transport's ack unchanged.
func (c *Coordinator) RecordDecision(ctx context.Context, subjectID string, decision Decision, kind string, metadata Metadata) (Ack, error) {
	if subjectID == "" {
		return Ack{}, fmt.Errorf("%w: subject ID cannot be empty", ErrInvalidArgument)
	}
	if !decision.Valid() {
		return Ack{}, fmt.Errorf("%w: unknown decision %q", ErrInvalidArgument, decision)
	}

	namespace, ok := c.current()
	if !ok {
		return Ack{}, ErrNotInitialized
	}

	c.setInFlight(subjectID, true)
	defer c.setInFlight(subjectID, false)

	md := Merge(Metadata{"component": namespace}, metadata)
	ack, err := c.transport.Submit(ctx, subjectID, decision, kind, md)
	if err != nil {
		return Ack{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.namespace != namespace {
		// Re-initialized into another namespace while the call was in flight.
		return ack, nil
	}
	c.decisions[subjectID] = decision
	c.persistLocked(ctx)

	return ack, nil
}

// CurrentDecision returns the current decision for subjectID.
func (c *Coordinator) CurrentDecision(subjectID string) (Decision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.decisions[subjectID]
	return d, ok
}

// HasDecision reports whether a decision exists for subjectID.
func (c *Coordinator) HasDecision(subjectID string) bool {
	_, ok := c.CurrentDecision(subjectID)
	return ok
}

// InFlight reports whether a submission for subjectID is in progress.
// UIs use it to disable controls while a call is pending.
func (c *Coordinator) InFlight(subjectID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inFlight[subjectID] > 0
}

// Decisions returns a copy of the current subject → decision map.
func (c *Coordinator) Decisions() map[string]Decision {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Decision, len(c.decisions))
	for k, v := range c.decisions {
		out[k] = v
	}
	return out
}

// Statistics derives totals from the in-memory map.
func (c *Coordinator) Statistics() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s Stats
	s.Total = len(c.decisions)
	for _, d := range c.decisions {
		switch d {
		case Accepted:
			s.Accepted++
		case Rejected:
			s.Rejected++
		}
	}
	s.AcceptanceRate = AcceptanceRate(s.Accepted, s.Total)
	return s
}

// ClearAll empties the in-memory state and the persisted blob of namespace.
// An empty namespace means the Coordinator's own.
func (c *Coordinator) ClearAll(ctx context.Context, namespace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		return ErrNotInitialized
	}
	if namespace != "" && namespace != c.namespace {
		return fmt.Errorf("%w: %q (coordinator owns %q)", ErrNamespaceMismatch, namespace, c.namespace)
	}

	if err := c.store.Clear(context.WithoutCancel(ctx), StorageKey(c.namespace)); err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", c.namespace, err)
	}
	c.decisions = make(map[string]Decision)
	c.logger.Debug("feedback state cleared", "namespace", c.namespace)
	return nil
}

// BulkResult reports the outcome of BulkLoadFromRemote.
type BulkResult struct {
	// Loaded is the number of subjects whose decision came from the remote.
	Loaded int
	// Failed lists the subjects whose fetch returned an error.
	Failed []string
}

// BulkLoadFromRemote fetches the remote decision of every subject
// concurrently and merges the successes over the current state. Failed
// subjects are left untouched; subjects the remote does not know are
// skipped.
func (c *Coordinator) BulkLoadFromRemote(ctx context.Context, subjectIDs []string) (BulkResult, error) {
	namespace, ok := c.current()
	if !ok {
		return BulkResult{}, ErrNotInitialized
	}

	ids := make([]string, 0, len(subjectIDs))
	seen := make(map[string]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		if id == "" {
			return BulkResult{}, fmt.Errorf("%w: subject ID cannot be empty", ErrInvalidArgument)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	records := make([]*Record, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(c.bulkLimit)
	for i, id := range ids {
		g.Go(func() error {
			records[i], errs[i] = c.transport.FetchOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	var result BulkResult
	fetched := make(map[string]Decision)
	for i, id := range ids {
		if errs[i] != nil {
			c.logger.Warn("failed to fetch feedback", "subject", id, "error", errs[i])
			result.Failed = append(result.Failed, id)
			continue
		}
		rec := records[i]
		if rec == nil {
			continue
		}
		if !rec.Decision.Valid() {
			c.logger.Debug("ignoring remote record with unknown decision", "subject", id, "decision", rec.Decision)
			continue
		}
		fetched[id] = rec.Decision
	}
	result.Loaded = len(fetched)

	if len(fetched) == 0 {
		return result, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.namespace != namespace {
		return result, nil
	}
	for id, d := range fetched {
		c.decisions[id] = d
	}
	c.persistLocked(ctx)

	return result, nil
}

// Reload replaces the in-memory state with what the Store holds. The read
// and the swap happen under the coordinator lock, so a decision recorded
// concurrently is either part of the loaded blob or applied after it.
func (c *Coordinator) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return ErrNotInitialized
	}
	c.decisions = c.load(ctx, c.namespace)
	return nil
}

// Follow reloads the state whenever another process changes the persisted
// blob of this namespace. It returns once watching has started; watching
// stops when ctx is done.
func (c *Coordinator) Follow(ctx context.Context) error {
	namespace, ok := c.current()
	if !ok {
		return ErrNotInitialized
	}

	w, ok := c.store.(Watchable)
	if !ok {
		return fmt.Errorf("store does not support watching")
	}

	events, err := w.Watch(ctx, StorageKey(namespace))
	if err != nil {
		return err
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		for e := range events {
			c.logger.Debug("external change detected", "event", e.String())
			if err := c.Reload(ctx); err != nil {
				return err
			}
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		c.logger.Error("follow loop stopped", "namespace", namespace, "error", err)
	}))

	return nil
}

// Close releases the store if it holds resources such as connection pools.
func (c *Coordinator) Close() error {
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// RemoteStatistics asks the transport for the service-wide counts.
func (c *Coordinator) RemoteStatistics(ctx context.Context) (RemoteStats, error) {
	r, ok := c.transport.(StatsReporter)
	if !ok {
		return RemoteStats{}, fmt.Errorf("transport does not report statistics")
	}
	return r.Stats(ctx)
}

func (c *Coordinator) current() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.namespace, c.ready
}

func (c *Coordinator) setInFlight(subjectID string, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if active {
		c.inFlight[subjectID]++
		return
	}
	if c.inFlight[subjectID] <= 1 {
		delete(c.inFlight, subjectID)
		return
	}
	c.inFlight[subjectID]--
}

// load reads and decodes the blob of namespace. Failures degrade to an
// empty state. Callers hold c.mu.
func (c *Coordinator) load(ctx context.Context, namespace string) map[string]Decision {
	decisions := make(map[string]Decision)

	blob, err := c.store.Load(ctx, StorageKey(namespace))
	if err != nil {
		c.logger.Warn("failed to load stored feedback", "namespace", namespace, "error", err)
		return decisions
	}

	for id, v := range blob {
		s, _ := v.(string)
		d := Decision(s)
		if !d.Valid() {
			c.logger.Debug("skipping stored entry with unknown decision", "namespace", namespace, "subject", id)
			continue
		}
		decisions[id] = d
	}
	return decisions
}

// persistLocked writes the whole map. c.mu must be held so that memory and
// storage agree on the last writer. Failures are logged, not returned.
func (c *Coordinator) persistLocked(ctx context.Context) {
	blob := make(Blob, len(c.decisions))
	for id, d := range c.decisions {
		blob[id] = string(d)
	}
	if err := c.store.Save(context.WithoutCancel(ctx), StorageKey(c.namespace), blob); err != nil {
		c.logger.Error("failed to save feedback", "namespace", c.namespace, "error", err)
	}
}
