// Package transport talks to the remote feedback API.
//
// Submissions never fail because of the network: when the service is
// unreachable or answers with an error the Client synthesizes a local
// acknowledgment so callers can proceed optimistically.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/saferoomai/feedback/pkg/core"
)

const (
	// DefaultBaseURL is used when Config.BaseURL is empty.
	DefaultBaseURL = "http://localhost:8080"
	// DefaultTimeout bounds every request made with the default HTTP client.
	DefaultTimeout = 10 * time.Second

	// LocalMessage is the message of synthesized acknowledgments.
	LocalMessage = "recorded locally"

	apiPrefix    = "/api/feedback"
	maxErrorBody = 512
)

// Config holds the connection settings of a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps submissions per second. Zero disables limiting.
	RateLimit float64
	Burst     int
}

// Client implements core.Transport over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	context    ContextProvider
	limiter    *rate.Limiter
	metrics    *metrics
	registerer prometheus.Registerer
	now        func() time.Time

	flight singleflight.Group

	mu    sync.RWMutex
	cache map[string]cacheEntry
	seq   uint64
}

type cacheEntry struct {
	ack core.Ack
	seq uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (whose timeout is
// Config.Timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContextProvider sets where user_agent and screen_resolution come from.
func WithContextProvider(p ContextProvider) Option {
	return func(c *Client) {
		if p != nil {
			c.context = p
		}
	}
}

// WithRegisterer exports the client's counters on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = reg
	}
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Client. It performs no I/O.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
		context:    HostContext(),
		now:        time.Now,
		cache:      make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	c.metrics = newMetrics(c.registerer)
	return c
}

func cacheKey(subjectID string, decision core.Decision) string {
	return subjectID + "_" + string(decision)
}

// Submit sends a decision to the feedback API.
//
// A (subjectID, decision) pair is sent at most once per Client while it is
// the subject's latest decision: repeats are answered from the submission
// cache with Replayed set, and concurrent identical calls share a single
// request. Changing the decision always hits the network. Any transport failure yields a
// local acknowledgment instead of an error.
func (c *Client) Submit(ctx context.Context, subjectID string, decision core.Decision, kind string, metadata core.Metadata) (core.Ack, error) {
	if subjectID == "" {
		return core.Ack{}, fmt.Errorf("%w: empty subject id", core.ErrInvalidArgument)
	}
	if !decision.Valid() {
		return core.Ack{}, fmt.Errorf("%w: decision %q", core.ErrInvalidArgument, decision)
	}

	key := cacheKey(subjectID, decision)
	if ack, ok := c.cached(key); ok {
		return ack, nil
	}

	v, _, _ := c.flight.Do(key, func() (any, error) {
		if ack, ok := c.cached(key); ok {
			return ack, nil
		}
		ack := c.send(ctx, subjectID, decision, kind, metadata)
		c.store(subjectID, decision, ack)
		return ack, nil
	})
	return v.(core.Ack), nil
}

func (c *Client) cached(key string) (core.Ack, bool) {
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if !ok {
		return core.Ack{}, false
	}
	c.metrics.cacheHits.Inc()
	c.logger.Debug("feedback already submitted", "key", key)
	ack := entry.ack
	ack.Replayed = true
	return ack, true
}

// store caches ack and forgets the opposite decision for the subject, so
// switching back to it is sent again.
func (c *Client) store(subjectID string, decision core.Decision, ack core.Ack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range []core.Decision{core.Accepted, core.Rejected} {
		if d != decision {
			delete(c.cache, cacheKey(subjectID, d))
		}
	}
	c.seq++
	c.cache[cacheKey(subjectID, decision)] = cacheEntry{ack: ack, seq: c.seq}
}

// send performs the request and converts every failure into a local ack.
func (c *Client) send(ctx context.Context, subjectID string, decision core.Decision, kind string, metadata core.Metadata) core.Ack {
	ack, err := c.post(ctx, subjectID, decision, kind, metadata)
	if err != nil {
		c.logger.Warn("failed to submit feedback, recording locally",
			"suggestion_id", subjectID, "feedback_type", decision, "error", err)
		c.metrics.submitted(core.OriginLocal)
		return core.Ack{
			Success:   true,
			SubjectID: subjectID,
			Decision:  decision,
			Message:   LocalMessage,
			Origin:    core.OriginLocal,
		}
	}

	c.metrics.submitted(core.OriginRemote)
	c.logger.Info("feedback event",
		"suggestion_id", subjectID,
		"feedback_type", decision,
		"suggestion_type", kind,
	)
	return ack
}

func (c *Client) post(ctx context.Context, subjectID string, decision core.Decision, kind string, metadata core.Metadata) (core.Ack, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return core.Ack{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	payload := core.Record{
		SubjectID:   subjectID,
		Decision:    decision,
		SubjectKind: kind,
		Metadata:    core.Merge(c.context.ClientContext().metadata(), metadata),
		SubmittedAt: c.now().UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return core.Ack{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, apiPrefix+"/submit", body)
	if err != nil {
		return core.Ack{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.Ack{}, statusError(resp)
	}

	var ack core.Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return core.Ack{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if ack.SubjectID == "" {
		ack.SubjectID = subjectID
	}
	if ack.Decision == "" {
		ack.Decision = decision
	}
	ack.Origin = core.OriginRemote
	return ack, nil
}

// FetchOne returns the remote record for subjectID. A 404 means the
// service has none and yields (nil, nil).
func (c *Client) FetchOne(ctx context.Context, subjectID string) (*core.Record, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("%w: empty subject id", core.ErrInvalidArgument)
	}

	resp, err := c.do(ctx, http.MethodGet, apiPrefix+"/"+url.PathEscape(subjectID), nil)
	if err != nil {
		c.metrics.fetches.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.metrics.fetches.WithLabelValues("not_found").Inc()
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.metrics.fetches.WithLabelValues("error").Inc()
		return nil, statusError(resp)
	}

	var record core.Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		c.metrics.fetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode record %s: %w", subjectID, err)
	}
	if record.SubjectID == "" {
		record.SubjectID = subjectID
	}
	c.metrics.fetches.WithLabelValues("found").Inc()
	return &record, nil
}

// Stats returns the aggregate counts kept by the service. Failures are
// logged and reported as zero counts.
func (c *Client) Stats(ctx context.Context) (core.RemoteStats, error) {
	stats, err := c.fetchStats(ctx)
	if err != nil {
		c.logger.Warn("failed to fetch feedback stats", "error", err)
		return core.RemoteStats{}, nil
	}
	return stats, nil
}

func (c *Client) fetchStats(ctx context.Context) (core.RemoteStats, error) {
	resp, err := c.do(ctx, http.MethodGet, apiPrefix+"/stats", nil)
	if err != nil {
		return core.RemoteStats{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.RemoteStats{}, statusError(resp)
	}

	var stats core.RemoteStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return core.RemoteStats{}, fmt.Errorf("failed to decode stats: %w", err)
	}
	return stats, nil
}

// CachedDecision returns the decision most recently submitted through this
// Client for subjectID.
func (c *Client) CachedDecision(subjectID string) (core.Decision, bool) {
	prefix := subjectID + "_"

	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		best  core.Decision
		found bool
		seq   uint64
	)
	for key, entry := range c.cache {
		if !strings.HasPrefix(key, prefix) || !core.Decision(key[len(prefix):]).Valid() {
			continue
		}
		if !found || entry.seq > seq {
			best, seq, found = core.Decision(key[len(prefix):]), entry.seq, true
		}
	}
	return best, found
}

// ResetCache forgets every submission, so the next Submit of any pair hits
// the network again.
func (c *Client) ResetCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

var _ core.Transport = (*Client)(nil)
