package feedback

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/saferoomai/feedback/internal/platform"
	"github.com/saferoomai/feedback/pkg/core"
	"github.com/saferoomai/feedback/pkg/transport"
	"github.com/saferoomai/feedback/pkg/typed"
)

// --- Types ---

// Coordinator is a public alias for the feedback coordinator.
type Coordinator = core.Coordinator

// Decision is a public alias for a user's verdict on a suggestion.
type Decision = core.Decision

// Metadata is a public alias for free-form submission context.
type Metadata = core.Metadata

// Ack is a public alias for a submission acknowledgment.
type Ack = core.Ack

// Stats is a public alias for local statistics.
type Stats = core.Stats

// Decision values.
const (
	Accepted = core.Accepted
	Rejected = core.Rejected
)

// Recorder is a public alias for the typed recorder.
type Recorder[T any] = typed.Recorder[T]

// --- Configuration ---

// Option defines a functional option for configuring a Coordinator.
type Option = platform.Option

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a custom storage adapter.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithAdapter selects the storage adapter by name ("fs", "memory", "redis", "sql").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithStorePath sets the directory of the fs adapter.
func WithStorePath(path string) Option {
	return platform.WithStorePath(path)
}

// WithRedisAddr configures the redis adapter.
func WithRedisAddr(addr, password string, db int) Option {
	return platform.WithRedis(addr, password, db)
}

// WithSQL configures the sql adapter.
func WithSQL(driver, dsn string) Option {
	return platform.WithSQL(driver, dsn)
}

// WithReadOnly opens the fs store in read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the `go run` / `go test` sandbox of the fs store.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithForceTemp forces the fs store into a temporary directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithBulkConcurrency bounds BulkLoadFromRemote fan-out.
func WithBulkConcurrency(n int) Option {
	return platform.WithBulkConcurrency(n)
}

// WithBaseURL sets the root URL of the feedback API.
func WithBaseURL(url string) Option {
	return platform.WithBaseURL(url)
}

// WithTimeout bounds each request to the feedback API.
func WithTimeout(d time.Duration) Option {
	return platform.WithTimeout(d)
}

// WithHTTPClient replaces the HTTP client of the transport.
func WithHTTPClient(hc *http.Client) Option {
	return platform.WithHTTPClient(hc)
}

// WithRateLimit caps submissions per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return platform.WithRateLimit(perSecond, burst)
}

// WithContextProvider sets where user_agent and screen_resolution come from.
func WithContextProvider(p transport.ContextProvider) Option {
	return platform.WithContextProvider(p)
}

// WithRegisterer exports transport metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return platform.WithRegisterer(reg)
}

// --- Factory ---

// New creates a Coordinator for namespace and loads its persisted state.
func New(namespace string, opts ...Option) (*Coordinator, error) {
	return platform.New(namespace, opts...)
}

// NewRecorder creates a Coordinator and wraps it with typed metadata.
func NewRecorder[T any](namespace, kind string, opts ...Option) (*Recorder[T], error) {
	coord, err := New(namespace, opts...)
	if err != nil {
		return nil, err
	}
	return typed.NewRecorder[T](coord, kind), nil
}

// NewTransport creates a transport without a local store.
func NewTransport(opts ...Option) *transport.Client {
	return platform.NewTransport(opts...)
}

// ParseDecision converts user input to a Decision.
func ParseDecision(s string) (Decision, error) {
	return core.ParseDecision(s)
}

// --- Safety & Utils ---

// Namespaces lists the namespaces persisted in store.
func Namespaces(ctx context.Context, store core.Store) ([]string, error) {
	lister, ok := store.(core.KeyLister)
	if !ok {
		return nil, nil
	}
	keys, err := lister.Keys(ctx, core.StorageKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	namespaces := make([]string, 0, len(keys))
	for _, k := range keys {
		if ns, ok := core.NamespaceFromKey(k); ok {
			namespaces = append(namespaces, ns)
		}
	}
	return namespaces, nil
}

// OpenStore builds the store selected by opts without a coordinator.
func OpenStore(ctx context.Context, opts ...Option) (core.Store, error) {
	return platform.OpenStore(ctx, opts...)
}

// ResolveStorePath determines the actual fs store path based on safety rules.
func ResolveStorePath(userPath string, forceTemp bool) string {
	return platform.ResolveStorePath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindRoot recursively looks upwards for a project root indicator.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
