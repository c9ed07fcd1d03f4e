package platform

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/saferoomai/feedback/pkg/core"
	"github.com/saferoomai/feedback/pkg/transport"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterMemory = "memory"
	AdapterRedis  = "redis"
	AdapterSQL    = "sql"
)

// DefaultStoreDir is the fs store directory used when no path is given.
const DefaultStoreDir = ".feedback"

// options holds the internal configuration of a feedback Coordinator.
type options struct {
	store   core.Store
	logger  *slog.Logger
	adapter string
	config  map[string]interface{}

	transport     transport.Config
	httpClient    *http.Client
	contextSource transport.ContextProvider
	registerer    prometheus.Registerer
}

// Option defines a functional option for configuring a Coordinator.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter: AdapterFS,
		config:  make(map[string]interface{}),
	}
}

// WithLogger sets the logger shared by store, transport and coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a custom store. Adapter selection is skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAdapter selects the store adapter by name ("fs", "memory", "redis",
// "sql"). Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithStorePath sets the directory of the fs adapter.
func WithStorePath(path string) Option {
	return func(o *options) {
		o.config["store_path"] = path
	}
}

// WithRedis configures the redis adapter.
func WithRedis(addr, password string, db int) Option {
	return func(o *options) {
		o.config["redis_addr"] = addr
		o.config["redis_password"] = password
		o.config["redis_db"] = db
	}
}

// WithRedisPrefix namespaces every key on the Redis server.
func WithRedisPrefix(prefix string) Option {
	return func(o *options) {
		o.config["redis_prefix"] = prefix
	}
}

// WithSQL configures the sql adapter ("sqlite" or "postgres").
func WithSQL(driver, dsn string) Option {
	return func(o *options) {
		o.config["sql_driver"] = driver
		o.config["sql_dsn"] = dsn
	}
}

// WithReadOnly rejects every write to the fs store. The dev sandbox is
// bypassed since nothing can be damaged.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithMustExist requires the fs store directory to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
// By default (true) the fs store is re-rooted into a temporary directory.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

// WithForceTemp forces the fs store into the temporary sandbox.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithWatcherErrorHandler receives runtime failures of the fs watcher,
// which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithBulkConcurrency bounds concurrent fetches of BulkLoadFromRemote.
func WithBulkConcurrency(n int) Option {
	return func(o *options) {
		o.config["bulk_concurrency"] = n
	}
}

// WithBaseURL sets the root URL of the feedback API.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.transport.BaseURL = url
	}
}

// WithTimeout bounds each request to the feedback API.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.transport.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client of the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithRateLimit caps submissions per second. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.transport.RateLimit = perSecond
		o.transport.Burst = burst
	}
}

// WithContextProvider sets where user_agent and screen_resolution come from.
func WithContextProvider(p transport.ContextProvider) Option {
	return func(o *options) {
		o.contextSource = p
	}
}

// WithRegisterer exports transport counters on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
