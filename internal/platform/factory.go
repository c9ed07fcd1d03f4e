package platform

import (
	"context"

	"github.com/saferoomai/feedback/pkg/core"
	"github.com/saferoomai/feedback/pkg/transport"
)

// New wires store, transport and coordinator and initializes the
// coordinator for namespace.
//
//	coord, err := feedback.New("anomalies", feedback.WithBaseURL("http://api:8080"))
func New(namespace string, opts ...Option) (*core.Coordinator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := core.ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	ctx := context.Background()
	store, err := openStore(ctx, o)
	if err != nil {
		return nil, err
	}

	coord := core.NewCoordinator(store, newTransport(o), coordinatorOptions(o)...)
	if err := coord.Initialize(ctx, namespace); err != nil {
		_ = coord.Close()
		return nil, err
	}
	return coord, nil
}

func newTransport(o *options) *transport.Client {
	return transport.New(o.transport,
		transport.WithLogger(o.logger),
		transport.WithHTTPClient(o.httpClient),
		transport.WithContextProvider(o.contextSource),
		transport.WithRegisterer(o.registerer),
	)
}

// NewTransport builds the HTTP transport described by opts, for callers
// that talk to the feedback API without a local store.
func NewTransport(opts ...Option) *transport.Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return newTransport(o)
}

func coordinatorOptions(o *options) []core.CoordinatorOption {
	coordOpts := []core.CoordinatorOption{core.WithLogger(o.logger)}
	if n, ok := o.config["bulk_concurrency"].(int); ok {
		coordOpts = append(coordOpts, core.WithBulkConcurrency(n))
	}
	return coordOpts
}
