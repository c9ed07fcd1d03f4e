package core

import (
	"github.com/aretw0/introspection"
)

// CoordinatorState exposes internal state for observability.
type CoordinatorState struct {
	Namespace   string `json:"namespace"`
	Initialized bool   `json:"initialized"`
	Decisions   int    `json:"decisions"`
	InFlight    int    `json:"in_flight"`
	StoreType   string `json:"store_type"`
}

// State implements introspection.Introspectable.
func (c *Coordinator) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	storeType := "unknown"
	if c.store != nil {
		storeType = "store"
		if comp, ok := c.store.(introspection.Component); ok {
			storeType = comp.ComponentType()
		}
	}

	inFlight := 0
	for _, n := range c.inFlight {
		inFlight += n
	}

	return CoordinatorState{
		Namespace:   c.namespace,
		Initialized: c.ready,
		Decisions:   len(c.decisions),
		InFlight:    inFlight,
		StoreType:   storeType,
	}
}

// ComponentType implements introspection.Component.
func (c *Coordinator) ComponentType() string {
	return "coordinator"
}

var _ introspection.Introspectable = (*Coordinator)(nil)
var _ introspection.Component = (*Coordinator)(nil)
