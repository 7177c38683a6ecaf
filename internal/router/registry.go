package router

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/mtlprog/swaproute/internal/domain"
)

// Registry holds the registered routers in registration order.
type Registry struct {
	mu      sync.RWMutex
	routers map[domain.RouterID]Capability
	order   []domain.RouterID
}

// NewRegistry creates a registry with the given routers.
func NewRegistry(routers ...Capability) (*Registry, error) {
	r := &Registry{routers: make(map[domain.RouterID]Capability)}
	for _, c := range routers {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a router. Registering the same id twice is an error.
func (r *Registry) Register(c Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if _, exists := r.routers[id]; exists {
		return fmt.Errorf("router %s already registered", id)
	}
	r.routers[id] = c
	r.order = append(r.order, id)
	return nil
}

// Eligible returns the routers whose declared support covers both chains.
func (r *Registry) Eligible(from, to domain.ChainID) []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := lo.Map(r.order, func(id domain.RouterID, _ int) Capability { return r.routers[id] })
	return lo.Filter(all, func(c Capability, _ int) bool {
		return c.SupportsChains(from, to)
	})
}

// IDs returns registered router ids in registration order.
func (r *Registry) IDs() []domain.RouterID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.RouterID(nil), r.order...)
}
