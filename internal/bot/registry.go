package bot

import (
	"sync"

	"pointsbot/internal/logger"
)

// Registry multiplexes independent bot instances, one per credential
// token. Tokens are accepted as-is and instances are never evicted,
// mirroring the registration endpoint's contract.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*Instance
	factory   func(token string) (*Instance, error)
}

// NewRegistry builds a registry constructing instances with factory.
func NewRegistry(factory func(token string) (*Instance, error)) *Registry {
	return &Registry{
		instances: make(map[string]*Instance),
		factory:   factory,
	}
}

// Ensure returns the instance for token, constructing and starting it on
// first sight. Idempotent: racing calls with the same unseen token
// serialize on the registry lock and construct exactly one instance. The
// second result reports whether this call created it.
func (r *Registry) Ensure(token string) (*Instance, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instances[token]; ok {
		return inst, false, nil
	}

	inst, err := r.factory(token)
	if err != nil {
		return nil, false, err
	}
	r.instances[token] = inst
	InstancesStarted.Inc()
	go inst.Start()

	logger.Info("bot instance registered")
	return inst, true, nil
}

// Len reports the number of registered instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// StopAll stops every registered instance. Used at shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inst := range r.instances {
		inst.Stop()
	}
}
