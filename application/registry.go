package application

import (
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
)

// Registry maps names to running servers. Servers given a registry
// register under their agent ID on start and unregister on exit.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*Server
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{servers: make(map[string]*Server)}
}

// Register adds a server under name.
func (r *Registry) Register(name string, s *Server) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.servers[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.servers[name] = s
	return nil
}

// Lookup returns the server registered under name.
func (r *Registry) Lookup(name string) (*Server, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.servers[name]
	return s, ok
}

// Unregister removes name if it still maps to s.
func (r *Registry) Unregister(name string, s *Server) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.servers[name] == s {
		delete(r.servers, name)
	}
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.servers))
	for name := range r.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered servers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.servers)
}

// Modules maps module names to agent factories.
type Modules struct {
	mu        sync.RWMutex
	factories map[string]agent.Factory
}

// NewModules creates an empty module registry.
func NewModules() *Modules {
	return &Modules{factories: make(map[string]agent.Factory)}
}

// Register adds a factory under name.
func (m *Modules) Register(name string, f agent.Factory) error {
	if f == nil {
		return fmt.Errorf("%w: nil factory for %s", ErrModuleLoadFailed, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	m.factories[name] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (m *Modules) MustRegister(name string, f agent.Factory) {
	if err := m.Register(name, f); err != nil {
		panic(err)
	}
}

// Lookup returns the factory registered under name.
func (m *Modules) Lookup(name string) (agent.Factory, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.factories[name]
	return f, ok
}

// Names returns the registered module names in sorted order.
func (m *Modules) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.factories))
	for name := range m.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
