package providers

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/federation/internal/domain/repository"
)

// Factory crea una instancia de adapter.
type Factory func(cfg Config) (Adapter, error)

// Registry mantiene factories por proveedor e instancias cacheadas por servicio.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	cache     map[string]cachedAdapter // key: service id

	// Endpoints y HTTPClient se inyectan en cada Config creado por el registry.
	Endpoints  map[string]map[string]string // provider → overrides
	HTTPClient *http.Client
}

type cachedAdapter struct {
	adapter   Adapter
	updatedAt time.Time
}

// NewRegistry crea un registry vacío.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		cache:     make(map[string]cachedAdapter),
	}
}

// RegisterFactory registra la factory de un proveedor. Se llama al arrancar.
func (r *Registry) RegisterFactory(provider string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[provider] = f
}

// ForService devuelve el adapter del servicio, cacheado mientras el servicio no cambie.
func (r *Registry) ForService(s *repository.Service) (Adapter, error) {
	r.mu.RLock()
	if c, ok := r.cache[s.ID]; ok && c.updatedAt.Equal(s.UpdatedAt) {
		r.mu.RUnlock()
		return c.adapter, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.cache[s.ID]; ok && c.updatedAt.Equal(s.UpdatedAt) {
		return c.adapter, nil
	}

	factory, ok := r.factories[s.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: provider not registered: %s", ErrMisconfigured, s.Provider)
	}
	cfg := ConfigFromService(s)
	cfg.Endpoints = r.Endpoints[s.Provider]
	cfg.HTTPClient = r.HTTPClient
	a, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", s.Provider, err)
	}
	r.cache[s.ID] = cachedAdapter{adapter: a, updatedAt: s.UpdatedAt}
	return a, nil
}

// AvailableProviders devuelve los proveedores registrados, ordenados.
func (r *Registry) AvailableProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invalidate descarta la instancia cacheada de un servicio.
func (r *Registry) Invalidate(serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, serviceID)
}
