package platform

import (
	"fmt"
	"sort"
	"time"

	"spyglass/internal/config"
)

// Registry holds one adapter per configured platform.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds adapters for every platform in the configuration.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	registry := &Registry{adapters: make(map[string]Adapter, len(cfg.Platforms))}
	for name, pf := range cfg.Platforms {
		adapter, err := buildAdapter(name, pf)
		if err != nil {
			return nil, fmt.Errorf("platform %s: %w", name, err)
		}
		registry.adapters[name] = adapter
	}
	return registry, nil
}

func buildAdapter(name string, pf config.Platform) (Adapter, error) {
	switch pf.Mode {
	case "offline", "":
		return NewOfflineAdapter(name), nil
	case "http":
		return NewHTTPAdapter(HTTPAdapterOptions{
			Platform:  name,
			BaseURL:   pf.BaseURL,
			UserAgent: pf.UserAgent,
			Timeout:   time.Duration(pf.TimeoutSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unsupported adapter mode %q", pf.Mode)
	}
}

// Register installs or replaces the adapter for its platform.
func (r *Registry) Register(adapter Adapter) {
	if adapter == nil {
		return
	}
	if r.adapters == nil {
		r.adapters = make(map[string]Adapter)
	}
	r.adapters[adapter.Platform()] = adapter
}

// Adapter returns the adapter for a platform name.
func (r *Registry) Adapter(name string) (Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Supported reports whether a platform has an adapter.
func (r *Registry) Supported(name string) bool {
	_, ok := r.adapters[name]
	return ok
}

// Names returns the registered platform names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
