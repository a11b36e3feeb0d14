package secret

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory creates a Provider from configuration.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates a registry with the built-in "env" and "file" factories.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]ProviderFactory{
		"env":  newEnvProvider,
		"file": newFileProvider,
	}}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return fmt.Errorf("%w: empty name or nil factory", ErrInvalidRef)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %q", ErrProviderExists, name)
	}
	r.factories[name] = factory
	return nil
}

// Create builds the provider registered under name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return factory(cfg)
}

// List returns registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in providers.
var DefaultRegistry = NewRegistry()

func stringOption(cfg map[string]any, key string) (string, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("secret: option %q must be a string, got %T", key, v)
	}
	return s, nil
}

func newEnvProvider(cfg map[string]any) (Provider, error) {
	prefix, err := stringOption(cfg, "prefix")
	if err != nil {
		return nil, err
	}
	return &EnvProvider{Prefix: prefix}, nil
}

func newFileProvider(cfg map[string]any) (Provider, error) {
	dir, err := stringOption(cfg, "dir")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, fmt.Errorf("secret: file provider requires \"dir\"")
	}
	return &FileProvider{Dir: dir}, nil
}
