package store

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ProviderConfig holds the configuration needed to create a store instance.
type ProviderConfig struct {
	// Logger receives error reports from store operations. If nil, errors are silently ignored.
	Logger Logger

	// RedisAddress is the Redis/Valkey server address (e.g., "localhost:6379").
	RedisAddress string

	// RedisPassword is the password for the Redis/Valkey server.
	RedisPassword string

	// RedisDB is the Redis/Valkey database number.
	RedisDB int

	// KeyPrefix namespaces all keys written to external backends.
	KeyPrefix string

	// MaxRetries is how many times idempotent operations against external backends are retried
	// after a transient failure.
	MaxRetries int

	// RetryBackoff is the initial delay between retries; it doubles up to ten times its value.
	RetryBackoff time.Duration

	// Group is an optional label value used to namespace Prometheus metrics
	// (store_operations_total, store_operation_duration_seconds, store_documents).
	// When non-empty the store is automatically wrapped with metric instrumentation.
	Group string

	// Collections lists the collections whose document count is exported by the
	// store_documents gauge. Only used when Group is set.
	Collections []string
}

// Provider is a constructor function that creates a Store from config.
type Provider func(cfg ProviderConfig) (Store, error)

var (
	mu        sync.RWMutex
	providers = make(map[string]Provider)
)

// Register registers a store provider under the given name.
// It panics if the name is already registered or the provider is nil.
func Register(name string, p Provider) {
	mu.Lock()
	defer mu.Unlock()

	if p == nil {
		panic("store: Register provider is nil")
	}
	if _, exists := providers[name]; exists {
		panic(fmt.Sprintf("store: provider %q already registered", name))
	}
	providers[name] = p
}

// New creates a new Store using the named provider and the given config.
// When cfg.Group is non-empty the resulting store is wrapped with metric
// instrumentation and a lazy collector reporting the document count of
// cfg.Collections is registered.
func New(name string, cfg ProviderConfig) (Store, error) {
	mu.RLock()
	p, ok := providers[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("store: unknown provider %q (registered: %v)", name, RegisteredProviders())
	}

	inner, err := p(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Group == "" {
		return inner, nil
	}
	return newInstrumentedStore(inner, cfg.Group, cfg.Collections, cfg.Logger), nil
}

// RegisteredProviders returns a sorted list of registered provider names.
func RegisteredProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
