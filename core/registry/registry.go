package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/pagegate/core/capability"
)

// Publisher mirrors a freshly published snapshot somewhere else.
type Publisher interface {
	Publish(ctx context.Context, s *Snapshot) error
}

// Registry owns the current snapshot. Reads are lock-free; writers
// serialize on mu and publish with a single atomic store.
type Registry struct {
	mu         sync.Mutex
	current    atomic.Pointer[Snapshot]
	publishers []Publisher
	logger     zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithPublisher adds a publisher notified after every swap.
func WithPublisher(p Publisher) Option {
	return func(r *Registry) { r.publishers = append(r.publishers, p) }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(NewSnapshot())
	return r
}

// Snapshot returns the current snapshot. It stays valid for as long as the
// caller holds it, even if a newer one is published meanwhile.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Register adds capabilities one by one, replacing any entry of the same name.
func (r *Registry) Register(ctx context.Context, caps ...capability.Capability) error {
	r.mu.Lock()
	next := r.current.Load()
	for _, c := range caps {
		if c == nil || c.Name() == "" {
			r.mu.Unlock()
			return errors.New("registering capability: name is required")
		}
		next = next.with(newEntry(c))
	}
	r.current.Store(next)
	r.mu.Unlock()

	r.logger.Debug().Int("capabilities", next.Len()).Msg("registry updated")
	r.publish(ctx, next)
	return nil
}

// Load runs discovery against location and publishes the result. On failure
// the previous snapshot stays current.
func (r *Registry) Load(ctx context.Context, d Discoverer, location string) (*Snapshot, error) {
	snap, err := d.Discover(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("loading capabilities from %s: %w", location, err)
	}

	r.mu.Lock()
	r.current.Store(snap)
	r.mu.Unlock()

	r.logger.Info().
		Str("source", location).
		Int("capabilities", snap.Len()).
		Int("skipped_units", len(snap.skipped)).
		Msg("registry loaded")
	r.publish(ctx, snap)
	return snap, nil
}

func (r *Registry) publish(ctx context.Context, s *Snapshot) {
	for _, p := range r.publishers {
		if err := p.Publish(ctx, s); err != nil {
			r.logger.Warn().Err(err).Msg("publishing registry snapshot")
		}
	}
}
