// Package registry holds the set of known capabilities as an immutable
// snapshot, and discovers capabilities from a source location.
//
// A Snapshot is never modified after it is published. Writers build a new
// snapshot and swap it in with a single atomic store, so readers always see
// one complete registry.
package registry

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/gaurav-prasanna/pagegate/core/capability"
)

// Entry is the registry's record for one capability. It owns the derived
// descriptor and the executable; callers only get copies of the former.
type Entry struct {
	descriptor capability.Descriptor
	impl       capability.Capability
}

func newEntry(c capability.Capability) *Entry {
	return &Entry{descriptor: capability.Introspect(c), impl: c}
}

// Name returns the registered name.
func (e *Entry) Name() string { return e.descriptor.Name }

// Descriptor returns a copy of the contract derived at registration.
func (e *Entry) Descriptor() capability.Descriptor { return e.descriptor.Clone() }

// Schema returns the JSON Schema document of the input shape.
func (e *Entry) Schema() *jsonschema.Schema { return capability.JSONSchema(e.impl) }

// Execute runs the underlying capability.
func (e *Entry) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	return e.impl.Execute(ctx, input)
}

// Snapshot is an immutable, ordered set of capabilities keyed by name.
type Snapshot struct {
	order   []string
	entries map[string]*Entry
	skipped []*DiscoveryError
}

// NewSnapshot builds a snapshot from caps in order. A later capability with
// an already-seen name replaces the earlier one but keeps its position.
// Nil capabilities and empty names are ignored.
func NewSnapshot(caps ...capability.Capability) *Snapshot {
	s := &Snapshot{entries: make(map[string]*Entry, len(caps))}
	for _, c := range caps {
		if c == nil || c.Name() == "" {
			continue
		}
		s.put(newEntry(c))
	}
	return s
}

func (s *Snapshot) put(e *Entry) {
	if _, exists := s.entries[e.Name()]; !exists {
		s.order = append(s.order, e.Name())
	}
	s.entries[e.Name()] = e
}

// with returns a copy of s that also contains e.
func (s *Snapshot) with(e *Entry) *Snapshot {
	next := &Snapshot{
		order:   append([]string(nil), s.order...),
		entries: make(map[string]*Entry, len(s.entries)+1),
		skipped: s.skipped,
	}
	for k, v := range s.entries {
		next.entries[k] = v
	}
	next.put(e)
	return next
}

// Names returns every registered name in registration order.
func (s *Snapshot) Names() []string {
	return append([]string{}, s.order...)
}

// Len returns the number of registered capabilities.
func (s *Snapshot) Len() int { return len(s.order) }

// Lookup finds a capability by name.
func (s *Snapshot) Lookup(name string) (*Entry, bool) {
	e, ok := s.entries[name]
	return e, ok
}

// Descriptors returns the contracts of all capabilities in registration order.
func (s *Snapshot) Descriptors() []capability.Descriptor {
	out := make([]capability.Descriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entries[name].Descriptor())
	}
	return out
}

// Skipped returns the unit failures recorded while this snapshot was discovered.
func (s *Snapshot) Skipped() []*DiscoveryError {
	return append([]*DiscoveryError(nil), s.skipped...)
}
