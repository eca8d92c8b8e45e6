package registry

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/capability"
)

// Reason classifies a discovery failure.
type Reason string

const (
	ReasonLoadFailure    Reason = "load_failure"
	ReasonNotACapability Reason = "not_a_capability"
	ReasonEmptyRegistry  Reason = "empty_registry"
)

// DiscoveryError reports why a unit, or a whole scan, produced no capabilities.
type DiscoveryError struct {
	Reason Reason
	Unit   string
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("discovery %s [%s]", e.Reason, e.Unit)
	}
	return fmt.Sprintf("discovery %s [%s]: %v", e.Reason, e.Unit, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Is makes every DiscoveryError match core.ErrDiscovery.
func (e *DiscoveryError) Is(target error) bool { return target == core.ErrDiscovery }

// Discoverer turns a static description of where capabilities live into a
// registry snapshot.
type Discoverer interface {
	Discover(ctx context.Context, location string) (*Snapshot, error)
}

// Static discovers a fixed, compiled-in list of capabilities. The location
// is ignored.
type Static []capability.Capability

// Discover implements Discoverer.
func (s Static) Discover(ctx context.Context, location string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DiscoveryError{Reason: ReasonLoadFailure, Unit: location, Err: err}
	}
	snap := NewSnapshot(s...)
	if snap.Len() == 0 {
		return nil, &DiscoveryError{Reason: ReasonEmptyRegistry, Unit: location}
	}
	return snap, nil
}
