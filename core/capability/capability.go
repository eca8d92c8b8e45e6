// Package capability defines the unit of work served by the gateway and
// derives its machine-readable contract.
//
// A capability declares its input shape as a Go struct. Field names come from
// `json` tags, human descriptions from `jsonschema_description` tags and
// defaults from `jsonschema:"default=..."` tags, so the author writes the
// schema exactly once.
package capability

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Capability is a named unit of work with a declared input shape and a
// single synchronous entry point.
type Capability interface {
	Name() string
	Description() string
	// Input returns a zero value of the struct describing accepted input.
	Input() any
	// Execute runs the capability. Any returned error is reported to the
	// caller as a typed failure.
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Func is the typed body of a capability built with New.
type Func[T any] func(ctx context.Context, in T) (map[string]any, error)

type typed[T any] struct {
	name        string
	description string
	run         Func[T]
}

// New builds a Capability whose input shape is T. The validated input map is
// decoded into a T before run is called.
func New[T any](name, description string, run Func[T]) Capability {
	return &typed[T]{name: name, description: description, run: run}
}

func (c *typed[T]) Name() string        { return c.name }
func (c *typed[T]) Description() string { return c.description }

func (c *typed[T]) Input() any {
	var zero T
	return zero
}

func (c *typed[T]) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	var in T
	if err := Decode(input, &in); err != nil {
		return nil, fmt.Errorf("decoding %s input: %w", c.name, err)
	}
	return c.run(ctx, in)
}

// Decode copies a loosely typed map into a struct using its json tags.
func Decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// renamed overrides the identity of a capability without touching its behavior.
type renamed struct {
	Capability
	name        string
	description string
}

func (r *renamed) Name() string        { return r.name }
func (r *renamed) Description() string { return r.description }

// WithIdentity returns c under a different name and/or description.
// Empty values keep the original.
func WithIdentity(c Capability, name, description string) Capability {
	if name == "" && description == "" {
		return c
	}
	if name == "" {
		name = c.Name()
	}
	if description == "" {
		description = c.Description()
	}
	return &renamed{Capability: c, name: name, description: description}
}
