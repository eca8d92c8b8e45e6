// Package gateway is the uniform call surface over the registry: it lists
// capabilities, serves their contracts, and validates and dispatches
// invocations with per-call failure isolation.
package gateway

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/capability"
	"github.com/gaurav-prasanna/pagegate/core/registry"
)

const (
	tracerName = "github.com/gaurav-prasanna/pagegate/core/gateway"
	// unknownLabel stands in for names that are not registered, so arbitrary
	// caller input cannot grow the metric label set.
	unknownLabel = "_unknown"
)

// Gateway dispatches requests to the capabilities of a registry.
type Gateway struct {
	registry *registry.Registry
	logger   zerolog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the invocation logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithMetrics enables prometheus collection.
func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithTracer sets the tracer used for invocation spans.
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

// New creates a gateway over reg.
func New(reg *registry.Registry, opts ...Option) *Gateway {
	g := &Gateway{
		registry: reg,
		logger:   zerolog.Nop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Registry returns the registry the gateway reads from.
func (g *Gateway) Registry() *registry.Registry { return g.registry }

// ListCapabilities returns every registered name in registration order.
func (g *Gateway) ListCapabilities() []string {
	return g.registry.Snapshot().Names()
}

// GetContract returns the descriptor registered under name.
func (g *Gateway) GetContract(name string) (capability.Descriptor, error) {
	entry, ok := g.registry.Snapshot().Lookup(name)
	if !ok {
		return capability.Descriptor{}, notFound(name)
	}
	return entry.Descriptor(), nil
}

// Schema returns the JSON Schema document of name's input shape.
func (g *Gateway) Schema(name string) (*jsonschema.Schema, error) {
	entry, ok := g.registry.Snapshot().Lookup(name)
	if !ok {
		return nil, notFound(name)
	}
	return entry.Schema(), nil
}

// Invoke looks up, validates and executes one request. It never panics and
// never returns an error: every failure is carried in the Result.
//
// The capability runs against the snapshot current at lookup time, so a
// concurrent rescan never affects a call already in flight. ctx is handed to
// the capability unchanged.
func (g *Gateway) Invoke(ctx context.Context, req Request) Result {
	id := uuid.NewString()
	start := time.Now()

	ctx, span := g.tracer.Start(ctx, "capability.invoke", trace.WithAttributes(
		attribute.String("capability.name", req.Capability),
		attribute.String("invocation.id", id),
	))
	defer span.End()

	entry, ok := g.registry.Snapshot().Lookup(req.Capability)
	var result Result
	if !ok {
		result = Result{failure: notFound(req.Capability)}
	} else {
		result = g.run(ctx, entry, req.Input)
	}

	elapsed := time.Since(start)
	label := req.Capability
	if !ok {
		label = unknownLabel
	}
	outcome := "success"
	ev := g.logger.Info()
	if f := result.Failure(); f != nil {
		outcome = string(f.Kind)
		ev = g.logger.Warn().Str("kind", string(f.Kind)).Str("error", f.Message)
		span.SetStatus(codes.Error, f.Message)
		span.SetAttributes(attribute.String("failure.kind", string(f.Kind)))
	}
	g.metrics.observe(label, outcome, elapsed)
	ev.Str("invocation_id", id).
		Str("capability", req.Capability).
		Dur("duration", elapsed).
		Msg("capability invoked")

	return result
}

func (g *Gateway) run(ctx context.Context, entry *registry.Entry, input map[string]any) Result {
	validated, failure := validate(entry.Descriptor().InputFields, input)
	if failure != nil {
		return Result{failure: failure}
	}

	output, err := g.execute(ctx, entry, validated)
	if err != nil {
		kind := core.KindOf(err)
		if kind != core.KindMissingInput {
			kind = core.KindExecution
		}
		return Fail(kind, "%s", unwrapFailure(err))
	}
	return Success(output)
}

// execute runs the capability, turning a panic into an error.
func (g *Gateway) execute(ctx context.Context, entry *registry.Entry, input map[string]any) (output map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().
				Str("capability", entry.Name()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("capability panicked")
			err = fmt.Errorf("capability %s panicked: %v", entry.Name(), r)
		}
	}()
	return entry.Execute(ctx, input)
}

// unwrapFailure keeps the message of a typed failure without repeating its
// kind prefix.
func unwrapFailure(err error) string {
	if f, ok := err.(*core.Failure); ok {
		return f.Message
	}
	return err.Error()
}

func notFound(name string) *core.Failure {
	return core.NewFailure(core.KindNotFound, "capability %q not found", name)
}
