package registry

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/pagegate/core/capability"
)

const (
	// DefaultPattern selects manifest units inside the source directory.
	DefaultPattern = "*.{yaml,yml}"
	// DefaultAPIVersions is the manifest api_version range this build reads.
	DefaultAPIVersions = ">= 1.0, < 2.0"
)

//go:embed manifest.schema.json
var manifestSchema string

// Spec is one capability declaration inside a manifest.
type Spec struct {
	Kind        string         `yaml:"kind"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Options     map[string]any `yaml:"options"`
}

// Manifest is a single discovery unit.
type Manifest struct {
	APIVersion   string `yaml:"api_version"`
	Capabilities []Spec `yaml:"capabilities"`
}

// Factory builds a capability from its manifest declaration.
type Factory func(spec Spec) (capability.Capability, error)

// Catalog maps a manifest kind to the compiled-in factory that implements it.
type Catalog map[string]Factory

// Kinds returns the catalog keys in sorted order.
func (c Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c))
	for k := range c {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ManifestDiscoverer scans one directory level for manifest files and
// instantiates the capabilities they declare from a Catalog.
type ManifestDiscoverer struct {
	catalog    Catalog
	pattern    string
	versions   string
	constraint *semver.Constraints
	schema     *jsonschema.Schema
	logger     zerolog.Logger
}

// ManifestOption configures a ManifestDiscoverer.
type ManifestOption func(*ManifestDiscoverer)

// WithPattern sets the doublestar pattern unit file names must match.
func WithPattern(pattern string) ManifestOption {
	return func(d *ManifestDiscoverer) { d.pattern = pattern }
}

// WithAPIVersions sets the accepted api_version constraint.
func WithAPIVersions(constraint string) ManifestOption {
	return func(d *ManifestDiscoverer) { d.versions = constraint }
}

// WithDiscoveryLogger sets the logger used for skipped-unit warnings.
func WithDiscoveryLogger(logger zerolog.Logger) ManifestOption {
	return func(d *ManifestDiscoverer) { d.logger = logger }
}

// NewManifestDiscoverer creates a discoverer over catalog.
func NewManifestDiscoverer(catalog Catalog, opts ...ManifestOption) (*ManifestDiscoverer, error) {
	d := &ManifestDiscoverer{
		catalog:  catalog,
		pattern:  DefaultPattern,
		versions: DefaultAPIVersions,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if strings.Contains(d.pattern, "/") || !doublestar.ValidatePattern(d.pattern) {
		return nil, fmt.Errorf("invalid unit pattern %q", d.pattern)
	}

	constraint, err := semver.NewConstraint(d.versions)
	if err != nil {
		return nil, fmt.Errorf("parsing api version constraint: %w", err)
	}
	d.constraint = constraint

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest.schema.json", strings.NewReader(manifestSchema)); err != nil {
		return nil, fmt.Errorf("loading manifest schema: %w", err)
	}
	schema, err := compiler.Compile("manifest.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling manifest schema: %w", err)
	}
	d.schema = schema

	return d, nil
}

// Discover implements Discoverer. Units that fail are skipped, logged and
// recorded on the snapshot; the scan fails only when nothing loads.
func (d *ManifestDiscoverer) Discover(ctx context.Context, location string) (*Snapshot, error) {
	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, &DiscoveryError{Reason: ReasonLoadFailure, Unit: location, Err: err}
	}

	var (
		caps    []capability.Capability
		skipped []*DiscoveryError
		units   int
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := doublestar.Match(d.pattern, entry.Name()); !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, &DiscoveryError{Reason: ReasonLoadFailure, Unit: location, Err: err}
		}
		units++

		path := filepath.Join(location, entry.Name())
		unitCaps, err := d.loadUnit(path)
		if err != nil {
			var de *DiscoveryError
			if !errors.As(err, &de) {
				de = &DiscoveryError{Reason: ReasonLoadFailure, Unit: path, Err: err}
			}
			d.logger.Warn().
				Str("unit", path).
				Str("reason", string(de.Reason)).
				Err(de.Err).
				Msg("skipping capability unit")
			skipped = append(skipped, de)
			continue
		}
		d.logger.Debug().Str("unit", path).Int("capabilities", len(unitCaps)).Msg("loaded capability unit")
		caps = append(caps, unitCaps...)
	}

	snap := NewSnapshot(caps...)
	if snap.Len() == 0 {
		return nil, &DiscoveryError{
			Reason: ReasonEmptyRegistry,
			Unit:   location,
			Err:    fmt.Errorf("no capabilities loaded (%d units, %d skipped)", units, len(skipped)),
		}
	}
	snap.skipped = skipped
	return snap, nil
}

// loadUnit reads, validates and instantiates a single manifest. A unit is
// all-or-nothing: one bad declaration rejects the whole file.
func (d *ManifestDiscoverer) loadUnit(path string) ([]capability.Capability, error) {
	loadFailure := func(err error) error {
		return &DiscoveryError{Reason: ReasonLoadFailure, Unit: path, Err: err}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, loadFailure(err)
	}
	if err := d.validate(raw); err != nil {
		return nil, loadFailure(err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, loadFailure(fmt.Errorf("parsing manifest: %w", err))
	}

	version, err := semver.NewVersion(m.APIVersion)
	if err != nil {
		return nil, loadFailure(fmt.Errorf("parsing api_version %q: %w", m.APIVersion, err))
	}
	if !d.constraint.Check(version) {
		return nil, loadFailure(fmt.Errorf("api_version %s outside supported range %s", version, d.versions))
	}

	caps := make([]capability.Capability, 0, len(m.Capabilities))
	for _, spec := range m.Capabilities {
		factory, ok := d.catalog[spec.Kind]
		if !ok {
			return nil, &DiscoveryError{
				Reason: ReasonNotACapability,
				Unit:   path,
				Err:    fmt.Errorf("unknown capability kind %q", spec.Kind),
			}
		}
		c, err := factory(spec)
		if err != nil {
			return nil, &DiscoveryError{
				Reason: ReasonNotACapability,
				Unit:   path,
				Err:    fmt.Errorf("building %s: %w", spec.Kind, err),
			}
		}
		if c == nil {
			return nil, &DiscoveryError{
				Reason: ReasonNotACapability,
				Unit:   path,
				Err:    fmt.Errorf("%s factory returned no capability", spec.Kind),
			}
		}
		c = capability.WithIdentity(c, spec.Name, spec.Description)
		if c.Name() == "" {
			return nil, &DiscoveryError{
				Reason: ReasonNotACapability,
				Unit:   path,
				Err:    fmt.Errorf("%s capability has no name", spec.Kind),
			}
		}
		caps = append(caps, c)
	}
	return caps, nil
}

// validate checks raw YAML against the manifest schema. The document is
// round-tripped through JSON so the validator only sees JSON types.
func (d *ManifestDiscoverer) validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("manifest is not a plain mapping: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decoding manifest: %w", err)
	}
	if err := d.schema.Validate(v); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}
