package capability

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Kind is the primitive type of an input field as seen by callers.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindObject  Kind = "object"
	KindUnknown Kind = "unknown"
)

// FieldSpec describes one input field of a capability.
type FieldSpec struct {
	FieldName   string `json:"fieldName"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`

	integer bool
}

// Integer reports whether a KindNumber field only accepts whole numbers.
func (f FieldSpec) Integer() bool { return f.integer }

// Descriptor is the externally visible contract of a capability.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputFields []FieldSpec `json:"inputFields"`
}

// Clone returns a copy that shares no slice with d.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.InputFields = append([]FieldSpec(nil), d.InputFields...)
	return out
}

// Field returns the spec for name, if declared.
func (d Descriptor) Field(name string) (FieldSpec, bool) {
	for _, f := range d.InputFields {
		if f.FieldName == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Introspect derives the descriptor of c from its declared input shape.
func Introspect(c Capability) Descriptor {
	return Descriptor{
		Name:        c.Name(),
		Description: c.Description(),
		InputFields: DeriveFields(c.Input()),
	}
}

// DeriveFields reflects shape into an ordered list of field specs.
// It never fails: shapes it cannot reflect yield no fields, and complex
// fields degrade to KindObject with a descriptive fallback.
func DeriveFields(shape any) (fields []FieldSpec) {
	defer func() {
		if recover() != nil {
			fields = []FieldSpec{}
		}
	}()

	fields = []FieldSpec{}
	schema := SchemaOf(shape)
	if schema == nil || schema.Properties == nil {
		return fields
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		fields = append(fields, fieldFromSchema(pair.Key, pair.Value))
	}
	return fields
}

// SchemaOf returns the JSON Schema document for shape, or nil when shape is
// not a struct (or pointer to one).
func SchemaOf(shape any) *jsonschema.Schema {
	if shape == nil {
		return nil
	}
	t := reflect.TypeOf(shape)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	return r.ReflectFromType(t)
}

// JSONSchema returns the full schema document for c's input shape.
func JSONSchema(c Capability) *jsonschema.Schema {
	s := SchemaOf(c.Input())
	if s == nil {
		s = &jsonschema.Schema{Type: "object"}
	}
	s.Title = c.Name()
	s.Description = c.Description()
	return s
}

func fieldFromSchema(name string, prop *jsonschema.Schema) FieldSpec {
	spec := FieldSpec{FieldName: name, Kind: KindUnknown}
	if prop == nil {
		spec.Required = true
		spec.Description = "any value"
		return spec
	}
	spec.Kind = kindOf(prop)
	spec.integer = prop.Type == "integer"
	spec.Description = prop.Description
	spec.Default = prop.Default
	spec.Required = prop.Default == nil
	if spec.Description == "" {
		spec.Description = describe(prop)
	}
	return spec
}

func kindOf(s *jsonschema.Schema) Kind {
	switch s.Type {
	case "string":
		return KindString
	case "integer", "number":
		return KindNumber
	case "boolean":
		return KindBoolean
	case "object", "array":
		return KindObject
	}
	if len(s.AnyOf) > 0 || len(s.OneOf) > 0 || s.Properties != nil {
		return KindObject
	}
	return KindUnknown
}

// describe is the fallback description for fields without one.
func describe(s *jsonschema.Schema) string {
	switch s.Type {
	case "array":
		if s.Items != nil && s.Items.Type != "" {
			return fmt.Sprintf("array of %s", s.Items.Type)
		}
		return "array"
	case "object":
		return "object"
	case "":
		if kindOf(s) == KindObject {
			return "composite value"
		}
		return "any value"
	}
	return ""
}
