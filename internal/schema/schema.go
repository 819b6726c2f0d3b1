// Package schema provides the closed table of record types and their
// default fields.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/matsen/hbnb/internal/literal"
	"gopkg.in/yaml.v3"
)

// FieldType represents the data type of a default field.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeFloat   FieldType = "float"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeList    FieldType = "list" // list of strings
)

// validFieldTypes maps each recognized field type to the value kind it holds.
var validFieldTypes = map[FieldType]literal.Kind{
	FieldTypeString:  literal.KindString,
	FieldTypeInteger: literal.KindInt,
	FieldTypeFloat:   literal.KindFloat,
	FieldTypeBoolean: literal.KindBool,
	FieldTypeList:    literal.KindList,
}

// validIdentifier matches type and field names (alphanumeric + underscore, must start with letter or underscore).
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// reservedFields cannot be declared as defaults.
var reservedFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"__class__":  true,
}

//go:embed default.yml
var defaultSchemaYAML []byte

// Field is one default field of a type.
type Field struct {
	Name    string    `yaml:"name" json:"name"`
	Type    FieldType `yaml:"type" json:"type"`
	Default any       `yaml:"default,omitempty" json:"default,omitempty"`

	value literal.Value
}

// Type is one record type and its default fields, in declaration order.
type Type struct {
	Name   string   `yaml:"name" json:"name"`
	Fields []*Field `yaml:"fields,omitempty" json:"fields"`

	byName map[string]*Field
}

// Schema is the closed set of record types.
type Schema struct {
	Types []*Type `yaml:"types" json:"types"`

	byName map[string]*Type
}

// Parse decodes and validates a YAML schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseFile loads and validates a YAML schema file.
func ParseFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in schema: BaseModel, User, State, City,
// Amenity, Place and Review.
func Default() *Schema {
	s, err := Parse(defaultSchemaYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in schema is invalid: %v", err))
	}
	return s
}

// Validate checks names, types and defaults, and builds the lookup indexes.
// It returns an error describing the first validation failure.
func (s *Schema) Validate() error {
	if len(s.Types) == 0 {
		return fmt.Errorf("schema must declare at least one type")
	}

	s.byName = make(map[string]*Type, len(s.Types))
	for _, t := range s.Types {
		if t == nil || t.Name == "" {
			return fmt.Errorf("type name is required")
		}
		if !validIdentifier.MatchString(t.Name) {
			return fmt.Errorf("type name %q is not a valid identifier", t.Name)
		}
		if _, dup := s.byName[t.Name]; dup {
			return fmt.Errorf("type %q declared twice", t.Name)
		}
		if err := t.validate(); err != nil {
			return fmt.Errorf("type %q: %w", t.Name, err)
		}
		s.byName[t.Name] = t
	}
	return nil
}

func (t *Type) validate() error {
	t.byName = make(map[string]*Field, len(t.Fields))
	for _, f := range t.Fields {
		if f == nil || !validIdentifier.MatchString(f.Name) {
			return fmt.Errorf("field name %q is not a valid identifier", fieldName(f))
		}
		if reservedFields[f.Name] {
			return fmt.Errorf("field %q is reserved", f.Name)
		}
		if _, dup := t.byName[f.Name]; dup {
			return fmt.Errorf("field %q declared twice", f.Name)
		}
		v, err := f.defaultValue()
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		f.value = v
		t.byName[f.Name] = f
	}
	return nil
}

func fieldName(f *Field) string {
	if f == nil {
		return ""
	}
	return f.Name
}

// defaultValue converts the declared default to a value of the field's
// kind, or the kind's zero value when no default is declared.
func (f *Field) defaultValue() (literal.Value, error) {
	kind, ok := validFieldTypes[f.Type]
	if !ok {
		return literal.Value{}, fmt.Errorf("invalid type %q", f.Type)
	}

	if f.Default == nil {
		switch kind {
		case literal.KindString:
			return literal.String(""), nil
		case literal.KindInt:
			return literal.Int(0), nil
		case literal.KindFloat:
			return literal.Float(0), nil
		case literal.KindBool:
			return literal.Bool(false), nil
		default:
			return literal.List(), nil
		}
	}

	v, err := literal.FromGo(f.Default)
	if err != nil {
		return literal.Value{}, err
	}
	if kind == literal.KindFloat && v.Kind() == literal.KindInt {
		v, _ = literal.Coerce(v, literal.KindFloat)
	}
	if v.Kind() != kind {
		return literal.Value{}, fmt.Errorf("default %s is not a %s", v.Repr(), f.Type)
	}
	if items, ok := v.AsList(); ok {
		for _, item := range items {
			if item.Kind() != literal.KindString {
				return literal.Value{}, fmt.Errorf("list default may only hold strings, got %s", item.Repr())
			}
		}
	}
	return v, nil
}

// Lookup returns the type with the given name.
func (s *Schema) Lookup(name string) (*Type, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Has reports whether name is a declared type.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Names returns the type names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Types))
	for i, t := range s.Types {
		names[i] = t.Name
	}
	return names
}

// Default returns the default value of a field.
func (t *Type) Default(field string) (literal.Value, bool) {
	f, ok := t.byName[field]
	if !ok {
		return literal.Value{}, false
	}
	return f.value.Clone(), true
}

// Defaults returns every default field in declaration order.
func (t *Type) Defaults() *literal.Map {
	m := literal.NewMap()
	for _, f := range t.Fields {
		m.Set(f.Name, f.value.Clone())
	}
	return m
}

// Kind returns the value kind of the field's declared type.
func (f *Field) Kind() literal.Kind {
	return validFieldTypes[f.Type]
}
