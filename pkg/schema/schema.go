package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Schema describes the shape of a structured LLM response.
type Schema struct {
	Name        string
	Description string
	Fields      []Field

	target   reflect.Type
	validate *validator.Validate
}

// SchemaOption configures schema creation.
type SchemaOption func(*schemaBuilder)

type schemaBuilder struct {
	name        string
	description string
}

// WithDescription sets the schema description shown to the model.
func WithDescription(desc string) SchemaOption {
	return func(b *schemaBuilder) {
		b.description = desc
	}
}

// WithName overrides the schema name (defaults to the struct name).
func WithName(name string) SchemaOption {
	return func(b *schemaBuilder) {
		b.name = name
	}
}

// NewSchema creates a Schema from a struct type using reflection.
//
// Field names come from json tags, descriptions from `description` tags, and
// validation rules from `validate` tags. Fields without omitempty are required.
func NewSchema[T any](opts ...SchemaOption) (Schema, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return Schema{}, errors.New("schema type must not be an interface")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Schema{}, fmt.Errorf("schema must be created from a struct type, got %v", t.Kind())
	}

	b := &schemaBuilder{name: t.Name()}
	for _, opt := range opts {
		opt(b)
	}

	fields, err := extractFields(t)
	if err != nil {
		return Schema{}, err
	}

	return Schema{
		Name:        b.name,
		Description: b.description,
		Fields:      fields,
		target:      t,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// MustSchema is NewSchema that panics on error, for package-level schemas.
func MustSchema[T any](opts ...SchemaOption) Schema {
	s, err := NewSchema[T](opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func extractFields(t reflect.Type) ([]Field, error) {
	fields := make([]Field, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Tag.Get("json") == "-" {
			continue
		}

		field, err := fieldFromType(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		field.Name = jsonName(sf)
		field.Description = sf.Tag.Get("description")
		field.Required = !strings.Contains(sf.Tag.Get("json"), "omitempty") && sf.Type.Kind() != reflect.Ptr
		field.Validators = splitTag(sf.Tag.Get("validate"))
		field.Examples = splitTag(sf.Tag.Get("examples"))

		fields = append(fields, field)
	}

	return fields, nil
}

func fieldFromType(t reflect.Type) (Field, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return Field{Type: TypeString}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Field{Type: TypeInteger}, nil
	case reflect.Float32, reflect.Float64:
		return Field{Type: TypeNumber}, nil
	case reflect.Bool:
		return Field{Type: TypeBoolean}, nil
	case reflect.Slice:
		item, err := fieldFromType(t.Elem())
		if err != nil {
			return Field{}, err
		}
		return Field{Type: TypeArray, Items: &item}, nil
	case reflect.Struct:
		props, err := extractFields(t)
		if err != nil {
			return Field{}, err
		}
		return Field{Type: TypeObject, Properties: props}, nil
	case reflect.Map:
		return Field{Type: TypeObject}, nil
	default:
		return Field{}, fmt.Errorf("unsupported type: %v", t.Kind())
	}
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return sf.Name
}

func splitTag(tag string) []string {
	if tag == "" {
		return nil
	}
	return strings.Split(tag, ",")
}

// Decode parses data into v, which must be a pointer to the schema's struct
// type, and validates the result. Decoding errors and validation failures are
// both returned as errors; validation failures unwrap to ValidationErrors.
func (s Schema) Decode(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", v)
	}
	if s.target != nil && rv.Elem().Type() != s.target {
		return fmt.Errorf("decode target %T does not match schema %s", v, s.Name)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON: trailing data after object")
	}

	if errs := s.Validate(v); len(errs) > 0 {
		return ValidationErrors(errs)
	}
	return nil
}

// Validate checks a decoded struct against its validate tags.
func (s Schema) Validate(data any) []ValidationError {
	if s.validate == nil {
		return nil
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return []ValidationError{{Field: s.Name, Message: fmt.Sprintf("expected object, got %T", data)}}
	}

	err := s.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: s.Name, Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		out = append(out, ValidationError{
			Field:   trimNamespace(e.Namespace()),
			Message: formatValidationError(e),
			Value:   e.Value(),
		})
	}
	return out
}

// ValidationErrors is a list of validation failures usable as an error.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// trimNamespace drops the root struct name from "Root.Items[0].Name".
func trimNamespace(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
