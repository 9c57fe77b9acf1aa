// Package schema derives LLM response schemas from Go structs and validates
// decoded responses against them.
package schema

// FieldType represents the JSON type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field represents a single field in the schema.
type Field struct {
	Name        string    `json:"name,omitempty"`
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Items       *Field    `json:"items,omitempty"`      // array element type
	Properties  []Field   `json:"properties,omitempty"` // object members
	Validators  []string  `json:"validators,omitempty"`
	Examples    []string  `json:"examples,omitempty"`
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
