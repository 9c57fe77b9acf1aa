package schema

import (
	"strings"
)

// ToJSONSchema converts the schema to JSON Schema format for LLM structured output.
func (s Schema) ToJSONSchema() map[string]any {
	out := objectSchema(s.Fields)
	if s.Description != "" {
		out["description"] = s.Description
	}
	return out
}

func objectSchema(fields []Field) map[string]any {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))

	for _, f := range fields {
		properties[f.Name] = fieldToJSONSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// fieldToJSONSchema converts a Field to JSON Schema format.
func fieldToJSONSchema(f Field) map[string]any {
	var out map[string]any
	if f.Type == TypeObject && len(f.Properties) > 0 {
		out = objectSchema(f.Properties)
	} else {
		out = map[string]any{"type": string(f.Type)}
	}

	if f.Description != "" {
		out["description"] = f.Description
	}
	if len(f.Examples) > 0 {
		out["examples"] = f.Examples
	}
	if f.Type == TypeArray && f.Items != nil {
		out["items"] = fieldToJSONSchema(*f.Items)
	}

	return out
}

// ToPromptDescription renders the schema as a bullet list for the prompt,
// so providers without native structured output still see the shape.
func (s Schema) ToPromptDescription() string {
	var sb strings.Builder

	if s.Description != "" {
		sb.WriteString(s.Description)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Respond with a JSON object containing:\n")

	for _, field := range s.Fields {
		writeFieldDescription(&sb, field, 0)
	}

	return sb.String()
}

func writeFieldDescription(sb *strings.Builder, f Field, indent int) {
	prefix := strings.Repeat("  ", indent)

	sb.WriteString(prefix)
	sb.WriteString("- ")
	sb.WriteString(f.Name)
	sb.WriteString(" (")
	sb.WriteString(string(f.Type))
	if f.Required {
		sb.WriteString(", required")
	}
	sb.WriteString(")")

	if f.Description != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Description)
	}
	sb.WriteString("\n")

	if f.Type == TypeArray && f.Items != nil && f.Items.Type == TypeObject {
		sb.WriteString(prefix)
		sb.WriteString("  Each item:\n")
		for _, prop := range f.Items.Properties {
			writeFieldDescription(sb, prop, indent+2)
		}
	}

	if f.Type == TypeObject {
		for _, prop := range f.Properties {
			writeFieldDescription(sb, prop, indent+1)
		}
	}
}
