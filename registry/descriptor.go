package registry

// InputSchema is JSON Schema for tool input
type InputSchema struct {
	Type       string              `json:"type"` // "object"
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property in JSON Schema
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Items       *Property           `json:"items,omitempty"`      // for arrays
	Properties  map[string]Property `json:"properties,omitempty"` // for nested objects
	Required    []string            `json:"required,omitempty"`   // for nested objects
	Default     any                 `json:"default,omitempty"`
}

// Descriptor describes a registered tool. Immutable once registered;
// only the enabled flag can be toggled through the registry.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"input_schema"`
	Risk        RiskLevel   `json:"risk"`
	Categories  []string    `json:"categories,omitempty"`
	Enabled     bool        `json:"enabled"`
}

// HasCategory reports whether the descriptor carries the given tag.
func (d Descriptor) HasCategory(tag string) bool {
	for _, c := range d.Categories {
		if c == tag {
			return true
		}
	}
	return false
}

// FunctionSpec is the provider-neutral function-calling shape handed to
// a chat model. Only enabled tools are exported.
type FunctionSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"input_schema"`
}
