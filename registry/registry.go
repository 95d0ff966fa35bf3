package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrToolNotFound is returned for lookups of unregistered tools.
var ErrToolNotFound = errors.New("tool not found")

type entry struct {
	desc     Descriptor
	schema   *jsonschema.Schema
	assessor Assessor
}

// Registry holds the catalog of available tools keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*entry
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*entry)}
}

// Register adds a descriptor to the catalog. It fails on an empty or
// duplicate name, or an input schema that does not compile, and leaves
// the registry unchanged on failure.
func (r *Registry) Register(desc Descriptor) error {
	if desc.Name == "" {
		return errors.New("tool name must not be empty")
	}

	schema, err := compileSchema(desc)
	if err != nil {
		return fmt.Errorf("tool %q: %w", desc.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[desc.Name]; ok {
		return fmt.Errorf("tool %q already registered", desc.Name)
	}
	r.tools[desc.Name] = &entry{desc: desc, schema: schema}
	return nil
}

// RegisterAssessor attaches a dynamic risk assessor to a registered tool.
func (r *Registry) RegisterAssessor(name string, fn Assessor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tools[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	e.assessor = fn
	return nil
}

// Get returns the descriptor for a tool name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SetEnabled toggles a tool's enablement.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tools[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	e.desc.Enabled = enabled
	return nil
}

// Filter narrows a List call. Zero value matches everything.
type Filter struct {
	EnabledOnly bool
	Risk        *RiskLevel
	Categories  []string // descriptor must carry all listed tags
}

// List returns descriptors matching the filter, sorted by name.
func (r *Registry) List(f Filter) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, e := range r.tools {
		if f.EnabledOnly && !e.desc.Enabled {
			continue
		}
		if f.Risk != nil && e.desc.Risk != *f.Risk {
			continue
		}
		if !hasAllCategories(e.desc, f.Categories) {
			continue
		}
		out = append(out, e.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func hasAllCategories(d Descriptor, tags []string) bool {
	for _, t := range tags {
		if !d.HasCategory(t) {
			return false
		}
	}
	return true
}

// IsAllowed reports whether a tool exists and is enabled.
// Unknown names return false, never an error.
func (r *Registry) IsAllowed(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return ok && e.desc.Enabled
}

// AssessRisk computes the risk of one invocation. The registered tier is
// the floor; a dynamic assessor may raise it but never lower it.
// Unknown tools assess as dangerous.
func (r *Registry) AssessRisk(name string, args map[string]any) Assessment {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return Assessment{Level: RiskDangerous, Reason: "tool not found"}
	}

	result := Assessment{
		Level:  e.desc.Risk,
		Reason: fmt.Sprintf("registered risk tier %s", e.desc.Risk),
	}
	if e.assessor != nil {
		if dyn := e.assessor(args); dyn.Level > result.Level {
			result = dyn
		}
	}
	return result
}

// ValidateArgs checks arguments against the tool's compiled input schema.
func (r *Registry) ValidateArgs(name string, args map[string]any) error {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	if e.schema == nil {
		return nil
	}

	// Round-trip so nested values are plain decoded-JSON shapes.
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal arguments: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}

	if err := e.schema.Validate(decoded); err != nil {
		return fmt.Errorf("arguments do not match schema for %q: %w", name, err)
	}
	return nil
}

// FunctionSpecs exports enabled tools for a model's function-calling
// interface, sorted by name.
func (r *Registry) FunctionSpecs() []FunctionSpec {
	enabled := r.List(Filter{EnabledOnly: true})
	specs := make([]FunctionSpec, 0, len(enabled))
	for _, d := range enabled {
		specs = append(specs, FunctionSpec{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	return specs
}

func compileSchema(desc Descriptor) (*jsonschema.Schema, error) {
	if desc.InputSchema.Type == "" && len(desc.InputSchema.Properties) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(desc.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %v", err)
	}
	var obj any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode input schema: %v", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", obj); err != nil {
		return nil, fmt.Errorf("input schema: %v", err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("input schema: %v", err)
	}
	return schema, nil
}
