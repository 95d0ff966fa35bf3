package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDescriptor(name string) Descriptor {
	return Descriptor{
		Name:        name,
		Description: "sample tool",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"command": {Type: "string"},
			},
			Required: []string{"command"},
		},
		Risk:       RiskCaution,
		Categories: []string{"shell"},
		Enabled:    true,
	}
}

func TestRegistry_Register_DuplicateFails(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given - a registry with one tool
	reg := NewRegistry()
	r.NoError(reg.Register(sampleDescriptor("Bash")))
	r.Equal(1, reg.Len())

	// when - registering the same name again
	err := reg.Register(sampleDescriptor("Bash"))

	// then - the call fails and the count is unchanged
	a.Error(err)
	a.Contains(err.Error(), "already registered")
	a.Equal(1, reg.Len())
}

func TestRegistry_Register_EmptyNameFails(t *testing.T) {
	a := assert.New(t)

	reg := NewRegistry()
	err := reg.Register(Descriptor{Name: ""})

	a.Error(err)
	a.Equal(0, reg.Len())
}

func TestRegistry_List_FiltersAndSorts(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	reg := NewRegistry()
	write := sampleDescriptor("Write")
	write.Risk = RiskDangerous
	write.Categories = []string{"filesystem"}
	read := sampleDescriptor("Read")
	read.Risk = RiskSafe
	read.Categories = []string{"filesystem", "readonly"}
	disabled := sampleDescriptor("Grep")
	disabled.Enabled = false

	r.NoError(reg.Register(write))
	r.NoError(reg.Register(read))
	r.NoError(reg.Register(disabled))

	// enabled only, sorted by name
	enabled := reg.List(Filter{EnabledOnly: true})
	r.Len(enabled, 2)
	a.Equal("Read", enabled[0].Name)
	a.Equal("Write", enabled[1].Name)

	// risk filter
	danger := RiskDangerous
	a.Len(reg.List(Filter{Risk: &danger}), 1)

	// category filter requires all tags
	a.Len(reg.List(Filter{Categories: []string{"filesystem", "readonly"}}), 1)
}

func TestRegistry_IsAllowed(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	reg := NewRegistry()
	r.NoError(reg.Register(sampleDescriptor("Bash")))

	a.True(reg.IsAllowed("Bash"))
	a.False(reg.IsAllowed("NoSuchTool"))

	r.NoError(reg.SetEnabled("Bash", false))
	a.False(reg.IsAllowed("Bash"))
}

func TestRegistry_AssessRisk_UnknownToolIsDangerous(t *testing.T) {
	a := assert.New(t)

	reg := NewRegistry()
	got := reg.AssessRisk("NoSuchTool", nil)

	a.Equal(RiskDangerous, got.Level)
	a.Equal("tool not found", got.Reason)
}

func TestRegistry_AssessRisk_DynamicRaisesButNeverLowers(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	reg := NewRegistry()
	r.NoError(reg.Register(sampleDescriptor("Bash"))) // static tier: caution

	// assessor that reports whatever level the args ask for
	r.NoError(reg.RegisterAssessor("Bash", func(args map[string]any) Assessment {
		if args["danger"] == true {
			return Assessment{Level: RiskDangerous, Reason: "destructive command text"}
		}
		return Assessment{Level: RiskSafe, Reason: "read-only command text"}
	}))

	// when the assessor raises, its verdict wins
	raised := reg.AssessRisk("Bash", map[string]any{"danger": true})
	a.Equal(RiskDangerous, raised.Level)
	a.Equal("destructive command text", raised.Reason)

	// when the assessor would lower below the static tier, the floor holds
	floored := reg.AssessRisk("Bash", map[string]any{"danger": false})
	a.Equal(RiskCaution, floored.Level)
}

func TestRegistry_ValidateArgs(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	reg := NewRegistry()
	r.NoError(reg.Register(sampleDescriptor("Bash")))

	a.NoError(reg.ValidateArgs("Bash", map[string]any{"command": "ls"}))

	// missing required property
	err := reg.ValidateArgs("Bash", map[string]any{})
	a.Error(err)

	// wrong type
	err = reg.ValidateArgs("Bash", map[string]any{"command": 42})
	a.Error(err)

	// unknown tool
	err = reg.ValidateArgs("NoSuchTool", map[string]any{})
	a.ErrorIs(err, ErrToolNotFound)
}

func TestRegistry_FunctionSpecs_EnabledOnly(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	reg := NewRegistry()
	r.NoError(reg.Register(sampleDescriptor("Bash")))
	off := sampleDescriptor("Write")
	off.Enabled = false
	r.NoError(reg.Register(off))

	specs := reg.FunctionSpecs()
	r.Len(specs, 1)
	a.Equal("Bash", specs[0].Name)
	a.Equal([]string{"command"}, specs[0].InputSchema.Required)
}

func TestParseRiskLevel(t *testing.T) {
	a := assert.New(t)

	for _, level := range []RiskLevel{RiskSafe, RiskCaution, RiskDangerous} {
		parsed, err := ParseRiskLevel(level.String())
		a.NoError(err)
		a.Equal(level, parsed)
	}

	_, err := ParseRiskLevel("extreme")
	a.Error(err)
}
