package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidthor/asdesigner/pkg/design"
)

func buildSystem() *design.Config {
	raw := map[string]interface{}{
		"name": "demo",
		"components": []interface{}{
			map[string]interface{}{"name": "core", "entity": "Core.node"},
			map[string]interface{}{"name": "legacy", "entity": "Legacy.node", "mode": "sim"},
		},
		"modes": []interface{}{
			map[string]interface{}{"name": "default", "default": true},
			map[string]interface{}{"name": "sim"},
		},
		"mode_configs": map[string]interface{}{
			"sim": map[string]interface{}{
				"override": map[string]interface{}{
					"components": []interface{}{
						map[string]interface{}{"name": "core", "entity": "CoreSim.node"},
					},
				},
			},
		},
	}
	return &design.Config{
		Kind: design.KindSystem, Name: "demo", FullName: "demo.system",
		SubType: design.SubTypeBase, Raw: raw,
		System: &design.SystemConfig{
			Name: "demo",
			Components: []design.Component{
				{Name: "core", Entity: "Core.node"},
				{Name: "legacy", Entity: "Legacy.node", Mode: "sim"},
			},
			Modes: []design.ModeDecl{{Name: "default", Default: true}, {Name: "sim"}},
			ModeConfigs: map[string]design.ModeConfig{
				"sim": {Override: map[string]interface{}{
					"components": []interface{}{
						map[string]interface{}{"name": "core", "entity": "CoreSim.node"},
					},
				}},
			},
		},
	}
}

func TestResolve_DefaultModeDropsLegacyComponentsOnly(t *testing.T) {
	base := buildSystem()
	resolved, err := Resolve(base, DefaultMode)
	require.NoError(t, err)

	require.Len(t, resolved.System.Components, 1)
	assert.Equal(t, "core", resolved.System.Components[0].Name)
	assert.Equal(t, "Core.node", resolved.System.Components[0].Entity)

	// base untouched
	assert.Len(t, base.System.Components, 2)
}

func TestResolve_NamedModeAppliesOverrideAndDropsLegacy(t *testing.T) {
	base := buildSystem()
	resolved, err := Resolve(base, "sim")
	require.NoError(t, err)

	require.Len(t, resolved.System.Components, 1)
	assert.Equal(t, "CoreSim.node", resolved.System.Components[0].Entity)
}

func TestResolve_UnknownModeIsNoop(t *testing.T) {
	base := buildSystem()
	resolved, err := Resolve(base, "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "Core.node", resolved.System.Components[0].Entity)
}
