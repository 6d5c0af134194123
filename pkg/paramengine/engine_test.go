package paramengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/substitute"
	"github.com/davidthor/asdesigner/pkg/tree"
)

func newNode(t *testing.T, name string, node *design.NodeConfig) *tree.Instance {
	t.Helper()
	cfg := &design.Config{Kind: design.KindNode, Name: name, Node: node}
	inst := tree.New(name, nil, tree.EntityTypeNode, cfg, []string{name}, 0, nil)
	inst.Resolver = substitute.NewResolver(map[string]interface{}{}, map[string]string{})
	return inst
}

func TestInitializeNodeDefaults_DirectParametersCoerced(t *testing.T) {
	node := newNode(t, "a", &design.NodeConfig{
		Parameters: []design.ParameterSpec{{Name: "rate", Type: "int", Default: 10}},
	})
	e := New(nil)
	require.NoError(t, e.InitializeNodeDefaults(node))
	require.Len(t, node.Parameters, 1)
	assert.Equal(t, 10, node.Parameters[0].Value)
	assert.Equal(t, tree.PriorityDefault, node.Parameters[0].Priority)
}

func TestInitializeNodeDefaults_RejectsTextualFloatForInt(t *testing.T) {
	node := newNode(t, "a", &design.NodeConfig{
		Parameters: []design.ParameterSpec{{Name: "rate", Type: "int", Default: "1.0"}},
	})
	e := New(nil)
	err := e.InitializeNodeDefaults(node)
	require.Error(t, err)
}

func TestApplyFile_FlattensMatchingRosParameters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
/**:
  ros__parameters:
    foo: 1
    nested:
      bar: 2
`), 0o644))

	node := newNode(t, "node_x", &design.NodeConfig{
		ParameterFiles: []design.ParameterFileSpec{{Name: "base", Default: path}},
	})
	e := New(nil)
	require.NoError(t, e.InitializeNodeDefaults(node))

	var foo, nestedBar *tree.Parameter
	for _, p := range node.Parameters {
		if p.Name == "foo" {
			foo = p
		}
		if p.Name == "nested.bar" {
			nestedBar = p
		}
	}
	require.NotNil(t, foo)
	require.NotNil(t, nestedBar)
	assert.Equal(t, 1, foo.Value)
	assert.Equal(t, 2, nestedBar.Value)
	assert.Equal(t, tree.PriorityDefaultFile, foo.Priority)
}

func TestApplyParameterSet_OverridesWithHigherPriority(t *testing.T) {
	node := newNode(t, "node_x", &design.NodeConfig{})
	root := tree.New("root", nil, tree.EntityTypeSystem, &design.Config{Kind: design.KindSystem, System: &design.SystemConfig{}}, nil, 0, nil)
	root.Resolver = node.Resolver
	root.AddChild(node)
	node.Namespace = []string{"node_x"}

	set := &design.Config{
		Kind: design.KindParameterSet,
		ParameterSet: &design.ParameterSetConfig{
			Parameters: []design.ParameterSetEntry{
				{Node: "/node_x", Parameters: []design.ParameterSpec{{Name: "foo", Type: "int", Value: 42}}},
			},
		},
	}

	e := New(nil)
	require.NoError(t, e.ApplyParameterSet(root, set, tree.PriorityOverrideFile, tree.PriorityOverride, true))

	require.Len(t, node.Parameters, 1)
	assert.Equal(t, 42, node.Parameters[0].Value)
	assert.Equal(t, tree.PriorityOverride, node.Parameters[0].Priority)
	assert.True(t, node.Parameters[0].IsOverride)
}

func TestApplyParameterSet_LocalVariablesDoNotMutateBaseResolver(t *testing.T) {
	root := tree.New("root", nil, tree.EntityTypeSystem, &design.Config{Kind: design.KindSystem, System: &design.SystemConfig{}}, nil, 0, nil)
	root.Resolver = substitute.NewResolver(map[string]interface{}{"shared": "base"}, nil)

	set := &design.Config{
		Kind: design.KindParameterSet,
		ParameterSet: &design.ParameterSetConfig{
			LocalVariables: map[string]interface{}{"shared": "scoped"},
		},
	}

	e := New(nil)
	require.NoError(t, e.ApplyParameterSet(root, set, tree.PriorityModeFile, tree.PriorityMode, false))

	resolved, _ := root.Resolver.Resolve("$(var shared)")
	assert.Equal(t, "base", resolved)
}

func TestFinalize_ResolvesParameterSubstitution(t *testing.T) {
	node := newNode(t, "a", &design.NodeConfig{})
	node.Resolver = substitute.NewResolver(map[string]interface{}{"rate": "30"}, nil)
	node.Parameters = []*tree.Parameter{{Name: "rate", Value: "$(var rate)"}}

	e := New(nil)
	require.NoError(t, e.Finalize(node))
	assert.Equal(t, "30", node.Parameters[0].Value)
}
