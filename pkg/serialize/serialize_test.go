package serialize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/tree"
)

func nodeConfig(executable string) *design.Config {
	return &design.Config{
		Kind: design.KindNode,
		Node: &design.NodeConfig{Launch: design.Launch{Executable: executable}},
	}
}

func buildTree() *tree.Instance {
	root := tree.New("demo", nil, tree.EntityTypeSystem, nil, nil, 0, nil)

	pub := tree.New("talker", root, tree.EntityTypeNode, nodeConfig("talker_node"), []string{"talker"}, 1, nil)
	sub := tree.New("listener", root, tree.EntityTypeNode, nodeConfig("listener_node"), []string{"listener"}, 1, nil)
	root.AddChild(pub)
	root.AddChild(sub)

	out := tree.NewPort("chatter", "std_msgs/String", tree.DirectionOutput, []string{"talker"}, "", "")
	in := tree.NewPort("chatter", "std_msgs/String", tree.DirectionInput, []string{"listener"}, "", "")
	out.Users = append(out.Users, in)
	in.Servers = append(in.Servers, out)
	pub.RegisterPort("", out)
	sub.RegisterPort("", in)

	pub.Links = append(pub.Links, &tree.Link{
		MsgType: "std_msgs/String", From: out, To: in, ConnectionType: tree.ConnectionInternal,
	})

	pub.Parameters = append(pub.Parameters, &tree.Parameter{
		Name: "rate", Value: 10, DataType: "int", Priority: tree.PriorityDefault, Source: "talker.node",
	})
	pub.Warnings = append(pub.Warnings, "no consumers for topic X")

	return root
}

func TestBuild_RendersChildrenByName(t *testing.T) {
	root := buildTree()
	data := Build(root)

	assert.Equal(t, "demo", data.Name)
	assert.Equal(t, "system", data.EntityType)
	require.Contains(t, data.Children, "talker")
	require.Contains(t, data.Children, "listener")
}

func TestBuild_OutputPortConnectedIDsFromUsers(t *testing.T) {
	root := buildTree()
	data := Build(root)

	talker := data.Children["talker"]
	require.Len(t, talker.Ports, 1)
	port := talker.Ports[0]
	assert.Equal(t, "output", port.Direction)
	require.Len(t, port.ConnectedIDs, 1)
	assert.Equal(t, "/listener/input/chatter", port.ConnectedIDs[0])
}

func TestBuild_InputPortConnectedIDsFromServers(t *testing.T) {
	root := buildTree()
	data := Build(root)

	listener := data.Children["listener"]
	require.Len(t, listener.Ports, 1)
	port := listener.Ports[0]
	assert.Equal(t, "input", port.Direction)
	require.Len(t, port.ConnectedIDs, 1)
	assert.Equal(t, "/talker/output/chatter", port.ConnectedIDs[0])
}

func TestBuild_PropagatesParametersAndWarnings(t *testing.T) {
	root := buildTree()
	data := Build(root)

	talker := data.Children["talker"]
	require.Len(t, talker.Parameters, 1)
	assert.Equal(t, "rate", talker.Parameters[0].Name)
	assert.Equal(t, 10, talker.Parameters[0].Value)
	assert.Equal(t, "talker.node", talker.Parameters[0].Source)

	require.Len(t, talker.Warnings, 1)
	assert.Equal(t, "no consumers for topic X", talker.Warnings[0])
}

func TestNewAndMarshal_StampsMetadataAndError(t *testing.T) {
	root := buildTree()

	okPayload := New(root, "demo", "default", "2026-07-31T00:00:00Z", "finalize", nil)
	assert.Equal(t, SchemaVersion, okPayload.SchemaVersion)
	assert.Equal(t, "demo", okPayload.Metadata.SystemName)
	assert.Empty(t, okPayload.Metadata.Error)

	failPayload := New(root, "demo", "default", "2026-07-31T00:00:00Z", "connections", assertError{"boom"})
	assert.Equal(t, "boom", failPayload.Metadata.Error)
	assert.Equal(t, "connections", failPayload.Metadata.Step)

	raw, err := Marshal(okPayload)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, SchemaVersion, decoded["schema_version"])
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
