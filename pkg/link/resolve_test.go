package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/tree"
)

func nodeInstance(name string, parent *tree.Instance, inputs, outputs []design.Port) *tree.Instance {
	cfg := &design.Config{Kind: design.KindNode, Name: name, Node: &design.NodeConfig{Name: name, Inputs: inputs, Outputs: outputs}}
	inst := tree.New(name, parent, tree.EntityTypeNode, cfg, append(append([]string(nil), parent.Namespace...), name), parent.Layer, parent.ParentModuleList)
	for _, in := range inputs {
		p := tree.NewPort(in.Name, in.MessageType, tree.DirectionInput, inst.Namespace, in.Global, in.RemapTarget)
		inst.Ports[tree.PortKey("", tree.DirectionInput, in.Name)] = p
	}
	for _, out := range outputs {
		p := tree.NewPort(out.Name, out.MessageType, tree.DirectionOutput, inst.Namespace, out.Global, out.RemapTarget)
		inst.Ports[tree.PortKey("", tree.DirectionOutput, out.Name)] = p
	}
	return inst
}

func TestResolve_WildcardModuleExpansion(t *testing.T) {
	moduleCfg := &design.Config{
		Kind: design.KindModule,
		Name: "m",
		Module: &design.ModuleConfig{
			Name: "m",
			ExternalInterfaces: design.ExternalInterfaces{
				Input: []design.Port{{Name: "left"}, {Name: "right"}},
			},
			Connections: []design.Connection{
				{From: "input.*", To: "*.input.pointcloud"},
			},
		},
	}
	module := tree.New("m", nil, tree.EntityTypeModule, moduleCfg, []string{"m"}, 0, nil)

	left := nodeInstance("left", module, []design.Port{{Name: "pointcloud", MessageType: "sensor_msgs/PointCloud2"}}, nil)
	right := nodeInstance("right", module, []design.Port{{Name: "pointcloud", MessageType: "sensor_msgs/PointCloud2"}}, nil)
	module.AddChild(left)
	module.AddChild(right)

	r := New()
	require.NoError(t, r.Resolve(module, nil))

	require.Len(t, module.Links, 2)
	assert.Empty(t, module.Warnings)

	gotTo := map[string]bool{}
	for _, l := range module.Links {
		assert.Equal(t, tree.ConnectionExternalToInternal, l.ConnectionType)
		assert.Equal(t, "sensor_msgs/PointCloud2", l.MsgType)
		gotTo[l.To.PortPath()] = true
	}
	assert.True(t, gotTo["/m/left/input/pointcloud"])
	assert.True(t, gotTo["/m/right/input/pointcloud"])

	leftIn := left.Ports[tree.PortKey("", tree.DirectionInput, "pointcloud")]
	selfLeft := module.Ports[tree.PortKey("", tree.DirectionInput, "left")]
	require.Len(t, selfLeft.Reference, 1)
	assert.Same(t, leftIn, selfLeft.Reference[0])
}

func TestResolve_InternalConnectionPropagatesTopic(t *testing.T) {
	moduleCfg := &design.Config{
		Kind: design.KindModule,
		Name: "m",
		Module: &design.ModuleConfig{
			Name: "m",
			Connections: []design.Connection{
				{From: "a.output.out", To: "b.input.in"},
			},
		},
	}
	module := tree.New("m", nil, tree.EntityTypeModule, moduleCfg, []string{"m"}, 0, nil)
	a := nodeInstance("a", module, nil, []design.Port{{Name: "out", MessageType: "std_msgs/Int32"}})
	b := nodeInstance("b", module, []design.Port{{Name: "in", MessageType: "std_msgs/Int32"}}, nil)
	module.AddChild(a)
	module.AddChild(b)

	r := New()
	require.NoError(t, r.Resolve(module, nil))

	require.Len(t, module.Links, 1)
	l := module.Links[0]
	assert.Equal(t, tree.ConnectionInternal, l.ConnectionType)

	bIn := b.Ports[tree.PortKey("", tree.DirectionInput, "in")]
	aOut := a.Ports[tree.PortKey("", tree.DirectionOutput, "out")]
	assert.Equal(t, aOut.Topic, bIn.Topic)
	assert.Contains(t, aOut.Users, bIn)
	assert.Contains(t, bIn.Servers, aOut)
}

func TestResolve_MissingEndpointInModuleIsFatal(t *testing.T) {
	moduleCfg := &design.Config{
		Kind: design.KindModule,
		Name: "m",
		Module: &design.ModuleConfig{
			Name:        "m",
			Connections: []design.Connection{{From: "a.output.out", To: "b.input.nope"}},
		},
	}
	module := tree.New("m", nil, tree.EntityTypeModule, moduleCfg, nil, 0, nil)
	a := nodeInstance("a", module, nil, []design.Port{{Name: "out", MessageType: "std_msgs/Int32"}})
	b := nodeInstance("b", module, []design.Port{{Name: "in", MessageType: "std_msgs/Int32"}}, nil)
	module.AddChild(a)
	module.AddChild(b)

	r := New()
	err := r.Resolve(module, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestResolve_MissingEndpointInSystemWarnsAndSkips(t *testing.T) {
	systemCfg := &design.Config{
		Kind: design.KindSystem,
		Name: "s",
		System: &design.SystemConfig{
			Name:        "s",
			Connections: []design.Connection{{From: "a.output.out", To: "b.input.nope"}},
		},
	}
	system := tree.New("s", nil, tree.EntityTypeSystem, systemCfg, nil, 0, nil)
	a := nodeInstance("a", system, nil, []design.Port{{Name: "out", MessageType: "std_msgs/Int32"}})
	b := nodeInstance("b", system, []design.Port{{Name: "in", MessageType: "std_msgs/Int32"}}, nil)
	system.AddChild(a)
	system.AddChild(b)

	r := New()
	require.NoError(t, r.Resolve(system, nil))
	assert.Empty(t, system.Links)
	require.Len(t, system.Warnings, 1)
	assert.Contains(t, system.Warnings[0], "E_PORT_NOT_FOUND")
}

func TestResolve_ConflictingMessageTypesRejected(t *testing.T) {
	moduleCfg := &design.Config{
		Kind: design.KindModule,
		Name: "m",
		Module: &design.ModuleConfig{
			Name:        "m",
			Connections: []design.Connection{{From: "a.output.out", To: "b.input.in"}},
		},
	}
	module := tree.New("m", nil, tree.EntityTypeModule, moduleCfg, nil, 0, nil)
	a := nodeInstance("a", module, nil, []design.Port{{Name: "out", MessageType: "std_msgs/Int32"}})
	b := nodeInstance("b", module, []design.Port{{Name: "in", MessageType: "std_msgs/String"}}, nil)
	module.AddChild(a)
	module.AddChild(b)

	r := New()
	err := r.Resolve(module, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E_TYPE_MISMATCH")
}

func TestResolve_UndeclaredExternalInterfaceRejected(t *testing.T) {
	moduleCfg := &design.Config{
		Kind: design.KindModule,
		Name: "m",
		Module: &design.ModuleConfig{
			Name:        "m",
			Connections: []design.Connection{{From: "input.left", To: "a.input.in"}},
		},
	}
	module := tree.New("m", nil, tree.EntityTypeModule, moduleCfg, []string{"m"}, 0, nil)
	a := nodeInstance("a", module, []design.Port{{Name: "in", MessageType: "std_msgs/Int32"}}, nil)
	module.AddChild(a)

	r := New()
	err := r.Resolve(module, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E_EXT_DECL")
}

func TestResolve_DuplicateConnectionIsNoop(t *testing.T) {
	conn := design.Connection{From: "a.output.out", To: "b.input.in"}
	moduleCfg := &design.Config{
		Kind: design.KindModule,
		Name: "m",
		Module: &design.ModuleConfig{
			Name:        "m",
			Connections: []design.Connection{conn, conn},
		},
	}
	module := tree.New("m", nil, tree.EntityTypeModule, moduleCfg, nil, 0, nil)
	a := nodeInstance("a", module, nil, []design.Port{{Name: "out", MessageType: "std_msgs/Int32"}})
	b := nodeInstance("b", module, []design.Port{{Name: "in", MessageType: "std_msgs/Int32"}}, nil)
	module.AddChild(a)
	module.AddChild(b)

	r := New()
	require.NoError(t, r.Resolve(module, nil))
	assert.Len(t, module.Links, 1)
}
