package substitute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_VarAndEnv(t *testing.T) {
	r := NewResolver(map[string]interface{}{
		"robot": map[string]interface{}{"name": "tb4"},
	}, nil)
	r.LookupEnv = func(name string) (string, bool) {
		if name == "ROS_DOMAIN_ID" {
			return "12", true
		}
		return "", false
	}

	out, warnings := r.Resolve("robot=$(var robot.name) domain=$(env ROS_DOMAIN_ID)")
	assert.Empty(t, warnings)
	assert.Equal(t, "robot=tb4 domain=12", out)
}

func TestResolve_FindPkgShareWithNestedVar(t *testing.T) {
	r := NewResolver(map[string]interface{}{"pkg_name": "demo_pkg"}, map[string]string{
		"demo_pkg": "/opt/ros/demo_pkg/share",
	})

	out, warnings := r.Resolve("$(find-pkg-share $(var pkg_name))/config.yaml")
	assert.Empty(t, warnings)
	assert.Equal(t, "/opt/ros/demo_pkg/share/config.yaml", out)
}

func TestResolve_EvalArithmetic(t *testing.T) {
	r := NewResolver(nil, nil)
	out, warnings := r.Resolve("rate=$(eval 2 * 5)")
	require.Empty(t, warnings)
	assert.Equal(t, "rate=10", out)
}

func TestResolve_EvalFailureLeavesFormAndWarns(t *testing.T) {
	r := NewResolver(nil, nil)
	out, warnings := r.Resolve("val=$(eval undefined_name + 1)")
	assert.Equal(t, "val=$(eval undefined_name + 1)", out)
	require.Len(t, warnings, 1)
}

func TestResolve_PortAndParameterForms(t *testing.T) {
	r := NewResolver(nil, nil)
	r.LookupPort = func(direction, port string) (string, bool) {
		if direction == "input" && port == "odom" {
			return "/robot/odom", true
		}
		return "", false
	}
	r.LookupParam = func(name string) (interface{}, bool) {
		if name == "rate" {
			return 10, true
		}
		return nil, false
	}

	out, warnings := r.Resolve("topic=${input odom} rate=${parameter rate}")
	assert.Empty(t, warnings)
	assert.Equal(t, "topic=/robot/odom rate=10", out)
}

func TestResolve_UnresolvedPortLeavesFormAndWarns(t *testing.T) {
	r := NewResolver(nil, nil)
	r.LookupPort = func(direction, port string) (string, bool) { return "", false }

	out, warnings := r.Resolve("topic=${output missing}")
	assert.Equal(t, "topic=${output missing}", out)
	require.Len(t, warnings, 1)
}

func TestResolve_IsIdempotentAndBoundsIterations(t *testing.T) {
	r := NewResolver(map[string]interface{}{"a": "$(var a)"}, nil)
	out, _ := r.Resolve("$(var a)")
	assert.Equal(t, "$(var a)", out, "a self-referential variable converges instead of looping forever")
}

func TestWithVariables_DoesNotMutateBaseResolver(t *testing.T) {
	base := NewResolver(map[string]interface{}{"shared": "base"}, nil)
	scoped := base.WithVariables(map[string]interface{}{"local": "scoped"})

	out, _ := scoped.Resolve("$(var shared)/$(var local)")
	assert.Equal(t, "base/scoped", out)

	_, found := base.Variables["local"]
	assert.False(t, found)
}
