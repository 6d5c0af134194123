package schemaspec

import (
	"fmt"
	"strings"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
)

// Result carries the outcome of validating one design file: the resolved
// schema version plus any non-fatal warnings accumulated along the way
// (a missing or minor-newer format version; a variant's forbidden root
// fields are a validation error, not a warning). Callers register warnings
// on the registry (spec.md §4.B:
// "surfaced later if a build fails").
type Result struct {
	ResolvedVersion Version
	Warnings        []string
}

// Validate runs JSON Schema validation for cfg's kind plus the semantic
// checks JSON Schema can't express (spec.md §4.B).
func Validate(cfg *design.Config) (*Result, error) {
	declaredRaw, _ := cfg.Raw["autoware_system_design_format"].(string)
	check, err := CheckFormatVersion(cfg.FilePath, declaredRaw)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if check.Message != "" && (!check.Compatible || check.FileVer == nil || check.MinorNewer) {
		result.Warnings = append(result.Warnings, check.Message)
	}

	declared := supportedVersion()
	if check.FileVer != nil {
		declared = *check.FileVer
	}

	sch, resolved, err := schemaFor(cfg.Kind, declared)
	if err != nil {
		return nil, err
	}
	result.ResolvedVersion = resolved

	if err := sch.Validate(cfg.Raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidation, fmt.Sprintf("%s: schema validation failed", cfg.FilePath), err).At(cfg.Location(""))
	}

	if err := semanticChecks(cfg); err != nil {
		return nil, err
	}

	return result, nil
}

// semanticChecks applies the rules spec.md §4.B calls out as beyond JSON
// Schema's reach.
func semanticChecks(cfg *design.Config) error {
	if cfg.SubType == design.SubTypeVariant {
		if err := checkVariantForbiddenFields(cfg); err != nil {
			return err
		}
	}

	switch cfg.Kind {
	case design.KindNode:
		return checkNodeSemantics(cfg)
	case design.KindParameterSet:
		return checkParameterSetSemantics(cfg)
	}
	return nil
}

// variantForbiddenFields are root-level fields that only make sense inside
// a base config's body; a variant must carry them (if at all) nested under
// override/remove.
var variantForbiddenFields = map[design.Kind][]string{
	design.KindNode:         {"launch", "inputs", "outputs", "parameter_files", "parameters", "processes"},
	design.KindModule:       {"instances", "external_interfaces", "connections"},
	design.KindSystem:       {"components", "connections", "variables", "modes", "arguments", "parameter_sets"},
	design.KindParameterSet: {"parameters", "local_variables"},
}

func checkVariantForbiddenFields(cfg *design.Config) error {
	forbidden := variantForbiddenFields[cfg.Kind]
	var found []string
	for _, field := range forbidden {
		if _, ok := cfg.Raw[field]; ok {
			found = append(found, field)
		}
	}
	if len(found) == 0 {
		return nil
	}
	return errors.ValidationError(
		fmt.Sprintf("%s: variant %q declares root field(s) %s; these belong under override/remove", cfg.FilePath, cfg.FullName, strings.Join(found, ", ")),
		map[string]interface{}{"fields": found},
	).At(cfg.Location(""))
}

func checkNodeSemantics(cfg *design.Config) error {
	n := cfg.Node
	if n == nil {
		return nil
	}

	if cfg.SubType == design.SubTypeBase {
		count := 0
		if n.Launch.Plugin != "" {
			count++
		}
		if n.Launch.Executable != "" {
			count++
		}
		if n.Launch.Ros2LaunchFile != "" {
			count++
		}
		if count != 1 {
			return errors.NodeConfigurationError(n.Name, fmt.Sprintf("launch must declare exactly one of plugin, executable, ros2_launch_file (found %d)", count)).At(cfg.Location("/launch"))
		}

		if n.Launch.UseContainer && n.Launch.ContainerName == "" {
			return errors.NodeConfigurationError(n.Name, "container_name is required when use_container is true").At(cfg.Location("/launch/container_name"))
		}
	}

	for i, p := range n.Parameters {
		if !design.AllowedParameterTypes[p.Type] {
			return errors.ParameterConfigurationError(n.Name, fmt.Sprintf("parameter %q has unsupported type %q", p.Name, p.Type)).At(cfg.Location(fmt.Sprintf("/parameters/%d/type", i)))
		}
	}

	return nil
}

func checkParameterSetSemantics(cfg *design.Config) error {
	p := cfg.ParameterSet
	if p == nil {
		return nil
	}
	seen := map[string]bool{}
	for i, entry := range p.Parameters {
		if entry.Node == "" || !strings.HasPrefix(entry.Node, "/") {
			return errors.ParameterConfigurationError(p.Name, fmt.Sprintf("entry %d: node must be an absolute namespace (got %q)", i, entry.Node)).At(cfg.Location(fmt.Sprintf("/parameters/%d/node", i)))
		}
		if seen[entry.Node] {
			return errors.ParameterConfigurationError(p.Name, fmt.Sprintf("node %q targeted by more than one parameter block", entry.Node)).At(cfg.Location(fmt.Sprintf("/parameters/%d/node", i)))
		}
		seen[entry.Node] = true
	}
	return nil
}
