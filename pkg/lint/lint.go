// Package lint re-walks a loaded registry and flags naming and structural
// conventions a design file can violate without failing schema validation —
// a Finding never aborts a build, unlike a pkg/errors.Error (spec.md §9.3).
package lint

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
)

// Severity distinguishes a hard style violation from an advisory note.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single lint diagnostic.
type Finding struct {
	Severity Severity
	Code     string
	Message  string
	Entity   string
	Location *errors.Location
}

// Registry is the subset pkg/lint needs, satisfied by *pkg/registry.Registry.
type Registry interface {
	All() []*design.Config
}

var (
	pascalCase = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
	snakeCase  = regexp.MustCompile(`^[a-z][a-z0-9_]*(/[a-z][a-z0-9_]*)*$`)
)

// Check walks every entity in reg and returns every naming/structure
// Finding it raises (SPEC_FULL.md §9.3, adapting the original's
// NamingLinter/StructureLinter).
func Check(reg Registry) []Finding {
	var findings []Finding
	for _, cfg := range reg.All() {
		findings = append(findings, lintFilename(cfg)...)
		findings = append(findings, lintNaming(cfg)...)
		findings = append(findings, lintStructure(cfg)...)
	}
	return findings
}

// lintFilename flags a file whose basename doesn't match "{name}.{kind}"
// (structure_linter.py's "entity name matches file name" check).
func lintFilename(cfg *design.Config) []Finding {
	base := filepath.Base(cfg.FilePath)
	base = strings.TrimSuffix(base, ".yaml")
	expected := cfg.Name + "." + string(cfg.Kind)
	if base == expected {
		return nil
	}
	return []Finding{{
		Severity: SeverityError,
		Code:     "filename_mismatch",
		Message:  fmt.Sprintf("file %q declares entity %q, expected file name %q", cfg.FilePath, cfg.FullName, expected+".yaml"),
		Entity:   cfg.FullName,
		Location: cfg.Location("$.name"),
	}}
}

// lintNaming checks entity name casing and, for composites, the casing of
// their instance/port lists (naming_linter.py). A ParameterSet is exempt,
// matching the original's own early return for parameter_set files.
func lintNaming(cfg *design.Config) []Finding {
	if cfg.Kind == design.KindParameterSet {
		return nil
	}

	var findings []Finding
	if cfg.SubType == design.SubTypeVariant {
		if !isAllowedVariantName(cfg.Name, baseNameOf(cfg.Base)) {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Code:     "naming_convention",
				Message:  fmt.Sprintf("variant name %q should be snake_case or \"<base>_<suffix>\"", cfg.Name),
				Entity:   cfg.FullName,
				Location: cfg.Location("$.name"),
			})
		}
	} else if !pascalCase.MatchString(cfg.Name) {
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			Code:     "naming_convention",
			Message:  fmt.Sprintf("entity name %q should be PascalCase", cfg.Name),
			Entity:   cfg.FullName,
			Location: cfg.Location("$.name"),
		})
	}

	switch cfg.Kind {
	case design.KindNode:
		findings = append(findings, lintPortNames(cfg, "inputs", cfg.Node.Inputs)...)
		findings = append(findings, lintPortNames(cfg, "outputs", cfg.Node.Outputs)...)
	case design.KindModule:
		for i, inst := range cfg.Module.Instances {
			if !snakeCase.MatchString(inst.Name) {
				findings = append(findings, Finding{
					Severity: SeverityWarning,
					Code:     "naming_convention",
					Message:  fmt.Sprintf("instance name %q should be snake_case", inst.Name),
					Entity:   cfg.FullName,
					Location: cfg.Location(fmt.Sprintf("$.instances[%d].name", i)),
				})
			}
		}
	}
	return findings
}

func lintPortNames(cfg *design.Config, field string, ports []design.Port) []Finding {
	var findings []Finding
	for i, p := range ports {
		if !snakeCase.MatchString(p.Name) {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Code:     "naming_convention",
				Message:  fmt.Sprintf("%s port name %q should be snake_case", strings.TrimSuffix(field, "s"), p.Name),
				Entity:   cfg.FullName,
				Location: cfg.Location(fmt.Sprintf("$.%s[%d].name", field, i)),
			})
		}
	}
	return findings
}

func isAllowedVariantName(name, baseName string) bool {
	if snakeCase.MatchString(name) {
		return true
	}
	if baseName == "" || !strings.HasPrefix(name, baseName+"_") {
		return false
	}
	suffix := name[len(baseName)+1:]
	return suffix != "" && regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`).MatchString(suffix)
}

func baseNameOf(base string) string {
	idx := strings.LastIndex(base, ".")
	if idx < 0 {
		return base
	}
	return base[:idx]
}

// lintStructure flags suspicious-but-schema-valid shapes: a Module with no
// instances, or a System with no components (SPEC_FULL.md §9.3's added
// structural checks, beyond what the original linter covers).
func lintStructure(cfg *design.Config) []Finding {
	switch cfg.Kind {
	case design.KindModule:
		if cfg.SubType == design.SubTypeBase && len(cfg.Module.Instances) == 0 {
			return []Finding{{
				Severity: SeverityWarning,
				Code:     "empty_structure",
				Message:  fmt.Sprintf("module %q declares zero instances", cfg.FullName),
				Entity:   cfg.FullName,
				Location: cfg.Location("$.instances"),
			}}
		}
	case design.KindSystem:
		if cfg.SubType == design.SubTypeBase && len(cfg.System.Components) == 0 {
			return []Finding{{
				Severity: SeverityWarning,
				Code:     "empty_structure",
				Message:  fmt.Sprintf("system %q declares zero components", cfg.FullName),
				Entity:   cfg.FullName,
				Location: cfg.Location("$.components"),
			}}
		}
	}
	return nil
}
