// Package substitute implements the substitution grammar engine
// (spec.md §4.E/§4.H): $(env|var|find-pkg-share|eval ...) and
// ${input|output|parameter ...} forms, resolved to a fixed point.
package substitute

import (
	"fmt"
	"os"
	"strings"
)

// PortLookup resolves a node's declared input/output port to its effective
// topic. Wired to the link resolver once a node's ports have been
// registered (spec.md §4.G); nil before that point.
type PortLookup func(direction, port string) (string, bool)

// ParameterLookup resolves the effective value of a named parameter on the
// enclosing node.
type ParameterLookup func(name string) (interface{}, bool)

// EnvLookup resolves an environment variable; defaults to os.LookupEnv.
type EnvLookup func(name string) (string, bool)

// maxIterations bounds the fixed-point loop (spec.md §4.H: "Resolution is
// idempotent"); 10 passes is far more than any realistic nesting depth, a
// runaway loop on malformed input still terminates.
const maxIterations = 10

// Resolver holds the state substitution forms resolve against: declared
// variables, package install paths for find-pkg-share, and the enclosing
// node's port/parameter lookups.
type Resolver struct {
	Variables    map[string]interface{}
	PackagePaths map[string]string
	LookupPort   PortLookup
	LookupParam  ParameterLookup
	LookupEnv    EnvLookup
}

// NewResolver builds a Resolver seeded with variables and package install
// paths (package name -> absolute share directory).
func NewResolver(variables map[string]interface{}, packagePaths map[string]string) *Resolver {
	return &Resolver{
		Variables:    variables,
		PackagePaths: packagePaths,
		LookupEnv:    os.LookupEnv,
	}
}

// WithVariables clones the resolver with a new variable scope, used for a
// parameter-set's local_variables (spec.md §4.H: "a scoped resolver is
// cloned and variables are resolved into it... the base resolver is
// unchanged").
func (r *Resolver) WithVariables(vars map[string]interface{}) *Resolver {
	clone := *r
	merged := make(map[string]interface{}, len(r.Variables)+len(vars))
	for k, v := range r.Variables {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}
	clone.Variables = merged
	return &clone
}

// Resolve expands every substitution form in input to a fixed point
// (spec.md §4.H). Returns the resolved string and any warnings emitted for
// forms that could not be resolved and were left in place.
func (r *Resolver) Resolve(input string) (string, []string) {
	var warnings []string
	current := input

	for i := 0; i < maxIterations; i++ {
		next, w, changed := r.resolvePass(current)
		warnings = append(warnings, w...)
		if !changed {
			return next, warnings
		}
		current = next
	}
	return current, warnings
}

func (r *Resolver) resolvePass(s string) (string, []string, bool) {
	forms := scanForms(s)
	if len(forms) == 0 {
		return s, nil, false
	}

	var sb strings.Builder
	var warnings []string
	changed := false
	cursor := 0

	for _, f := range forms {
		sb.WriteString(s[cursor:f.start])

		resolved, warning, ok := r.resolveForm(f)
		if ok {
			sb.WriteString(resolved)
			changed = true
		} else {
			sb.WriteString(s[f.start:f.end])
			if warning != "" {
				warnings = append(warnings, warning)
			}
		}
		cursor = f.end
	}
	sb.WriteString(s[cursor:])

	return sb.String(), warnings, changed
}

func (r *Resolver) resolveForm(f form) (value string, warning string, ok bool) {
	if f.open == '(' {
		return r.resolveParenForm(f.body)
	}
	return r.resolveBraceForm(f.body)
}

func (r *Resolver) resolveParenForm(body string) (string, string, bool) {
	keyword, rest := splitKeyword(body)
	switch keyword {
	case "env":
		if r.LookupEnv == nil {
			return "", fmt.Sprintf("$(env %s): no environment lookup configured", rest), false
		}
		v, found := r.LookupEnv(rest)
		if !found {
			return "", fmt.Sprintf("$(env %s): environment variable not set", rest), false
		}
		return v, "", true

	case "var":
		v, found := lookupDotted(r.Variables, rest)
		if !found {
			return "", fmt.Sprintf("$(var %s): variable not found", rest), false
		}
		return fmt.Sprint(v), "", true

	case "find-pkg-share":
		pkgExpr, _ := r.Resolve(rest) // pkg_expr may itself be a substitution
		path, found := r.PackagePaths[pkgExpr]
		if !found {
			return "", fmt.Sprintf("$(find-pkg-share %s): package share path not found", pkgExpr), false
		}
		return path, "", true

	case "eval":
		out, err := evalExpr(rest)
		if err != nil {
			return "", fmt.Sprintf("$(eval %s): %v", rest, err), false
		}
		return out, "", true

	default:
		return "", fmt.Sprintf("unrecognized substitution keyword %q", keyword), false
	}
}

func (r *Resolver) resolveBraceForm(body string) (string, string, bool) {
	keyword, rest := splitKeyword(body)
	switch keyword {
	case "input", "output":
		if r.LookupPort == nil {
			return "", fmt.Sprintf("${%s %s}: no port lookup configured", keyword, rest), false
		}
		topic, found := r.LookupPort(keyword, rest)
		if !found {
			return "", fmt.Sprintf("${%s %s}: port not resolved", keyword, rest), false
		}
		return topic, "", true

	case "parameter":
		if r.LookupParam == nil {
			return "", fmt.Sprintf("${parameter %s}: no parameter lookup configured", rest), false
		}
		v, found := r.LookupParam(rest)
		if !found {
			return "", fmt.Sprintf("${parameter %s}: parameter not found", rest), false
		}
		return fmt.Sprint(v), "", true

	default:
		return "", fmt.Sprintf("unrecognized substitution keyword %q", keyword), false
	}
}

// lookupDotted resolves a dotted path ("a.b.c") through nested
// map[string]interface{} values.
func lookupDotted(vars map[string]interface{}, dotted string) (interface{}, bool) {
	parts := strings.Split(dotted, ".")
	var cur interface{} = vars
	for _, part := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
