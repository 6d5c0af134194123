package schemaspec

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
)

//go:embed schemas
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema // "{version}/{kind}" -> schema
	compileErr  error
)

func schemaKindName(kind design.Kind) string {
	switch kind {
	case design.KindNode:
		return "node"
	case design.KindModule:
		return "module"
	case design.KindParameterSet:
		return "parameter_set"
	case design.KindSystem:
		return "system"
	default:
		return string(kind)
	}
}

// availableVersions lists every schema version directory bundled for kind.
func availableVersions(kind design.Kind) ([]Version, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormatVersion, "failed to read bundled schema directory", err)
	}

	name := schemaKindName(kind)
	var out []Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(schemaFS, fmt.Sprintf("schemas/%s/%s.json", e.Name(), name)); err != nil {
			continue
		}
		v, err := ParseVersion(e.Name())
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// pickSchemaVersion implements the resolution rule in spec.md §4.B / SPEC_FULL.md
// §9.2: exact match first; otherwise the largest available schema sharing
// declared's major, preferring same-minor (largest patch), then the closest
// larger minor (largest patch within it), then the overall largest version.
func pickSchemaVersion(kind design.Kind, declared Version) (Version, error) {
	versions, err := availableVersions(kind)
	if err != nil {
		return Version{}, err
	}

	for _, v := range versions {
		if v == declared {
			return v, nil
		}
	}

	var sameMajor []Version
	for _, v := range versions {
		if v.Major == declared.Major {
			sameMajor = append(sameMajor, v)
		}
	}
	if len(sameMajor) == 0 {
		return Version{}, errors.New(errors.ErrCodeFormatVersion, fmt.Sprintf("no %s schema bundled for major version %d", schemaKindName(kind), declared.Major))
	}

	var sameMinor []Version
	for _, v := range sameMajor {
		if v.Minor == declared.Minor {
			sameMinor = append(sameMinor, v)
		}
	}
	if len(sameMinor) > 0 {
		return largestPatch(sameMinor), nil
	}

	var largerMinor []Version
	minLargerMinor := -1
	for _, v := range sameMajor {
		if v.Minor > declared.Minor && (minLargerMinor == -1 || v.Minor < minLargerMinor) {
			minLargerMinor = v.Minor
		}
	}
	if minLargerMinor != -1 {
		for _, v := range sameMajor {
			if v.Minor == minLargerMinor {
				largerMinor = append(largerMinor, v)
			}
		}
		return largestPatch(largerMinor), nil
	}

	return largestOverall(sameMajor), nil
}

func largestPatch(versions []Version) Version {
	best := versions[0]
	for _, v := range versions[1:] {
		if best.Less(v) {
			best = v
		}
	}
	return best
}

func largestOverall(versions []Version) Version {
	return largestPatch(versions)
}

func compileAll() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = map[string]*jsonschema.Schema{}
		c := jsonschema.NewCompiler()

		compileErr = fs.WalkDir(schemaFS, "schemas", func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".json") {
				return err
			}
			data, err := schemaFS.ReadFile(path)
			if err != nil {
				return err
			}
			doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			url := "asdesigner://" + path
			return c.AddResource(url, doc)
		})
		if compileErr != nil {
			return
		}

		for _, kind := range []design.Kind{design.KindNode, design.KindModule, design.KindParameterSet, design.KindSystem} {
			versions, err := availableVersions(kind)
			if err != nil {
				compileErr = err
				return
			}
			for _, v := range versions {
				url := fmt.Sprintf("asdesigner://schemas/%s/%s.json", v, schemaKindName(kind))
				sch, err := c.Compile(url)
				if err != nil {
					compileErr = fmt.Errorf("compiling %s: %w", url, err)
					return
				}
				compiled[fmt.Sprintf("%s/%s", v, schemaKindName(kind))] = sch
			}
		}
	})
	return compiled, compileErr
}

// schemaFor returns the compiled schema that best matches declared for kind.
func schemaFor(kind design.Kind, declared Version) (*jsonschema.Schema, Version, error) {
	all, err := compileAll()
	if err != nil {
		return nil, Version{}, errors.Wrap(errors.ErrCodeFormatVersion, "failed to compile bundled schemas", err)
	}
	resolved, err := pickSchemaVersion(kind, declared)
	if err != nil {
		return nil, Version{}, err
	}
	sch, ok := all[fmt.Sprintf("%s/%s", resolved, schemaKindName(kind))]
	if !ok {
		return nil, Version{}, errors.New(errors.ErrCodeFormatVersion, fmt.Sprintf("resolved schema version %s not compiled", resolved))
	}
	return sch, resolved, nil
}
