// Package registry implements the entity registry (spec.md §4.C): it
// parses and schema-validates every design file in a workspace, indexes
// the resulting Configs by full_name and by (kind, name), and hands
// callers fully variant-resolved Configs on lookup.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
	"github.com/davidthor/asdesigner/pkg/schemaspec"
	"github.com/davidthor/asdesigner/pkg/sourcemap"
	"github.com/davidthor/asdesigner/pkg/variant"
)

// WorkspaceConfig maps a ROS package name to how its Nodes' package should
// be resolved (spec.md §4.C.2): "source" when the package is built from a
// workspace checkout, "installed" when it comes from an apt/colcon install.
type WorkspaceConfig struct {
	PackageProvider map[string]design.PackageResolution
}

// Registry holds every entity parsed from a workspace and resolves
// variant lookups on demand.
type Registry struct {
	workspace WorkspaceConfig

	byFullName map[string]*design.Config
	byKindName map[string]*design.Config // "{kind}/{name}"

	filePackage map[string]string // absolute design file path -> package name
	warnings    []string

	sourcePathCache map[string]string
	sourcePathMiss  map[string]bool

	deploymentPackageName string
}

// New creates an empty registry bound to a workspace's provider config.
func New(workspace WorkspaceConfig) *Registry {
	return &Registry{
		workspace:       workspace,
		byFullName:      map[string]*design.Config{},
		byKindName:      map[string]*design.Config{},
		filePackage:     map[string]string{},
		sourcePathCache: map[string]string{},
		sourcePathMiss:  map[string]bool{},
	}
}

// Load parses and indexes every design file in paths. filePackage maps each
// absolute path to the ROS package that owns it (spec.md §4.C.2).
func (r *Registry) Load(paths []string, filePackage map[string]string) error {
	for k, v := range filePackage {
		r.filePackage[k] = v
	}

	for _, path := range paths {
		if err := r.loadOne(path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loadOne(path string) error {
	kind, err := design.KindFromPath(path)
	if err != nil {
		return err
	}

	doc, err := sourcemap.Load(path)
	if err != nil {
		return err
	}

	cfg, err := design.FromDocument(doc, kind)
	if err != nil {
		return err
	}

	result, err := schemaspec.Validate(cfg)
	if err != nil {
		return err
	}
	r.warnings = append(r.warnings, result.Warnings...)

	cfg.Package = r.filePackage[path]
	if kind == design.KindNode {
		cfg.Node.PackageResolution = r.workspace.PackageProvider[cfg.Node.PackageProvider]
		if cfg.Node.PackageResolution == design.PackageResolutionNone {
			cfg.Node.PackageResolution = r.workspace.PackageProvider[cfg.Package]
		}
	}

	return r.insert(cfg)
}

func (r *Registry) insert(cfg *design.Config) error {
	if existing, ok := r.byFullName[cfg.FullName]; ok {
		return errors.ValidationError(
			fmt.Sprintf("duplicate full_name %q declared in both %s and %s", cfg.FullName, existing.FilePath, cfg.FilePath),
			map[string]interface{}{"full_name": cfg.FullName, "file1": existing.FilePath, "file2": cfg.FilePath},
		)
	}

	r.byFullName[cfg.FullName] = cfg
	r.byKindName[kindNameKey(cfg.Kind, cfg.Name)] = cfg
	return nil
}

func kindNameKey(kind design.Kind, name string) string {
	return string(kind) + "/" + name
}

// Warnings returns every non-fatal warning accumulated while loading (missing
// or minor-newer format versions).
func (r *Registry) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// All returns every entity this registry loaded, in its raw (unresolved)
// form — a variant's own Config, not its base-merged result — sorted by
// full_name for deterministic iteration. Used by pkg/lint, which inspects
// each file's own declared shape rather than a resolved instance.
func (r *Registry) All() []*design.Config {
	out := make([]*design.Config, 0, len(r.byFullName))
	for _, cfg := range r.byFullName {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

// SetDeploymentPackageName records the package owning the build target file
// (spec.md §4.C.6), consulted by the parameter engine for source-fallback
// eligibility.
func (r *Registry) SetDeploymentPackageName(name string) {
	r.deploymentPackageName = name
}

// DeploymentPackageName returns the package recorded by SetDeploymentPackageName.
func (r *Registry) DeploymentPackageName() string {
	return r.deploymentPackageName
}

// splitDotted tolerates a "name.kind" reference by stripping a trailing
// ".kind" suffix when the caller already knows which kind it wants.
func splitDotted(ref string, kind design.Kind) string {
	suffix := "." + string(kind)
	if strings.HasSuffix(ref, suffix) {
		return strings.TrimSuffix(ref, suffix)
	}
	return ref
}

// get looks up a base Config by kind and name (tolerating a dotted
// "name.kind" form) and fully resolves it if it's a variant, recursively
// resolving its own base chain first. The returned Config is always a
// Clone (see design.Config.Clone), never the stored entry itself.
func (r *Registry) get(kind design.Kind, name string) (*design.Config, error) {
	name = splitDotted(name, kind)

	cfg, ok := r.byKindName[kindNameKey(kind, name)]
	if !ok {
		return nil, errors.NotFoundError(string(kind), name)
	}

	return r.resolve(cfg)
}

func (r *Registry) resolve(cfg *design.Config) (*design.Config, error) {
	if cfg.SubType == design.SubTypeBase {
		return cfg.Clone(), nil
	}

	baseName := splitDotted(cfg.Base, cfg.Kind)
	baseCfg, ok := r.byKindName[kindNameKey(cfg.Kind, baseName)]
	if !ok {
		return nil, errors.NotFoundError(string(cfg.Kind), baseName).WithDetail("referenced_by", cfg.FullName)
	}

	resolvedBase, err := r.resolve(baseCfg)
	if err != nil {
		return nil, err
	}

	return variant.Resolve(resolvedBase, cfg)
}

// GetNode resolves a Node by name.
func (r *Registry) GetNode(name string) (*design.Config, error) { return r.get(design.KindNode, name) }

// GetModule resolves a Module by name.
func (r *Registry) GetModule(name string) (*design.Config, error) {
	return r.get(design.KindModule, name)
}

// GetParameterSet resolves a ParameterSet by name.
func (r *Registry) GetParameterSet(name string) (*design.Config, error) {
	return r.get(design.KindParameterSet, name)
}

// GetSystem resolves a System by name.
func (r *Registry) GetSystem(name string) (*design.Config, error) {
	return r.get(design.KindSystem, name)
}

// GetEntity resolves any entity given an "name.kind" reference, as used by
// Instance/Component.Entity fields.
func (r *Registry) GetEntity(ref string) (*design.Config, error) {
	idx := strings.LastIndex(ref, ".")
	if idx < 0 {
		return nil, errors.NotFoundError("entity", ref)
	}
	name, kindStr := ref[:idx], design.Kind(ref[idx+1:])
	return r.get(kindStr, name)
}

// GetPackageSourcePath implements spec.md §4.C.5: scan the file-package map
// for any file belonging to pkg, then walk up from that file looking for
// the nearest package.xml. Both positive and negative results are cached.
func (r *Registry) GetPackageSourcePath(pkg string) (string, bool) {
	if path, ok := r.sourcePathCache[pkg]; ok {
		return path, true
	}
	if r.sourcePathMiss[pkg] {
		return "", false
	}

	for file, owner := range r.filePackage {
		if owner != pkg {
			continue
		}
		if path, ok := findPackageXML(filepath.Dir(file)); ok {
			r.sourcePathCache[pkg] = path
			return path, true
		}
	}

	r.sourcePathMiss[pkg] = true
	return "", false
}

func findPackageXML(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, "package.xml")
		if _, err := os.Stat(candidate); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
