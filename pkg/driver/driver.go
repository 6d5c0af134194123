// Package driver orchestrates a full build: load a workspace's registry,
// resolve the build target (a single system, or a deployments table), and
// for each mode run the instance-tree pipeline end to end, persisting a
// crash-diagnostic snapshot after every step (spec.md §4.I).
package driver

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
	"github.com/davidthor/asdesigner/pkg/link"
	"github.com/davidthor/asdesigner/pkg/logging"
	"github.com/davidthor/asdesigner/pkg/mode"
	"github.com/davidthor/asdesigner/pkg/paramengine"
	"github.com/davidthor/asdesigner/pkg/registry"
	"github.com/davidthor/asdesigner/pkg/tree"
)

// Clock supplies the current time for snapshot/payload timestamps. When a
// Driver's Now is nil, the driver uses time.Now() in UTC, RFC 3339 format.
type Clock func() string

// SnapshotWriter persists one pipeline-step snapshot, keyed by a
// per-build correlation id (spec.md §4.F, SPEC_FULL.md §9.5).
type SnapshotWriter func(buildID, systemName, mode, step string, root *tree.Instance, stepErr error)

// Driver wires the registry, link resolver and parameter engine into the
// tree package's build pipeline.
type Driver struct {
	Registry *registry.Registry
	Logger   *slog.Logger
	Now      Clock
	Snapshot SnapshotWriter
}

// New builds a Driver around an already-loaded registry.
func New(reg *registry.Registry, logger *slog.Logger, now Clock) *Driver {
	if logger == nil {
		logger = logging.FromEnv()
	}
	return &Driver{Registry: reg, Logger: logger, Now: now}
}

func (d *Driver) now() string {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// BuildResult is one mode's finished (or partially-built, on failure)
// instance tree, tagged with the build id used for its snapshots and the
// time the build completed.
type BuildResult struct {
	BuildID     string
	Mode        string
	Root        *tree.Instance
	GeneratedAt string
}

// BuildMode runs the full set_system pipeline for one (systemName, modeName)
// pair (spec.md §4.I): deep-copies the system, applies the mode, builds a
// fresh instance tree, and on failure wraps the cause in a DeploymentError
// carrying the registry's accumulated minor-version-mismatch warnings.
func (d *Driver) BuildMode(systemName, modeName string, packagePaths map[string]string) (*BuildResult, error) {
	buildID := uuid.New().String()
	log := logging.ForBuild(d.Logger, systemName, modeName).With("build_id", buildID)

	base, err := d.Registry.GetSystem(systemName)
	if err != nil {
		return nil, err
	}

	resolved, err := mode.Resolve(base, modeName)
	if err != nil {
		return nil, errors.DeploymentError(systemName, modeName, err, d.Registry.Warnings())
	}

	root := tree.New(resolved.Name, nil, tree.EntityTypeSystem, resolved, nil, 0, nil)

	engine := paramengine.New(d.Registry)
	opts := tree.Options{
		Registry:     d.Registry,
		PackagePaths: packagePaths,
		Links:        link.New(),
		Parameters:   engine,
		Snapshot: func(instance *tree.Instance, step string, stepErr error) {
			logging.Step(log, step).Info("set_system step complete", "error", errString(stepErr))
			if d.Snapshot != nil {
				d.Snapshot(buildID, systemName, modeName, step, instance, stepErr)
			}
		},
	}

	if err := tree.SetSystem(root, resolved, opts); err != nil {
		log.Error("build failed", "error", err)
		return &BuildResult{BuildID: buildID, Mode: modeName, Root: root, GeneratedAt: d.now()},
			errors.DeploymentError(systemName, modeName, err, d.Registry.Warnings())
	}

	log.Info("build succeeded")
	return &BuildResult{BuildID: buildID, Mode: modeName, Root: root, GeneratedAt: d.now()}, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// BuildAllModes builds every mode a system declares (spec.md §4.E
// "_select_modes"). Modes are not independent (spec.md §5 "Failure
// isolation"): the first mode to fail saves its own last snapshot (via
// BuildMode's Snapshot callback) and aborts the whole deployment, so
// BuildAllModes stops there and returns the modes already built plus that
// one error, rather than attempting the remaining modes.
func (d *Driver) BuildAllModes(systemName string, packagePaths map[string]string) ([]*BuildResult, error) {
	base, err := d.Registry.GetSystem(systemName)
	if err != nil {
		return nil, err
	}
	names, _ := base.System.SelectModes()

	var results []*BuildResult
	for _, name := range names {
		result, err := d.BuildMode(systemName, name, packagePaths)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// DeploymentsConfig is a `.deployments.yaml` document (SPEC_FULL.md §9.1):
// one base system expanded into N named deploy variants, each supplying
// its own build arguments.
type DeploymentsConfig struct {
	Base       string          `yaml:"base"`
	DeployList []DeployVariant `yaml:"deploy_list"`
}

// DeployVariant is one named entry of a DeploymentsConfig's deploy_list.
type DeployVariant struct {
	Name      string                 `yaml:"name"`
	Arguments map[string]interface{} `yaml:"arguments,omitempty"`
}

// ExpandDeployments builds every mode of every named variant in cfg,
// resolving each variant's `arguments` against the base system's declared
// `arguments` defaults and feeding the result into the system's `variables`
// map before the build (SPEC_FULL.md §9.1). Each named variant is its own
// deployment (`deployment/deployment_config.py`'s deploy_list entries), so a
// failure building one variant does not stop the others from being
// attempted; but within a single variant, modes are not independent
// (spec.md §5 "Failure isolation") — the first mode to fail aborts the rest
// of that variant's modes, same as BuildAllModes.
func (d *Driver) ExpandDeployments(cfg DeploymentsConfig, packagePaths map[string]string) (map[string][]*BuildResult, []error) {
	base, err := d.Registry.GetSystem(cfg.Base)
	if err != nil {
		return nil, []error{err}
	}

	results := map[string][]*BuildResult{}
	var allErrs []error

	for _, variant := range cfg.DeployList {
		variantSystem := base.Clone()
		applyArguments(variantSystem, variant.Arguments)

		names, _ := variantSystem.System.SelectModes()
		var variantResults []*BuildResult
		for _, name := range names {
			resolved, err := mode.Resolve(variantSystem, name)
			if err != nil {
				allErrs = append(allErrs, errors.DeploymentError(cfg.Base, name, err, d.Registry.Warnings()).WithDetail("deploy_variant", variant.Name))
				break
			}

			root := tree.New(resolved.Name, nil, tree.EntityTypeSystem, resolved, nil, 0, nil)
			buildID := uuid.New().String()
			log := logging.ForBuild(d.Logger, cfg.Base, name).With("build_id", buildID, "deploy_variant", variant.Name)

			opts := tree.Options{
				Registry:     d.Registry,
				PackagePaths: packagePaths,
				Links:        link.New(),
				Parameters:   paramengine.New(d.Registry),
				Snapshot: func(instance *tree.Instance, step string, stepErr error) {
					logging.Step(log, step).Info("set_system step complete", "error", errString(stepErr))
					if d.Snapshot != nil {
						d.Snapshot(buildID, cfg.Base, name, step, instance, stepErr)
					}
				},
			}

			if err := tree.SetSystem(root, resolved, opts); err != nil {
				allErrs = append(allErrs, errors.DeploymentError(cfg.Base, name, err, d.Registry.Warnings()).WithDetail("deploy_variant", variant.Name))
				break
			}
			variantResults = append(variantResults, &BuildResult{BuildID: buildID, Mode: name, Root: root, GeneratedAt: d.now()})
		}
		results[variant.Name] = variantResults
	}

	return results, allErrs
}

// applyArguments layers a deploy variant's concrete argument values over the
// system's own declared `arguments` defaults, then merges the result into
// its `variables` map so `$(var ...)` substitutions see them.
func applyArguments(sys *design.Config, args map[string]interface{}) {
	if sys.System.Variables == nil {
		sys.System.Variables = map[string]interface{}{}
	}
	for _, arg := range sys.System.Arguments {
		sys.System.Variables[arg.Name] = arg.Default
	}
	for k, v := range args {
		sys.System.Variables[k] = v
	}
}
