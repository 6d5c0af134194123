package variant

import (
	"fmt"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
)

// Resolve applies a variant's override/remove body onto a deep copy of
// base, producing the effective Config a registry lookup hands back to
// callers (spec.md §4.C.4, §4.D). base is never mutated: Config.Clone()
// deep-copies both the raw tree and the decoded spec before any merge runs.
//
// Identity fields — name, full_name, file_path, package, sub_type — are
// set to variantCfg's values, not base's; variantCfg.Raw is kept on the
// result's Doc-adjacent bookkeeping so downstream resolvers can still walk
// the variant's own override/remove yaml_paths for source locations.
func Resolve(base, variantCfg *design.Config) (*design.Config, error) {
	if base.Kind != variantCfg.Kind {
		return nil, errors.ValidationError(
			fmt.Sprintf("variant %s (%s) cannot extend base %s (%s): kind mismatch", variantCfg.FullName, variantCfg.Kind, base.FullName, base.Kind),
			map[string]interface{}{"variant": variantCfg.FullName, "base": base.FullName},
		)
	}

	override, _ := toStringMap(variantCfg.Raw["override"])
	remove, _ := toStringMap(variantCfg.Raw["remove"])

	resolved := base.Clone()
	merged, err := MergeOverride(base.Kind, resolved.Raw, override)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidation, fmt.Sprintf("failed to merge variant %s onto base %s", variantCfg.FullName, base.FullName), err)
	}
	if remove != nil {
		merged = ApplyRemove(base.Kind, merged, remove)
	}

	resolved.Name = variantCfg.Name
	resolved.FullName = variantCfg.FullName
	resolved.FilePath = variantCfg.FilePath
	resolved.Package = variantCfg.Package
	resolved.SubType = design.SubTypeVariant
	resolved.Base = variantCfg.Base
	resolved.Doc = variantCfg.Doc

	if err := resolved.ReplaceRaw(merged); err != nil {
		return nil, err
	}

	if base.Kind == design.KindSystem {
		harvestModeConfigs(resolved, variantCfg)
	}

	return resolved, nil
}

// harvestModeConfigs implements spec.md §4.D's "System modes" rule: for
// each mode name present in the merged `modes` list, a top-level key in the
// *variant's own* raw tree equal to that mode name is harvested into
// mode_configs[name] as an {override, remove} bundle.
func harvestModeConfigs(resolved, variantCfg *design.Config) {
	if resolved.System == nil {
		return
	}
	if resolved.System.ModeConfigs == nil {
		resolved.System.ModeConfigs = map[string]design.ModeConfig{}
	}

	for _, mode := range resolved.System.Modes {
		raw, ok := variantCfg.Raw[mode.Name]
		if !ok {
			continue
		}
		m, ok := toStringMap(raw)
		if !ok {
			continue
		}
		override, _ := toStringMap(m["override"])
		remove, _ := toStringMap(m["remove"])
		resolved.System.ModeConfigs[mode.Name] = design.ModeConfig{
			Override: override,
			Remove:   remove,
		}
	}
}
