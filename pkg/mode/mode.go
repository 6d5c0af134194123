// Package mode implements the mode resolver (spec.md §4.E): selecting the
// System variant effective for one declared mode.
package mode

import (
	"fmt"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
	"github.com/davidthor/asdesigner/pkg/variant"
)

// DefaultMode is the sentinel mode name used when a System declares no
// `modes` list at all.
const DefaultMode = "default"

// Resolve deep-copies base, drops components carrying the deprecated
// top-level `mode` field, and — unless modeName is the "default" sentinel
// or the system has no mode_configs — applies the {override, remove}
// bundle recorded for modeName via the variant engine (spec.md §4.D
// "system variant").
func Resolve(base *design.Config, modeName string) (*design.Config, error) {
	if base.Kind != design.KindSystem {
		return nil, errors.ValidationError(
			fmt.Sprintf("mode resolution requires a system config, got %s", base.Kind),
			map[string]interface{}{"kind": string(base.Kind)},
		)
	}

	cfg := base.Clone()
	dropLegacyModeComponents(cfg)

	if modeName == DefaultMode || len(cfg.System.ModeConfigs) == 0 {
		return cfg, nil
	}

	bundle, ok := cfg.System.ModeConfigs[modeName]
	if !ok {
		return cfg, nil
	}

	merged, err := variant.MergeOverride(design.KindSystem, cfg.Raw, bundle.Override)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidation, fmt.Sprintf("failed to apply mode %q to system %s", modeName, cfg.FullName), err)
	}
	if bundle.Remove != nil {
		merged = variant.ApplyRemove(design.KindSystem, merged, bundle.Remove)
	}

	if err := cfg.ReplaceRaw(merged); err != nil {
		return nil, err
	}
	dropLegacyModeComponents(cfg)

	return cfg, nil
}

// dropLegacyModeComponents removes any component still carrying the
// deprecated top-level `mode` field (spec.md §4.E "legacy cleanup").
func dropLegacyModeComponents(cfg *design.Config) {
	if cfg.System == nil || len(cfg.System.Components) == 0 {
		return
	}
	kept := cfg.System.Components[:0:0]
	for _, c := range cfg.System.Components {
		if c.Mode != "" {
			continue
		}
		kept = append(kept, c)
	}
	cfg.System.Components = kept
}
