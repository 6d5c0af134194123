package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/driver"
	"github.com/davidthor/asdesigner/pkg/registry"
)

// packageProviderConfig reads the "package_provider" viper key (bound to
// --package-provider and AUTOWARE_SYSTEM_DESIGNER_PACKAGE_PROVIDER) and
// parses each "name=source|installed" entry (spec.md §4.C.2).
func packageProviderConfig() (map[string]design.PackageResolution, error) {
	raw := viper.GetStringSlice("package_provider")
	out := make(map[string]design.PackageResolution, len(raw))
	for _, entry := range raw {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --package-provider entry %q, expected name=source|installed", entry)
		}
		switch design.PackageResolution(value) {
		case design.PackageResolutionSource, design.PackageResolutionInstalled:
			out[name] = design.PackageResolution(value)
		default:
			return nil, fmt.Errorf("invalid package resolution %q for package %q, expected \"source\" or \"installed\"", value, name)
		}
	}
	return out, nil
}

// loadRegistry builds a registry from manifestDir using the configured
// package-provider table.
func loadRegistry(manifestDir string) (*registry.Registry, error) {
	providers, err := packageProviderConfig()
	if err != nil {
		return nil, err
	}
	return driver.LoadWorkspace(manifestDir, providers)
}
