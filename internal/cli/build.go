package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/davidthor/asdesigner/pkg/driver"
	"github.com/davidthor/asdesigner/pkg/serialize"
)

func newBuildCmd() *cobra.Command {
	var system, mode, outDir string

	cmd := &cobra.Command{
		Use:   "build <manifest-dir>",
		Short: "Build a system's instance tree for one or every declared mode",
		Long: `Loads a workspace, resolves the named system against one mode (or every
mode it declares when --mode is omitted), and writes one JSON file per
mode under <out>/exports/<system>/system_structure/<mode>.json
(spec.md §4.F, §4.I).

Examples:
  asdesignerctl build ./workspace --system MyRobot --mode default
  asdesignerctl build ./workspace --system MyRobot --out ./build`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if system == "" {
				return fmt.Errorf("--system is required")
			}

			reg, err := loadRegistry(args[0])
			if err != nil {
				return fmt.Errorf("failed to load workspace: %w", err)
			}

			d := driver.New(reg, nil, nil)

			var results []*driver.BuildResult
			var buildErr error
			if mode != "" {
				result, err := d.BuildMode(system, mode, nil)
				if err != nil {
					buildErr = err
				} else {
					results = append(results, result)
				}
			} else {
				results, buildErr = d.BuildAllModes(system, nil)
			}

			for _, result := range results {
				if err := writeResult(outDir, system, result); err != nil {
					return err
				}
				fmt.Printf("built %s mode %s (build %s)\n", system, result.Mode, result.BuildID)
			}

			if buildErr != nil {
				fmt.Fprintf(os.Stderr, "build error: %v\n", buildErr)
				return fmt.Errorf("build aborted after %d mode(s): %w", len(results), buildErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&system, "system", "", "system name to build (required)")
	cmd.Flags().StringVar(&mode, "mode", "", "mode to build (default: every mode the system declares)")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory root")

	return cmd
}

func writeResult(outDir, system string, result *driver.BuildResult) error {
	payload := serialize.New(result.Root, system, result.Mode, result.GeneratedAt, "finalize", nil)
	data, err := serialize.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to render %s/%s: %w", system, result.Mode, err)
	}

	dir := filepath.Join(outDir, "exports", system, "system_structure")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, result.Mode+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
