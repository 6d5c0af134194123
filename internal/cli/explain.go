package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newExplainCmd() *cobra.Command {
	var node string

	cmd := &cobra.Command{
		Use:   "explain <manifest-dir>",
		Short: "Print one entity's fully variant-resolved configuration",
		Long: `Loads a workspace and resolves one entity's full override/remove chain
(spec.md §4.C.4, §4.D), printing the merged result as YAML for
interactive debugging of a variant chain.

Examples:
  asdesignerctl explain ./workspace --node Detector.node
  asdesignerctl explain ./workspace --node TunedDetector.node`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if node == "" {
				return fmt.Errorf("--node is required")
			}

			reg, err := loadRegistry(args[0])
			if err != nil {
				return fmt.Errorf("failed to load workspace: %w", err)
			}

			cfg, err := reg.GetEntity(node)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", node, err)
			}

			data, err := yaml.Marshal(cfg.Raw)
			if err != nil {
				return fmt.Errorf("failed to render %s: %w", node, err)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "full_name (\"name.kind\") of the entity to resolve and print (required)")

	return cmd
}
