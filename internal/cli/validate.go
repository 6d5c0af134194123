package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest-dir>",
		Short: "Load and schema-validate a workspace without building a tree",
		Long: `Loads every design file in manifest-dir, schema-validates it and resolves
every variant's base chain, but does not resolve a mode or build an
instance tree (spec.md §4.A-§4.C). Exits non-zero on the first error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(args[0])
			if err != nil {
				return fmt.Errorf("workspace invalid: %w", err)
			}

			entities := reg.All()
			for _, cfg := range entities {
				if _, err := reg.GetEntity(cfg.FullName); err != nil {
					return fmt.Errorf("workspace invalid: %w", err)
				}
			}
			for _, warning := range reg.Warnings() {
				fmt.Printf("warning: %s\n", warning)
			}
			fmt.Printf("workspace valid: %d entities loaded\n", len(entities))
			return nil
		},
	}
	return cmd
}
