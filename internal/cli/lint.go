package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davidthor/asdesigner/pkg/lint"
)

func newLintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <manifest-dir>",
		Short: "Report naming and structure findings across a workspace",
		Long: `Loads a workspace and runs pkg/lint.Check over every entity, reporting
naming-convention and structural findings that pass schema validation but
are still worth a human's attention (SPEC_FULL.md §9.3). A Finding never
fails the command; the exit code reflects only load/schema errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(args[0])
			if err != nil {
				return fmt.Errorf("failed to load workspace: %w", err)
			}

			findings := lint.Check(reg)
			if len(findings) == 0 {
				fmt.Println("no findings")
				return nil
			}

			for _, f := range findings {
				loc := ""
				if f.Location != nil {
					loc = " (" + f.Location.String() + ")"
				}
				fmt.Printf("[%s] %s: %s%s\n", f.Severity, f.Code, f.Message, loc)
			}
			fmt.Printf("%d finding(s)\n", len(findings))
			return nil
		},
	}
	return cmd
}
