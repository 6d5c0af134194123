// Package cli implements the asdesignerctl CLI commands.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "AUTOWARE_SYSTEM_DESIGNER"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "asdesignerctl",
	Short: "Compile autoware_system_design_format workspaces into instance trees",
	Long: `asdesignerctl loads a workspace of node/module/parameter_set/system design
files, resolves a system's modes against it, and produces the per-mode
instance tree downstream launch tooling consumes.

Examples:
  asdesignerctl build ./workspace --system MyRobot --mode default
  asdesignerctl validate ./workspace
  asdesignerctl lint ./workspace
  asdesignerctl explain ./workspace --node Detector.node`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.asdesigner.yaml)")
	rootCmd.PersistentFlags().StringArray("package-provider", nil, "package resolution override, \"name=source|installed\"")

	_ = viper.BindPFlag("package_provider", rootCmd.PersistentFlags().Lookup("package-provider"))
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newLintCmd())
	rootCmd.AddCommand(newExplainCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".asdesigner")
		viper.SetConfigType("yaml")
	}
	_ = viper.ReadInConfig()
}
