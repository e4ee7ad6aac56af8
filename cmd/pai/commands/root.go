// Package commands implements the PAI CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pai",
		Short: "PAI - Property Assistant",
		Long: `PAI is the conversational assistant core for a property management
platform. It serves an authenticated chat API and a telephony webhook, and
controls the property's lighting, thermostats, vehicles, and audio through
a permission-scoped tool loop.

Examples:
  pai serve
  pai chat "turn on the lounge lights"
  pai config init
  pai snapshots poll`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newConfigCmd(),
		newSnapshotsCmd(),
	)

	// Global flags.
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
