package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tarowe/go-ews/cmd/ewsq/commands"
	"github.com/tarowe/go-ews/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ewsq",
	Short: "ewsq - Mailbox query tooling",
	Long: `ewsq - Offline tooling for the go-ews query engine.

Inspect configuration and see how filter expressions compile into wire
restrictions, without touching a live mailbox.

Available commands:
  config  - Manage ewsq configuration
  explain - Compile filter expressions and show the wire restriction
  version - Show version information

Examples:
  ewsq config show                                # Show current configuration
  ewsq explain subject__icontains=report          # Compile one lookup
  ewsq explain is_read=false size__gte=1000       # AND-combined lookups`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.InitializeWithLevel(false, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")

	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.ExplainCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
