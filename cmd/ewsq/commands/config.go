package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tarowe/go-ews/config"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ewsq configuration",
	Long: `config — Manage ewsq configuration

Display and manage query, bulk and retry settings.

Configuration sources (in order of precedence):
1. Environment variables (EWSQ_* prefix)
2. Project config (./ewsq.toml, searched upward)
3. User config (~/.config/ewsq/ewsq.toml)
4. Default values

Examples:
  ewsq config show                  # Show current configuration
  ewsq config show --format json    # Show configuration in JSON format
  ewsq config get retry.max_attempts
  ewsq config init                  # Write a default user config
  ewsq config validate              # Validate current configuration`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective configuration merged from all sources",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., query.page_size, retry.max_attempts)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default user configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runConfigValidate,
}

var configFormat string
var configInitForce bool

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	settings := config.GetViper().AllSettings()

	switch configFormat {
	case "json":
		out, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format config: %w", err)
		}
		fmt.Println(string(out))
	case "toml":
		out, err := toml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to format config: %w", err)
		}
		fmt.Print(string(out))
	default:
		return fmt.Errorf("unknown format %q (want toml or json)", configFormat)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	v := config.GetViper()
	if !v.IsSet(args[0]) {
		return fmt.Errorf("unknown configuration key %q", args[0])
	}
	fmt.Println(v.Get(args[0]))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory: %w", err)
	}
	path := filepath.Join(home, ".config", "ewsq", "ewsq.toml")

	if _, err := os.Stat(path); err == nil && !configInitForce {
		pterm.Warning.Printf("Config file already exists: %s (use --force to overwrite)\n", path)
		return nil
	}

	if err := config.Save(config.Default(), path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	pterm.Success.Printf("Wrote default configuration to %s\n", path)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		pterm.Error.Printf("Configuration is invalid: %v\n", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		pterm.Error.Printf("Configuration is invalid: %v\n", err)
		return err
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}
