package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/quintaverde/pai/pkg/pai/assistant"
)

// newConfigCmd creates the `pai config` command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage assistant configuration",
		Long: `Manage the PAI configuration file and credentials.

Examples:
  pai config init
  pai config show
  pai config set-key`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
		newConfigSetKeyCmd(),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		RunE: func(_ *cobra.Command, _ []string) error {
			const path = "config.yaml"
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := assistant.SaveConfigToFile(assistant.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Printf("Configuration written to ./%s\n", path)
			fmt.Println("Set your API key with: pai config set-key")
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			// Never print the resolved key.
			if cfg.API.APIKey != "" && !assistant.IsEnvReference(cfg.API.APIKey) {
				cfg.API.APIKey = "(set)"
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func newConfigSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Store the LLM API key in the OS keyring",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Print("API key (input hidden): ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("reading key: %w", err)
			}
			key := strings.TrimSpace(string(raw))
			if key == "" {
				return fmt.Errorf("no key entered")
			}

			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cmd, cfg)

			if !assistant.KeyringAvailable() {
				return fmt.Errorf("OS keyring unavailable; set PAI_API_KEY in the environment instead")
			}
			return assistant.MigrateKeyToKeyring(key, logger)
		},
	}
}
