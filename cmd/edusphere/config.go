package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"edusphere/internal/app"
	"edusphere/internal/config"
	"edusphere/internal/portal"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return err
		}

		profileID := uuid.New().String()
		cfg := config.NewConfig(profileID, paths.BaseDir)

		if err := config.Init(paths.ConfigFile, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration initialized at %s\n", paths.ConfigFile)
		fmt.Fprintf(out, "Profile ID: %s\n", profileID)
		fmt.Fprintf(out, "Base Dir:   %s\n", paths.BaseDir)
		fmt.Fprintln(out, "Set [gate] passcode_hash with 'edusphere config passcode' to enable admin mode.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		vaults := make([]string, 0, len(cfg.Vaults))
		for _, v := range cfg.Vaults {
			vaults = append(vaults, fmt.Sprintf("%s (%s)", v.Name, v.Type))
		}
		gate := "disabled"
		if cfg.Gate.PasscodeHash != "" {
			gate = "passcode set"
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration from %s:\n\n", path)
		fmt.Fprintf(out, "Profile ID: %s\n", cfg.ProfileID)
		fmt.Fprintf(out, "Base Dir:   %s\n", cfg.BaseDir)
		fmt.Fprintf(out, "Log Dir:    %s\n", cfg.LogDir)
		fmt.Fprintf(out, "Storage:    %s %s\n", cfg.Storage.Type, cfg.Storage.DataDir)
		fmt.Fprintf(out, "Session:    %s\n", cfg.Session.Type)
		fmt.Fprintf(out, "Gate:       %s\n", gate)
		fmt.Fprintf(out, "Vaults:     %s\n", strings.Join(vaults, ", "))
		fmt.Fprintf(out, "Encryption: %s\n", cfg.Encryption.Type)
		fmt.Fprintf(out, "Generation: %s\n", cfg.Generation.Type)
		fmt.Fprintf(out, "Server:     %s\n", cfg.Server.Addr)
		return nil
	},
}

var configPasscodeCmd = &cobra.Command{
	Use:   "passcode",
	Short: "Hash an admin passcode for the [gate] section",
	RunE: func(cmd *cobra.Command, args []string) error {
		passcode, err := promptNewSecret(cmd, "Admin passcode")
		if err != nil {
			return err
		}
		hash, err := portal.HashPasscode(passcode)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Add this to your config:")
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), "[gate]")
		fmt.Fprintf(cmd.OutOrStdout(), "passcode_hash = %q\n", hash)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPasscodeCmd)
}
