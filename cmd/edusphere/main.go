package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"edusphere/internal/app"
	"edusphere/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	flagYes     bool
	flagVerbose bool
)

// loadDotEnv loads .env from the working directory when present, so
// EDUSPHERE_* variables can live next to a checkout.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// readConfig reads the config file found by app.DefaultPaths.
func readConfig() (*config.Config, string, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, "", err
	}
	path := paths.ConfigFile
	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("reading config (run 'edusphere config init' first): %w", err)
	}
	return cfg, path, nil
}

// newApp reads the config and creates a PortalApp. The caller must defer app.Close().
func newApp() (*app.PortalApp, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}

	var opts []app.Option
	if flagVerbose {
		opts = append(opts, app.WithStderr(os.Stderr))
	}
	a, err := app.NewPortalApp(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// requireAdmin refuses mutations outside admin mode.
func requireAdmin(a *app.PortalApp) error {
	if err := a.Gate().Require(); err != nil {
		return fmt.Errorf("%w: run 'edusphere login' first", err)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:          "edusphere",
	Short:        "Study portal: browse subjects, file materials, generate study packs",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadDotEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Skip confirmation prompts for destructive actions")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Mirror the log to stderr")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(subjectsCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(materialCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(serveCmd)
}
