package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/netdisco/internal/config"
	"github.com/muurk/netdisco/internal/logging"
	"github.com/muurk/netdisco/internal/ui"
)

var forceInit bool

// configCmd groups the config file commands. They must work when the
// existing file is invalid, so they skip loadSettings.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and the --log-level and
--limit flags are applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadSettings(cmd, args); err != nil {
			return err
		}
		data, err := settings.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Example: `  netdisco config init
  netdisco config init --config ./netdisco.yaml --force`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file without asking")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	switch {
	case err == nil:
		if !forceInit && !ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Overwrite configuration", []string{
			path + " already exists",
			"Its contents will be replaced with the defaults",
		}) {
			return nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("cannot access %s: %w", path, err)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	logging.Info("Configuration written", zap.String("path", path))

	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Configuration written", ui.Param{Key: "Path", Value: path})
	return nil
}
