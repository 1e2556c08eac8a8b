package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/tapclick/internal/config"
)

var configOpts struct {
	force  bool
	format string
}

// configCmd represents the config command group.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the tapclickd configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	RunE:  configInitRun,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration tapclickd would run with: the config file over
the defaults, with TAPCLICK_* environment overrides applied.`,
	Annotations: map[string]string{needsConfig: ""},
	RunE:        configShowRun,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().BoolVar(&configOpts.force, "force", false,
		"Overwrite an existing config file")
	configShowCmd.Flags().StringVarP(&configOpts.format, "format", "f", "toml",
		"Output format (toml, json, yaml)")

	rootCmd.AddCommand(configCmd)
}

func configPath() (string, error) {
	if globalOpts.configPath != "" {
		return config.ExpandPath(globalOpts.configPath), nil
	}
	return config.DefaultPath()
}

func configInitRun(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(path); err == nil && !configOpts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Println("wrote", path)
	return nil
}

func configShowRun(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(configOpts.format) {
	case "toml":
		data, err = toml.Marshal(cfg)
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("unknown format %q (valid: toml, json, yaml)", configOpts.format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	_, err = os.Stdout.Write(data)
	return err
}
