// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"modlink-cli/internal/config"
	"modlink-cli/internal/issue"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage modlink configuration",
	Long: `Manage modlink configuration.

Configuration is stored in:
  - Linux: ~/.config/modlink/config.cue
  - macOS: ~/Library/Application Support/modlink/config.cue
  - Windows: %APPDATA%\modlink\config.cue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), args[0], args[1])
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCLIConfig(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Print(config.GenerateCUE(cfg))
			return nil
		},
	})
}

func showConfig(ctx context.Context) error {
	cfg, err := loadCLIConfig(ctx)
	if err != nil {
		rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render(string(config.ColorSchemeDark))
		fmt.Fprint(os.Stderr, rendered)
		return err
	}

	// Style definitions using shared color palette
	headerStyle := TitleStyle
	keyStyle := ValueStyle
	valueStyle := SuccessStyle

	fmt.Println(headerStyle.Render("Current Configuration"))
	fmt.Println()

	// Derive the config file path from the standard config directory; the
	// provider does not cache resolved paths.
	cfgDir, dirErr := config.ConfigDir()
	if dirErr == nil {
		cfgPath := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
		if fileExistsCheck(cfgPath) {
			fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), cfgPath)
		} else {
			fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
		}
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	// Show values
	fmt.Printf("%s: %s\n", keyStyle.Render("source_dir"), valueStyle.Render(string(cfg.SourceDir)))
	fmt.Printf("%s: %s\n", keyStyle.Render("deps_dir"), valueStyle.Render(string(cfg.DepsDir)))
	fmt.Printf("%s: %s\n", keyStyle.Render("module_mode"), valueStyle.Render(fmt.Sprintf("%v", cfg.ModuleMode)))
	fmt.Printf("%s: %s\n", keyStyle.Render("restore_descriptors"), valueStyle.Render(fmt.Sprintf("%v", cfg.RestoreDescriptors)))
	fmt.Printf("%s: %s\n", keyStyle.Render("force_clean_dependencies"), valueStyle.Render(fmt.Sprintf("%v", cfg.ForceCleanDependencies)))
	if cfg.SyncSession != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("sync_session"), valueStyle.Render(string(cfg.SyncSession)))
	}
	if cfg.SessionLockDir != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("session_lock_dir"), valueStyle.Render(string(cfg.SessionLockDir)))
	}

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("ui"))
	fmt.Printf("  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))
	fmt.Printf("  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("watch"))
	fmt.Printf("  debounce_ms: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Watch.DebounceMs)))

	return nil
}

func initConfigFile() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err = config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Printf("%s Created default configuration at %s\n",
		SuccessStyle.Render("✓"),
		filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}

func showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("Config directory: %s\n", cfgDir)
	fmt.Printf("Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}

func setConfigValue(ctx context.Context, key, value string) error {
	cfg, err := loadCLIConfig(ctx)
	if err != nil {
		return err
	}

	switch key {
	case "source_dir":
		cfg.SourceDir = config.DirPath(value)

	case "deps_dir":
		cfg.DepsDir = config.DirPath(value)

	case "module_mode":
		cfg.ModuleMode = value == "true" || value == "1"

	case "restore_descriptors":
		cfg.RestoreDescriptors = value == "true" || value == "1"

	case "force_clean_dependencies":
		cfg.ForceCleanDependencies = value == "true" || value == "1"

	case "sync_session":
		cfg.SyncSession = config.SessionID(value)

	case "session_lock_dir":
		cfg.SessionLockDir = config.DirPath(value)

	case "ui.verbose":
		cfg.UI.Verbose = value == "true" || value == "1"

	case "ui.color_scheme":
		cfg.UI.ColorScheme = config.ColorScheme(value)

	case "watch.debounce_ms":
		ms, parseErr := strconv.Atoi(value)
		if parseErr != nil {
			return fmt.Errorf("invalid watch.debounce_ms: %w", parseErr)
		}
		cfg.Watch.DebounceMs = ms

	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: source_dir, deps_dir, module_mode, restore_descriptors, force_clean_dependencies, sync_session, session_lock_dir, ui.verbose, ui.color_scheme, watch.debounce_ms", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
