// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWhenNoConfigFile(t *testing.T) {
	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("loadWithOptions() failed: %v", err)
	}
	if resolved != "" {
		t.Errorf("resolved path = %q, want empty for default config", resolved)
	}

	defaults := DefaultConfig()
	if cfg.SourceDir != defaults.SourceDir || cfg.DepsDir != defaults.DepsDir {
		t.Errorf("directories = (%q, %q), want defaults (%q, %q)",
			cfg.SourceDir, cfg.DepsDir, defaults.SourceDir, defaults.DepsDir)
	}
	if !cfg.ModuleMode || !cfg.RestoreDescriptors {
		t.Error("module_mode and restore_descriptors should default to true")
	}
	if cfg.Watch.DebounceMs != defaults.Watch.DebounceMs {
		t.Errorf("watch.debounce_ms = %d, want %d", cfg.Watch.DebounceMs, defaults.Watch.DebounceMs)
	}
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `
source_dir: "modules"
force_clean_dependencies: true
sync_session: "ci-42"
ui: verbose: true
watch: debounce_ms: 100
`)

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() failed: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.SourceDir != "modules" {
		t.Errorf("source_dir = %q, want %q", cfg.SourceDir, "modules")
	}
	if !cfg.ForceCleanDependencies {
		t.Error("force_clean_dependencies = false, want true")
	}
	if cfg.SyncSession != "ci-42" {
		t.Errorf("sync_session = %q, want ci-42", cfg.SyncSession)
	}
	if !cfg.UI.Verbose {
		t.Error("ui.verbose = false, want true")
	}
	if cfg.Watch.DebounceMs != 100 {
		t.Errorf("watch.debounce_ms = %d, want 100", cfg.Watch.DebounceMs)
	}
	// Untouched keys keep their defaults.
	if cfg.DepsDir != DefaultConfig().DepsDir {
		t.Errorf("deps_dir = %q, want default", cfg.DepsDir)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `watch: debounce_ms: -5`)

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("loadWithOptions() accepted a schema violation")
	}
	if !strings.Contains(err.Error(), "debounce_ms") {
		t.Errorf("error should name the invalid field: %v", err)
	}
}

func TestLoad_UnknownColorScheme(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `ui: color_scheme: "sepia"`)

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("loadWithOptions() accepted an unknown color scheme")
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})
	if err == nil {
		t.Fatal("loadWithOptions() with a missing explicit file = nil error")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("error should report the missing file: %v", err)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := loadWithOptions(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled, got: %v", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := DefaultConfig()
	original.SourceDir = "modules"
	original.SyncSession = "ci-7"
	original.UI.Verbose = true

	writeConfigFile(t, dir, GenerateCUE(original))

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() failed on generated config: %v", err)
	}
	if cfg.SourceDir != original.SourceDir || cfg.SyncSession != original.SyncSession || !cfg.UI.Verbose {
		t.Errorf("round-tripped config = %+v, want %+v", cfg, original)
	}
}

func TestProvider_Load(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `deps_dir: "build/deps"`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Provider.Load() failed: %v", err)
	}
	if cfg.DepsDir != "build/deps" {
		t.Errorf("deps_dir = %q, want build/deps", cfg.DepsDir)
	}
}

func TestConfigDir_Override(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride("/custom/config/dir")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() failed: %v", err)
	}
	if dir != "/custom/config/dir" {
		t.Errorf("ConfigDir() = %q, want the override", dir)
	}
}
