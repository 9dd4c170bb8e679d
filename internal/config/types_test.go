// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestColorScheme_Validate(t *testing.T) {
	for _, c := range []ColorScheme{ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight} {
		if err := c.Validate(); err != nil {
			t.Errorf("ColorScheme(%q).Validate() = %v, want nil", c, err)
		}
	}

	err := ColorScheme("sepia").Validate()
	if err == nil {
		t.Fatal("unknown color scheme accepted")
	}
	if !errors.Is(err, ErrInvalidColorScheme) {
		t.Errorf("error should wrap ErrInvalidColorScheme, got: %v", err)
	}
}

func TestDirPath_Validate(t *testing.T) {
	tests := []struct {
		path    DirPath
		wantErr bool
	}{
		{"", false},
		{"src", false},
		{"/abs/path", false},
		{"   ", true},
	}

	for _, tt := range tests {
		err := tt.path.Validate()
		if tt.wantErr && !errors.Is(err, ErrInvalidDirPath) {
			t.Errorf("DirPath(%q).Validate() = %v, want ErrInvalidDirPath", tt.path, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("DirPath(%q).Validate() = %v, want nil", tt.path, err)
		}
	}
}

func TestSessionID_Validate(t *testing.T) {
	if err := SessionID("").Validate(); err != nil {
		t.Errorf("empty session id should be valid (locking disabled): %v", err)
	}
	if err := SessionID("ci-42").Validate(); err != nil {
		t.Errorf("SessionID(ci-42).Validate() = %v, want nil", err)
	}
	if err := SessionID(" \t").Validate(); !errors.Is(err, ErrInvalidSessionID) {
		t.Errorf("whitespace session id should wrap ErrInvalidSessionID, got: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}

	cfg.UI.ColorScheme = "sepia"
	cfg.Watch.DebounceMs = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() accepted an invalid config")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error should wrap ErrInvalidConfig, got: %v", err)
	}
	var invalidErr *InvalidConfigError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("error should be *InvalidConfigError, got %T", err)
	}
	if len(invalidErr.FieldErrors) != 2 {
		t.Errorf("len(FieldErrors) = %d, want 2", len(invalidErr.FieldErrors))
	}
}
