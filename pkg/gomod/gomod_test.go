// SPDX-License-Identifier: MPL-2.0

package gomod

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestModulePath_Validate(t *testing.T) {
	tests := []struct {
		path    ModulePath
		wantErr bool
	}{
		{"example.org/mod/pkg", false},
		{"github.com/user/repo", false},
		{"", true},
		{"nodots/pkg", true},
		{"example.org/../escape", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.path), func(t *testing.T) {
			err := tt.path.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ModulePath(%q).Validate() = nil, want error", tt.path)
				}
				if !errors.Is(err, ErrInvalidModulePath) {
					t.Errorf("error should wrap ErrInvalidModulePath, got: %v", err)
				}
			} else if err != nil {
				t.Errorf("ModulePath(%q).Validate() = %v, want nil", tt.path, err)
			}
		})
	}
}

func TestModuleVersion_Validate(t *testing.T) {
	tests := []struct {
		version ModuleVersion
		wantErr bool
	}{
		{"v1.2.3", false},
		{"v0.0.0-20260101000000-abcdef123456", false},
		{"1.2.3", true},
		{"", true},
		{"latest", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.version), func(t *testing.T) {
			err := tt.version.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ModuleVersion(%q).Validate() = nil, want error", tt.version)
				}
				if !errors.Is(err, ErrInvalidModuleVersion) {
					t.Errorf("error should wrap ErrInvalidModuleVersion, got: %v", err)
				}
			} else if err != nil {
				t.Errorf("ModuleVersion(%q).Validate() = %v, want nil", tt.version, err)
			}
		})
	}
}

func TestAddReplace_AppendsAfterLastReplace(t *testing.T) {
	text := `module example.org/proj

replace example.org/a => ../a

// trailing comment
`
	f, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	f.AddReplace(ModuleRef{Path: "example.org/b"}, FilesystemTarget("../b"))

	want := `module example.org/proj

replace (
	example.org/a => ../a
	example.org/b => ../b
)

// trailing comment
`
	if got := f.String(); got != want {
		t.Errorf("String() after AddReplace =\n%s\nwant:\n%s", got, want)
	}
}

func TestAddReplace_AppendsAtEndWhenNoReplaceExists(t *testing.T) {
	f, err := Parse("module example.org/proj\n\nrequire example.org/dep v1.0.0\n")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	f.AddReplace(ModuleRef{Path: "example.org/dep"}, FilesystemTarget("../dep"))

	directives := f.Directives()
	last, ok := directives[len(directives)-1].(Replace)
	if !ok {
		t.Fatalf("last directive = %T, want Replace", directives[len(directives)-1])
	}
	if last.From.Path != "example.org/dep" || last.To.Path != "../dep" {
		t.Errorf("appended replace = %+v, want example.org/dep => ../dep", last)
	}
	if !f.HasReplaceFor("example.org/dep") {
		t.Error("HasReplaceFor(example.org/dep) = false after AddReplace, want true")
	}
}

func TestAddReplace_DoesNotDeduplicate(t *testing.T) {
	f := &File{}
	f.AddReplace(ModuleRef{Path: "example.org/a"}, FilesystemTarget("../a"))
	f.AddReplace(ModuleRef{Path: "example.org/a"}, FilesystemTarget("../a"))

	if got := len(f.Directives()); got != 2 {
		t.Errorf("len(Directives()) = %d, want 2 (AddReplace must not deduplicate)", got)
	}
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	text := "module example.org/proj\n\nrequire example.org/dep v1.0.0\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	f.AddReplace(ModuleRef{Path: "example.org/dep"}, FilesystemTarget("../dep"))
	if err := f.Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Save() failed: %v", err)
	}
	if !reloaded.HasReplaceFor("example.org/dep") {
		t.Error("persisted descriptor lost the appended replace directive")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	if err == nil {
		t.Fatal("Load() on missing file = nil error, want error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist, got: %v", err)
	}
}
