// SPDX-License-Identifier: MPL-2.0

package link

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"modlink-cli/internal/config"
	"modlink-cli/internal/testutil"
	"modlink-cli/pkg/epoch"
	"modlink-cli/pkg/unpack"
)

// writeArtifact builds a zip archive at path from the given entries.
func writeArtifact(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive %s: %v", path, err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write entry %s: %v", name, err)
		}
	}
	testutil.MustClose(t, zw)
	testutil.MustClose(t, f)
}

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.SourceDir = config.DirPath(filepath.Join(root, "src"))
	cfg.DepsDir = config.DirPath(filepath.Join(root, "deps"))
	return cfg, root
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestOnBuildStart_UnpacksAndLinks(t *testing.T) {
	cfg, root := testConfig(t)

	archiveA := filepath.Join(root, "dep-a.zip")
	writeArtifact(t, archiveA, map[string]string{
		unpack.ManifestName: "mod\n",
		"mod/go.mod":        "module example.org/dep-a\n",
	})
	archiveB := filepath.Join(root, "dep-b.zip")
	writeArtifact(t, archiveB, map[string]string{
		unpack.ManifestName: "mod\n",
		"mod/go.mod":        "module example.org/dep-b\n\nrequire example.org/dep-a v1.0.0\n",
	})

	projectDir := filepath.Join(string(cfg.SourceDir), "app")
	original := "module example.org/app\n\nrequire (\n\texample.org/dep-a v1.0.0\n\texample.org/dep-b v1.0.0\n)\n"
	projectPath := testutil.WriteDescriptor(t, projectDir, original)

	o := New(cfg, []unpack.Artifact{
		{ID: "grp:dep-a:1.0", Archive: archiveA},
		{ID: "grp:dep-b:1.0", Archive: archiveB},
	}, quietLogger())

	result, err := o.OnBuildStart(context.Background())
	if err != nil {
		t.Fatalf("OnBuildStart() failed: %v", err)
	}
	if result.Unpacked != 2 {
		t.Errorf("Unpacked = %d, want 2", result.Unpacked)
	}
	if result.DepsLinked != 1 {
		t.Errorf("DepsLinked = %d, want 1", result.DepsLinked)
	}
	if result.ProjectsLinked != 1 {
		t.Errorf("ProjectsLinked = %d, want 1", result.ProjectsLinked)
	}

	// Artifact ids must be sanitized into folder names.
	depA := filepath.Join(string(cfg.DepsDir), "grp_dep-a_1.0", "src", "go.mod")
	if _, err := os.Stat(depA); err != nil {
		t.Fatalf("dep-a descriptor not extracted: %v", err)
	}

	// The dep-b descriptor required dep-a and must have been linked on disk.
	depB, err := os.ReadFile(filepath.Join(string(cfg.DepsDir), "grp_dep-b_1.0", "src", "go.mod"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(depB), "replace example.org/dep-a => ") {
		t.Errorf("dep-b descriptor not cross-linked:\n%s", depB)
	}

	linked, err := os.ReadFile(projectPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"replace example.org/dep-a => ", "replace example.org/dep-b => "} {
		if !strings.Contains(string(linked), want) {
			t.Errorf("project descriptor missing %q:\n%s", want, linked)
		}
	}

	if _, err := os.Stat(filepath.Join(projectDir, epoch.BackupName)); err != nil {
		t.Errorf("project epoch backup missing: %v", err)
	}

	if err := o.OnBuildEnd(); err != nil {
		t.Fatalf("OnBuildEnd() failed: %v", err)
	}
	restored, err := os.ReadFile(projectPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(restored) != original {
		t.Errorf("descriptor not restored:\n%s", restored)
	}
	if _, err := os.Stat(filepath.Join(projectDir, epoch.BackupName)); !os.IsNotExist(err) {
		t.Errorf("epoch backup still present after restore")
	}
}

func TestOnBuildStart_ModuleModeOff(t *testing.T) {
	cfg, root := testConfig(t)
	cfg.ModuleMode = false

	archive := filepath.Join(root, "dep.zip")
	writeArtifact(t, archive, map[string]string{
		unpack.ManifestName: "mod\n",
		"mod/go.mod":        "module example.org/dep\n",
	})

	projectDir := filepath.Join(string(cfg.SourceDir), "app")
	original := "module example.org/app\n\nrequire example.org/dep v1.0.0\n"
	projectPath := testutil.WriteDescriptor(t, projectDir, original)

	o := New(cfg, []unpack.Artifact{{ID: "grp:dep:1.0", Archive: archive}}, quietLogger())
	result, err := o.OnBuildStart(context.Background())
	if err != nil {
		t.Fatalf("OnBuildStart() failed: %v", err)
	}
	if result.Unpacked != 1 {
		t.Errorf("Unpacked = %d, want 1", result.Unpacked)
	}
	if result.ProjectsLinked != 0 {
		t.Errorf("ProjectsLinked = %d, want 0", result.ProjectsLinked)
	}

	content, err := os.ReadFile(projectPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != original {
		t.Errorf("descriptor mutated outside module mode:\n%s", content)
	}
	if _, err := os.Stat(filepath.Join(projectDir, epoch.BackupName)); !os.IsNotExist(err) {
		t.Error("epoch backup created outside module mode")
	}
}

func TestOnBuildStart_BrokenArchiveIsIsolated(t *testing.T) {
	cfg, root := testConfig(t)

	good := filepath.Join(root, "good.zip")
	writeArtifact(t, good, map[string]string{
		unpack.ManifestName: "mod\n",
		"mod/go.mod":        "module example.org/good\n",
	})
	bad := filepath.Join(root, "bad.zip")
	if err := os.WriteFile(bad, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	testutil.MustMkdirAll(t, string(cfg.SourceDir), 0o755)

	o := New(cfg, []unpack.Artifact{
		{ID: "grp:bad:1.0", Archive: bad},
		{ID: "grp:good:1.0", Archive: good},
	}, quietLogger())

	result, err := o.OnBuildStart(context.Background())
	if !errors.Is(err, unpack.ErrArchive) {
		t.Fatalf("OnBuildStart() = %v, want ErrArchive", err)
	}
	if result.Unpacked != 1 {
		t.Errorf("Unpacked = %d, want 1 (good artifact must survive the broken one)", result.Unpacked)
	}
	if _, statErr := os.Stat(filepath.Join(string(cfg.DepsDir), "grp_good_1.0", "src", "go.mod")); statErr != nil {
		t.Errorf("good artifact not extracted: %v", statErr)
	}
}

func TestOnBuildStart_InvalidArtifactID(t *testing.T) {
	cfg, _ := testConfig(t)
	testutil.MustMkdirAll(t, string(cfg.SourceDir), 0o755)

	o := New(cfg, []unpack.Artifact{{ID: "   ", Archive: "whatever.zip"}}, quietLogger())
	_, err := o.OnBuildStart(context.Background())
	if !errors.Is(err, unpack.ErrInvalidArtifactID) {
		t.Fatalf("OnBuildStart() = %v, want ErrInvalidArtifactID", err)
	}
}

func TestOnBuildEnd_RestoreDisabled(t *testing.T) {
	cfg, root := testConfig(t)
	cfg.RestoreDescriptors = false

	archive := filepath.Join(root, "dep.zip")
	writeArtifact(t, archive, map[string]string{
		unpack.ManifestName: "mod\n",
		"mod/go.mod":        "module example.org/dep\n",
	})

	projectDir := filepath.Join(string(cfg.SourceDir), "app")
	original := "module example.org/app\n\nrequire example.org/dep v1.0.0\n"
	projectPath := testutil.WriteDescriptor(t, projectDir, original)

	o := New(cfg, []unpack.Artifact{{ID: "grp:dep:1.0", Archive: archive}}, quietLogger())
	if _, err := o.OnBuildStart(context.Background()); err != nil {
		t.Fatalf("OnBuildStart() failed: %v", err)
	}
	if err := o.OnBuildEnd(); err != nil {
		t.Fatalf("OnBuildEnd() failed: %v", err)
	}

	kept, err := os.ReadFile(projectPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(kept), "replace example.org/dep => ") {
		t.Error("OnBuildEnd restored descriptors despite restore being disabled")
	}

	// The explicit restore operation ignores the setting.
	if err := o.Restore(); err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	restored, err := os.ReadFile(projectPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(restored) != original {
		t.Errorf("Restore() did not reinstate the original descriptor:\n%s", restored)
	}
}

func TestOnBuildStart_SessionLockSerializes(t *testing.T) {
	cfg, root := testConfig(t)
	cfg.SyncSession = "build-42"
	cfg.SessionLockDir = config.DirPath(filepath.Join(root, "locks"))
	testutil.MustMkdirAll(t, string(cfg.SessionLockDir), 0o755)
	testutil.MustMkdirAll(t, string(cfg.SourceDir), 0o755)

	o := New(cfg, nil, quietLogger())
	if _, err := o.OnBuildStart(context.Background()); err != nil {
		t.Fatalf("OnBuildStart() failed: %v", err)
	}

	// The lock must have been released so a second pass can acquire it.
	if _, err := o.OnBuildStart(context.Background()); err != nil {
		t.Fatalf("second OnBuildStart() failed: %v", err)
	}
}

func TestExtraSearchPath(t *testing.T) {
	cfg, root := testConfig(t)
	cfg.ModuleMode = false

	withMod := filepath.Join(root, "dep.zip")
	writeArtifact(t, withMod, map[string]string{
		unpack.ManifestName: "mod\n",
		"mod/go.mod":        "module example.org/dep\n",
	})
	// Path-mode artifacts ship plain sources with no descriptor at all; their
	// folder must still appear in the fragment.
	bare := filepath.Join(root, "bare.zip")
	writeArtifact(t, bare, map[string]string{
		unpack.ManifestName: "pkg\n",
		"pkg/foo/foo.go":    "package foo\n",
	})
	testutil.MustMkdirAll(t, string(cfg.SourceDir), 0o755)

	o := New(cfg, []unpack.Artifact{
		{ID: "grp:dep:1.0", Archive: withMod},
		{ID: "grp:bare:1.0", Archive: bare},
	}, quietLogger())
	if _, err := o.OnBuildStart(context.Background()); err != nil {
		t.Fatalf("OnBuildStart() failed: %v", err)
	}

	want := strings.Join([]string{
		filepath.Join(string(cfg.DepsDir), "grp_dep_1.0"),
		filepath.Join(string(cfg.DepsDir), "grp_bare_1.0"),
	}, string(os.PathListSeparator))
	if got := o.ExtraSearchPath(); got != want {
		t.Errorf("ExtraSearchPath() = %q, want %q", got, want)
	}
}

func TestFolderFor_Sanitization(t *testing.T) {
	cfg, _ := testConfig(t)
	o := New(cfg, nil, quietLogger())

	got := o.folderFor("grp:lib/a:1.0")
	if want := filepath.Join(string(cfg.DepsDir), "grp_lib_a_1.0"); got != want {
		t.Errorf("folderFor() = %q, want %q", got, want)
	}

	// Windows reserved device names must not become folder names verbatim.
	got = o.folderFor("con")
	if want := filepath.Join(string(cfg.DepsDir), "_con"); got != want {
		t.Errorf("folderFor() = %q, want %q", got, want)
	}
}

func TestOnBuildStart_Idempotent(t *testing.T) {
	cfg, root := testConfig(t)

	archive := filepath.Join(root, "dep.zip")
	writeArtifact(t, archive, map[string]string{
		unpack.ManifestName: "mod\n",
		"mod/go.mod":        "module example.org/dep\n",
	})

	projectDir := filepath.Join(string(cfg.SourceDir), "app")
	original := "module example.org/app\n\nrequire example.org/dep v1.0.0\n"
	projectPath := testutil.WriteDescriptor(t, projectDir, original)

	o := New(cfg, []unpack.Artifact{{ID: "grp:dep:1.0", Archive: archive}}, quietLogger())
	if _, err := o.OnBuildStart(context.Background()); err != nil {
		t.Fatalf("first OnBuildStart() failed: %v", err)
	}
	first, err := os.ReadFile(projectPath)
	if err != nil {
		t.Fatal(err)
	}

	// A second build start heals the previous epoch and relinks from the
	// pristine descriptor, ending in the same state.
	o2 := New(cfg, []unpack.Artifact{{ID: "grp:dep:1.0", Archive: archive}}, quietLogger())
	if _, err := o2.OnBuildStart(context.Background()); err != nil {
		t.Fatalf("second OnBuildStart() failed: %v", err)
	}
	second, err := os.ReadFile(projectPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("descriptor diverged across build starts:\nfirst:\n%s\nsecond:\n%s", first, second)
	}

	if err := o2.OnBuildEnd(); err != nil {
		t.Fatalf("OnBuildEnd() failed: %v", err)
	}
	restored, err := os.ReadFile(projectPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(restored) != original {
		t.Errorf("descriptor not restored after second build:\n%s", restored)
	}
}
