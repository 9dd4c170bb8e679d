// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var gopathCmd = &cobra.Command{
	Use:   "gopath",
	Short: "Print the extra search path for unpacked dependencies",
	Long: `Print the extra search path for unpacked dependencies.

Lists the unpacked artifact folders under the dependency directory and
prints them joined with the OS path-list separator, ready to append to
GOPATH for non-module builds. Folders count whether or not they carry a
module descriptor; path-mode artifacts ship plain sources without one.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadCLIConfig(cmd.Context())
		if err != nil {
			return reportConfigError(err)
		}

		dirs, err := depFolderDirs(string(cfg.DepsDir))
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}

		fmt.Println(strings.Join(dirs, string(os.PathListSeparator)))
		return nil
	},
}

// depFolderDirs lists every subdirectory of the dependency root. A missing
// root yields no folders.
func depFolderDirs(depsDir string) ([]string, error) {
	entries, err := os.ReadDir(depsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan dependency directory %s: %w", depsDir, err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirs = append(dirs, filepath.Join(depsDir, entry.Name()))
	}
	return dirs, nil
}
