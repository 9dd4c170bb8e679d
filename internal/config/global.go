// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride redirects ConfigDir lookups for tests. os.UserHomeDir
// ignores a HOME override on some platforms, so tests point the loader at a
// temp directory through this hook instead of the environment.
var configDirOverride string

// SetConfigDirOverride makes ConfigDir resolve to dir. Intended for tests;
// pair with Reset in cleanup.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// Reset clears the test override so ConfigDir resolves normally again.
func Reset() {
	configDirOverride = ""
}
