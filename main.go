// SPDX-License-Identifier: MPL-2.0

package main

import cmd "modlink-cli/cmd/modlink"

func main() {
	cmd.Execute()
}
