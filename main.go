// SPDX-License-Identifier: MPL-2.0

package main

import cmd "convey-cli/cmd/convey"

func main() {
	cmd.Execute()
}
