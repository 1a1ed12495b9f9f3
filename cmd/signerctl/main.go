/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package main

import "github.com/johanstenstam/signerd/cmd/signerctl/cmd"

func main() {
	cmd.Execute()
}
