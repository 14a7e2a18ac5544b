// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import "github.com/luxfi/alchemist/internal/cli"

func main() {
	cli.Execute()
}
