// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"fmt"
	"os"

	"github.com/fabricctl/controller/cmd"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fabricctl <start|stop|reload|run> <config-file>")
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}

	subcommand := os.Args[1]
	configFile := os.Args[2]

	var err error
	switch subcommand {
	case "start":
		err = cmd.RunStart(configFile)
	case "stop":
		err = cmd.RunStop(configFile)
	case "reload":
		err = cmd.RunReload(configFile)
	case "run":
		err = cmd.RunRun(configFile)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
