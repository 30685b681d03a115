// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	// We should send our own log output to stderr.
	flag.Set("logtostderr", "true")
	// The command line belongs to pgcli; this only keeps glog from complaining.
	flag.CommandLine.Parse(nil)

	cli := newPGCli(os.Stdout)
	if err := cli.run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
