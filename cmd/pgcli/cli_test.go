// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/westerndigitalcorporation/placement/pkg/hashspace"
	"github.com/westerndigitalcorporation/placement/pkg/testutil"
)

// run runs one command and returns what it printed.
func run(t *testing.T, b *pgCli, out *bytes.Buffer, args ...string) string {
	out.Reset()
	if err := b.runCommand(args...); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestSession(t *testing.T) {
	var out bytes.Buffer
	b := newPGCli(&out)

	if got := run(t, b, &out, "pool", "--id", "1", "--pg_num", "4"); got != "pool 1 with 4 placement groups\n" {
		t.Errorf("pool: %q", got)
	}
	if got := run(t, b, &out, "event", "--name", "a", "--hash", "0x5", "--version", "1'1"); got != "1.1: 1 missing\n" {
		t.Errorf("event a: %q", got)
	}
	if got := run(t, b, &out, "event", "--name", "b", "--hash", "7", "--version", "1'2", "--prior", "1'0"); got != "1.3: 1 missing\n" {
		t.Errorf("event b: %q", got)
	}
	if got := run(t, b, &out, "missing", "--pg", "1.1"); !strings.Contains(got, "need 1'1 have 0'0") {
		t.Errorf("missing: %q", got)
	}

	if got := run(t, b, &out, "resize", "--pg_num", "8"); got != "pool 1 now has 8 placement groups, 4 new\n" {
		t.Errorf("resize: %q", got)
	}
	// Hash 5 moved from 1.1 to 1.5.
	if got := run(t, b, &out, "missing", "--pg", "1.1"); got != "" {
		t.Errorf("1.1 should be empty: %q", got)
	}
	if got := run(t, b, &out, "missing", "--pg", "1.5"); !strings.Contains(got, "need 1'1") {
		t.Errorf("1.5: %q", got)
	}
	if got := run(t, b, &out, "info"); !strings.HasSuffix(got, "2 missing\n") {
		t.Errorf("info: %q", got)
	}

	if got := run(t, b, &out, "got", "--name", "a", "--hash", "5", "--version", "1'1"); got != "1.5: 0 missing\n" {
		t.Errorf("got: %q", got)
	}
	if err := b.runCommand("got", "--name", "a", "--hash", "5", "--version", "1'1"); err == nil {
		t.Errorf("got of a recovered object should fail")
	}
	if err := b.runCommand("got", "--name", "b", "--hash", "7", "--version", "1'1"); err == nil {
		t.Errorf("got of an older version should fail")
	}
	if err := b.runCommand("event", "--op", "backlog", "--name", "b", "--hash", "7", "--version", "1'3"); err == nil {
		t.Errorf("backlog should be rejected")
	}
	if err := b.runCommand("resize", "--pg_num", "4"); err == nil {
		t.Errorf("shrinking should fail")
	}

	if got := run(t, b, &out, "event", "--op", "delete", "--name", "b", "--hash", "7", "--version", "1'3"); got != "1.7: 0 missing\n" {
		t.Errorf("delete: %q", got)
	}
}

func TestMapAndPrefixes(t *testing.T) {
	var out bytes.Buffer
	b := newPGCli(&out)
	run(t, b, &out, "pool", "--id", "3", "--pg_num", "12")

	want := strings.Join(hashspace.Prefixes(4, 0x9, 3), "\n") + "\n"
	if got := run(t, b, &out, "prefixes", "--pg", "3.9"); got != want {
		t.Errorf("prefixes: %q, want %q", got, want)
	}
	if got := run(t, b, &out, "prefixes", "--bits", "4", "--mask", "9"); got != want {
		t.Errorf("prefixes by mask: %q, want %q", got, want)
	}
	if got := run(t, b, &out, "map", "--name", "x", "--hash", "0xabcd1239"); !strings.Contains(got, "-> 3.9\n"+want) {
		t.Errorf("map: %q", got)
	}
	if err := b.runCommand("prefixes", "--pg", "3.c"); err == nil {
		t.Errorf("seed past the count should fail")
	}
	if err := b.runCommand("prefixes", "--pg", "4.1"); err == nil {
		t.Errorf("foreign placement group should fail")
	}
}

func TestSplit(t *testing.T) {
	var out bytes.Buffer
	b := newPGCli(&out)
	if got := run(t, b, &out, "split", "--pg", "1.0", "--old", "4", "--new", "16"); got != "1.0 splits into 3: 1.4 1.8 1.c\n" {
		t.Errorf("split: %q", got)
	}
	if got := run(t, b, &out, "split", "--pg", "1.0", "--old", "3", "--new", "4"); got != "1.0 does not split\n" {
		t.Errorf("split: %q", got)
	}
	// At 3, seed 1 still owns the hashes of seed 3.
	if got := run(t, b, &out, "split", "--pg", "1.1", "--old", "3", "--new", "4"); got != "1.1 splits into 1: 1.3\n" {
		t.Errorf("split: %q", got)
	}
	if err := b.runCommand("split", "--pg", "1.4", "--old", "4", "--new", "8"); err == nil {
		t.Errorf("bad seed should fail")
	}
}

func TestDumpLoad(t *testing.T) {
	file := filepath.Join(testutil.TempDir(), "ledger")

	var out bytes.Buffer
	b := newPGCli(&out)
	run(t, b, &out, "pool", "--id", "1", "--pg_num", "4")
	run(t, b, &out, "event", "--name", "a", "--hash", "1", "--version", "1'1")
	run(t, b, &out, "event", "--name", "b", "--hash", "5", "--version", "1'2")
	if got := run(t, b, &out, "dump", "--pg", "1.1", "--file", file); got != "wrote 2 missing objects of 1.1\n" {
		t.Errorf("dump: %q", got)
	}

	c := newPGCli(&out)
	run(t, c, &out, "pool", "--id", "1", "--pg_num", "4")
	if got := run(t, c, &out, "load", "--pg", "1.1", "--file", file); got != "read 2 missing objects of 1.1\n" {
		t.Errorf("load: %q", got)
	}
	if got := run(t, c, &out, "missing", "--pg", "1.1"); strings.Count(got, "\n") != 2 {
		t.Errorf("loaded ledger: %q", got)
	}
	if err := c.runCommand("load", "--pg", "1.2", "--file", file); err == nil {
		t.Errorf("loading into the wrong placement group should fail")
	}

	ioutil.WriteFile(file, []byte("garbage"), 0644)
	if err := c.runCommand("load", "--pg", "1.1", "--file", file); err == nil {
		t.Errorf("loading garbage should fail")
	}
}

func TestSetup(t *testing.T) {
	var out bytes.Buffer
	b := newPGCli(&out)
	if err := b.run([]string{"pgcli", "--setup", "pool --id 2 --pg_num 3", "info"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if b.pool == nil || b.pool.ID() != 2 || b.pool.PGNum() != 3 {
		t.Errorf("setup didn't create the pool")
	}
}

// Counts that don't fit in 32 bits are rejected, not truncated.
func TestCountRange(t *testing.T) {
	var out bytes.Buffer
	b := newPGCli(&out)
	if err := b.runCommand("pool", "--id", "1", "--pg_num", "4294967300"); err == nil {
		t.Errorf("pool with a 33-bit count should fail")
	}
	if b.pool != nil {
		t.Errorf("pool created with a truncated count")
	}

	run(t, b, &out, "pool", "--id", "1", "--pg_num", "4")
	if err := b.runCommand("resize", "--pg_num", "4294967304"); err == nil {
		t.Errorf("resize to a 33-bit count should fail")
	}
	if b.pool.PGNum() != 4 {
		t.Errorf("count changed to %d", b.pool.PGNum())
	}

	if err := b.runCommand("split", "--pg", "1.0", "--old", "4294967300", "--new", "8"); err == nil {
		t.Errorf("split with a 33-bit --old should fail")
	}
	if err := b.runCommand("split", "--pg", "1.0", "--old", "4", "--new", "4294967304"); err == nil {
		t.Errorf("split with a 33-bit --new should fail")
	}
}
