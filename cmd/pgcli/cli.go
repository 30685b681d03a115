// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/codegangsta/cli"
	shlex "github.com/flynn-archive/go-shlex"
	"github.com/peterh/liner"

	log "github.com/golang/glog"
	"github.com/westerndigitalcorporation/placement/internal/core"
	"github.com/westerndigitalcorporation/placement/internal/missing"
	"github.com/westerndigitalcorporation/placement/internal/placement"
)

var usage = `
	pgcli computes object placement for a pool and keeps missing-object ledgers
	for its placement groups in memory. It is meant for checking placement
	arithmetic by hand and for inspecting encoded ledgers.

	Issue one command with:

		pgcli [(--setup <setup-commands>)...] <subcommand> [<flags>...]

	or start a command line interpreter, which keeps the pool and its ledgers
	between commands:

		pgcli --setup "pool --id 1 --pg_num 12" shell
	`

// pgCli holds one pool and a ledger for each of its placement groups.
type pgCli struct {
	// the command line framework we'll use to launch commands.
	app *cli.App
	// where command output goes.
	out io.Writer

	pool    *placement.Pool
	ledgers map[core.PGID]*missing.Set
}

// newPGCli creates a new pgCli object writing its output to 'out'.
func newPGCli(out io.Writer) *pgCli {
	b := &pgCli{out: out}
	app := cli.NewApp()
	app.Name = "pgcli"
	app.Usage = usage
	app.Writer = out
	app.Flags = []cli.Flag{
		cli.StringSliceFlag{
			Name:  "setup",
			Usage: "Commands to run before doing anything else",
		},
	}

	pgFlag := cli.StringFlag{
		Name:  "pg",
		Usage: "placement group as <pool>.<seed hex>",
	}
	nameFlag := cli.StringFlag{
		Name:  "name, n",
		Usage: "object name",
	}
	hashFlag := cli.StringFlag{
		Name:  "hash",
		Usage: "object hash in hex",
	}
	versionFlag := cli.StringFlag{
		Name:  "version, v",
		Usage: "version as <epoch>'<counter>",
	}
	fileFlag := cli.StringFlag{
		Name:  "file, f",
		Usage: "file holding an encoded ledger",
	}

	app.Commands = []cli.Command{
		{
			Name:  "pool",
			Usage: "Starts over with a new pool and empty ledgers.",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "id", Usage: "pool id", Value: 1},
				cli.IntFlag{Name: "pg_num", Usage: "placement-group count", Value: 8},
				cli.IntFlag{Name: "cache", Usage: "prefix cache entries", Value: placement.DefaultConfig.PrefixCacheEntries},
			},
			Action: b.cmdPool,
		},
		{
			Name:    "info",
			Aliases: []string{"i"},
			Usage:   "Prints the pool and the size of each non-empty ledger.",
			Action:  b.cmdInfo,
		},
		{
			Name:   "map",
			Usage:  "Prints the placement group and directory prefixes of an object.",
			Flags:  []cli.Flag{nameFlag, hashFlag},
			Action: b.cmdMap,
		},
		{
			Name:   "prefixes",
			Usage:  "Prints the directory prefixes of a placement group, or of a hash range with --bits and --mask.",
			Flags:  []cli.Flag{pgFlag, cli.IntFlag{Name: "bits", Value: -1}, cli.StringFlag{Name: "mask", Value: "0"}},
			Action: b.cmdPrefixes,
		},
		{
			Name:  "split",
			Usage: "Prints the children of a placement group when the count grows.",
			Flags: []cli.Flag{
				pgFlag,
				cli.IntFlag{Name: "old", Usage: "old placement-group count"},
				cli.IntFlag{Name: "new", Usage: "new placement-group count"},
			},
			Action: b.cmdSplit,
		},
		{
			Name:  "event",
			Usage: "Replays a log entry into the ledger of the object's placement group.",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "op", Usage: "modify, clone, delete, lost_revert or lost_delete", Value: "modify"},
				nameFlag, hashFlag, versionFlag,
				cli.StringFlag{Name: "prior", Usage: "prior version", Value: "0'0"},
			},
			Action: b.cmdEvent,
		},
		{
			Name:   "got",
			Usage:  "Marks an object recovered at a version.",
			Flags:  []cli.Flag{nameFlag, hashFlag, versionFlag},
			Action: b.cmdGot,
		},
		{
			Name:   "missing",
			Usage:  "Lists the missing objects of a placement group in log order.",
			Flags:  []cli.Flag{pgFlag},
			Action: b.cmdMissing,
		},
		{
			Name:   "resize",
			Usage:  "Grows the pool and splits its ledgers.",
			Flags:  []cli.Flag{cli.IntFlag{Name: "pg_num", Usage: "new placement-group count"}},
			Action: b.cmdResize,
		},
		{
			Name:   "dump",
			Usage:  "Writes the encoded ledger of a placement group to a file.",
			Flags:  []cli.Flag{pgFlag, fileFlag},
			Action: b.cmdDump,
		},
		{
			Name:   "load",
			Usage:  "Replaces the ledger of a placement group with one read from a file.",
			Flags:  []cli.Flag{pgFlag, fileFlag},
			Action: b.cmdLoad,
		},
		{
			Name:   "shell",
			Usage:  "Starts a command line interpreter.",
			Action: b.cmdShell,
		},
	}
	app.Before = b.beforeSubcommandRun
	b.app = app

	// By default 'HelpName' will be the parent command name + command name.
	// Overwrite 'HelpName' to be command name only.
	for i := range b.app.Commands {
		b.app.Commands[i].HelpName = b.app.Commands[i].Name
	}
	return b
}

// run starts a command specified by users.
func (b *pgCli) run(args []string) error {
	return b.app.Run(args)
}

// This function will be called before any subcommand gets started so some setup
// can be done here.
func (b *pgCli) beforeSubcommandRun(c *cli.Context) error {
	for _, command := range c.GlobalStringSlice("setup") {
		log.Infof("Running setup command %q", command)
		args, err := shlex.Split(command)
		if err != nil {
			return err
		}
		if err := b.runCommand(args...); err != nil {
			log.Errorf("error: %v", err)
			return err
		}
	}
	return nil
}

// runCommand runs a command after the cli gets started already (either from
// the interpreter or setup flags).
func (b *pgCli) runCommand(args ...string) error {
	return b.run(append([]string{"pgcli"}, args...))
}

// getPool returns the current pool, creating a default one if there is none.
func (b *pgCli) getPool() (*placement.Pool, error) {
	if b.pool == nil {
		if err := b.newPool(1, 8, placement.DefaultConfig.PrefixCacheEntries); err != nil {
			return nil, err
		}
	}
	return b.pool, nil
}

func (b *pgCli) newPool(id int64, pgNum uint32, cacheEntries int) error {
	cfg := placement.DefaultConfig
	cfg.PrefixCacheEntries = cacheEntries
	pool, err := placement.NewPool(cfg, id, pgNum)
	if err != nil {
		return err
	}
	b.pool = pool
	b.ledgers = make(map[core.PGID]*missing.Set)
	for _, pg := range pool.PGs() {
		b.ledgers[pg] = missing.New()
	}
	return nil
}

// getPG parses the --pg flag, which must name a placement group of the pool.
func (b *pgCli) getPG(c *cli.Context, pool *placement.Pool) (core.PGID, error) {
	pg, err := core.ParsePGID(c.String("pg"))
	if err != nil {
		return core.PGID{}, fmt.Errorf("bad --pg %q: %v", c.String("pg"), err)
	}
	if pg.Pool != pool.ID() || pg.Seed >= pool.PGNum() {
		return core.PGID{}, fmt.Errorf("%s is not a placement group of pool %d", pg, pool.ID())
	}
	return pg, nil
}

// getObject builds an object of the current pool from the --name and --hash
// flags.
func (b *pgCli) getObject(c *cli.Context, pool *placement.Pool) (core.ObjectID, error) {
	name := c.String("name")
	if name == "" {
		return core.ObjectID{}, fmt.Errorf("--name is required")
	}
	hash, err := parseHex32(c.String("hash"))
	if err != nil {
		return core.ObjectID{}, fmt.Errorf("bad --hash: %v", err)
	}
	return core.NewObjectID(name, "", core.NoSnap, hash, pool.ID()), nil
}

// cmdPool implements the "pool" subcommand.
func (b *pgCli) cmdPool(c *cli.Context) error {
	pgNum, err := countFlag(c, "pg_num")
	if err != nil {
		return err
	}
	if err := b.newPool(int64(c.Int("id")), pgNum, c.Int("cache")); err != nil {
		return err
	}
	fmt.Fprintf(b.out, "pool %d with %d placement groups\n", b.pool.ID(), b.pool.PGNum())
	return nil
}

// cmdInfo implements the "info" subcommand.
func (b *pgCli) cmdInfo(c *cli.Context) error {
	pool, err := b.getPool()
	if err != nil {
		return err
	}
	total := 0
	fmt.Fprintf(b.out, "pool %d with %d placement groups\n", pool.ID(), pool.PGNum())
	for _, pg := range pool.PGs() {
		if s := b.ledgers[pg]; s.HaveMissing() {
			fmt.Fprintf(b.out, "  %s: %d missing\n", pg, s.NumMissing())
			total += s.NumMissing()
		}
	}
	fmt.Fprintf(b.out, "%d missing\n", total)
	return nil
}

// cmdMap implements the "map" subcommand.
func (b *pgCli) cmdMap(c *cli.Context) error {
	pool, err := b.getPool()
	if err != nil {
		return err
	}
	oid, err := b.getObject(c, pool)
	if err != nil {
		return err
	}
	pg := pool.ObjectPG(oid)
	fmt.Fprintf(b.out, "%s -> %s\n", oid, pg)
	for _, p := range pool.CollectionPrefixes(pg) {
		fmt.Fprintln(b.out, p)
	}
	return nil
}

// cmdPrefixes implements the "prefixes" subcommand.
func (b *pgCli) cmdPrefixes(c *cli.Context) error {
	pool, err := b.getPool()
	if err != nil {
		return err
	}
	var prefixes []string
	if bits := c.Int("bits"); bits >= 0 {
		if bits > 32 {
			return fmt.Errorf("--bits must be at most 32")
		}
		mask, err := parseHex32(c.String("mask"))
		if err != nil {
			return fmt.Errorf("bad --mask: %v", err)
		}
		prefixes = pool.HashPrefixes(uint(bits), mask)
	} else {
		pg, err := b.getPG(c, pool)
		if err != nil {
			return err
		}
		prefixes = pool.CollectionPrefixes(pg)
	}
	for _, p := range prefixes {
		fmt.Fprintln(b.out, p)
	}
	return nil
}

// cmdSplit implements the "split" subcommand. It doesn't need a pool.
func (b *pgCli) cmdSplit(c *cli.Context) error {
	pg, err := core.ParsePGID(c.String("pg"))
	if err != nil {
		return fmt.Errorf("bad --pg %q: %v", c.String("pg"), err)
	}
	old, err := countFlag(c, "old")
	if err != nil {
		return err
	}
	nu, err := countFlag(c, "new")
	if err != nil {
		return err
	}
	if pg.Seed >= old {
		return fmt.Errorf("need --old > seed")
	}
	children := make(map[core.PGID]bool)
	if !pg.IsSplit(old, nu, children) {
		fmt.Fprintf(b.out, "%s does not split\n", pg)
		return nil
	}
	var kids []core.PGID
	for k := range children {
		kids = append(kids, k)
	}
	sort.Slice(kids, func(i, j int) bool { return kids[i].Less(kids[j]) })
	fmt.Fprintf(b.out, "%s splits into %d:", pg, len(kids))
	for _, k := range kids {
		fmt.Fprintf(b.out, " %s", k)
	}
	fmt.Fprintln(b.out)
	return nil
}

// cmdEvent implements the "event" subcommand.
func (b *pgCli) cmdEvent(c *cli.Context) error {
	pool, err := b.getPool()
	if err != nil {
		return err
	}
	oid, err := b.getObject(c, pool)
	if err != nil {
		return err
	}
	op, ok := parseOp(c.String("op"))
	if !ok {
		return fmt.Errorf("unknown op %q", c.String("op"))
	}
	ver, err := core.ParseVersion(c.String("version"))
	if err != nil {
		return fmt.Errorf("bad --version: %v", err)
	}
	prior, err := core.ParseVersion(c.String("prior"))
	if err != nil {
		return fmt.Errorf("bad --prior: %v", err)
	}
	pg := pool.ObjectPG(oid)
	b.ledgers[pg].AddNextEvent(core.LogEntry{Op: op, Object: oid, Version: ver, PriorVersion: prior})
	fmt.Fprintf(b.out, "%s: %d missing\n", pg, b.ledgers[pg].NumMissing())
	return nil
}

// cmdGot implements the "got" subcommand.
func (b *pgCli) cmdGot(c *cli.Context) error {
	pool, err := b.getPool()
	if err != nil {
		return err
	}
	oid, err := b.getObject(c, pool)
	if err != nil {
		return err
	}
	ver, err := core.ParseVersion(c.String("version"))
	if err != nil {
		return fmt.Errorf("bad --version: %v", err)
	}
	pg := pool.ObjectPG(oid)
	s := b.ledgers[pg]
	// Got panics on these; a typo shouldn't kill the shell.
	it, ok := s.Item(oid)
	if !ok {
		return fmt.Errorf("%v is not missing", oid)
	}
	if ver.Less(it.Need) {
		return fmt.Errorf("%v needs %s", oid, it.Need)
	}
	s.Got(oid, ver)
	fmt.Fprintf(b.out, "%s: %d missing\n", pg, s.NumMissing())
	return nil
}

// cmdMissing implements the "missing" subcommand.
func (b *pgCli) cmdMissing(c *cli.Context) error {
	pool, err := b.getPool()
	if err != nil {
		return err
	}
	pg, err := b.getPG(c, pool)
	if err != nil {
		return err
	}
	s := b.ledgers[pg]
	for _, oid := range s.ByNeed() {
		it, _ := s.Item(oid)
		fmt.Fprintf(b.out, "%s %s\n", oid, it)
	}
	return nil
}

// cmdResize implements the "resize" subcommand.
func (b *pgCli) cmdResize(c *cli.Context) error {
	pool, err := b.getPool()
	if err != nil {
		return err
	}
	pgNum, err := countFlag(c, "pg_num")
	if err != nil {
		return err
	}
	children, err := pool.Resize(pgNum, b.ledgers)
	if err != nil {
		return err
	}
	for pg, s := range children {
		b.ledgers[pg] = s
	}
	fmt.Fprintf(b.out, "pool %d now has %d placement groups, %d new\n", pool.ID(), pool.PGNum(), len(children))
	return nil
}

// cmdDump implements the "dump" subcommand.
func (b *pgCli) cmdDump(c *cli.Context) error {
	pool, err := b.getPool()
	if err != nil {
		return err
	}
	pg, err := b.getPG(c, pool)
	if err != nil {
		return err
	}
	if c.String("file") == "" {
		return fmt.Errorf("--file is required")
	}
	buf, err := b.ledgers[pg].MarshalBinary()
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(c.String("file"), buf, 0644); err != nil {
		return err
	}
	fmt.Fprintf(b.out, "wrote %d missing objects of %s\n", b.ledgers[pg].NumMissing(), pg)
	return nil
}

// cmdLoad implements the "load" subcommand.
func (b *pgCli) cmdLoad(c *cli.Context) error {
	pool, err := b.getPool()
	if err != nil {
		return err
	}
	pg, err := b.getPG(c, pool)
	if err != nil {
		return err
	}
	buf, err := ioutil.ReadFile(c.String("file"))
	if err != nil {
		return err
	}
	s := missing.New()
	if err := s.UnmarshalBinary(buf); err != nil {
		return err
	}
	for _, oid := range s.Objects() {
		if oid.Pool != pool.ID() || pool.ObjectPG(oid) != pg {
			return fmt.Errorf("%v does not belong to %s", oid, pg)
		}
	}
	b.ledgers[pg] = s
	fmt.Fprintf(b.out, "read %d missing objects of %s\n", s.NumMissing(), pg)
	return nil
}

// cmdShell implements "shell" subcommand.
func (b *pgCli) cmdShell(c *cli.Context) error {
	// Make cli not exit on errors.
	cli.OsExiter = func(int) {}

	liner := liner.NewLiner()
	liner.SetCtrlCAborts(true)

	// Complete command names at the start of the line.
	liner.SetCompleter(func(line string) (c []string) {
		for _, cmd := range b.app.Commands {
			if strings.HasPrefix(cmd.Name, line) {
				c = append(c, cmd.Name)
			}
		}
		return
	})

	defer liner.Close()

	for {
		input, err := liner.Prompt("(pg) ")
		if err != nil {
			log.Errorf("error: %v", err)
			return nil
		}

		// Split with shell-style rules for quoting and commenting.
		args, err := shlex.Split(input)
		if err != nil {
			log.Errorf("error: %v", err)
			continue
		}

		// Skip empty line.
		if len(args) == 0 {
			continue
		}

		if args[0] == "exit" {
			return nil
		}
		if args[0] == "shell" {
			log.Errorf("already in a shell")
			continue
		}

		if err := b.runCommand(args...); err != nil {
			log.Errorf("error: %v", err)
		} else {
			// Adds succeeded command to command history.
			liner.AppendHistory(input)
		}
	}
}

func parseHex32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	return uint32(v), err
}

func parseOp(s string) (core.LogOp, bool) {
	for _, op := range []core.LogOp{core.OpModify, core.OpClone, core.OpDelete, core.OpLostRevert, core.OpLostDelete} {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

// countFlag returns the value of the placement-group count flag 'name'.
func countFlag(c *cli.Context, name string) (uint32, error) {
	v := c.Int(name)
	if v <= 0 || int64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("--%s must be in [1, %d]", name, uint32(math.MaxUint32))
	}
	return uint32(v), nil
}
