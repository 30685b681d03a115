// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/westerndigitalcorporation/placement/pkg/hashspace"
)

// NoPreferred is the Preferred value of a placement group without a preferred
// storage daemon, which is every placement group in practice.
const NoPreferred int32 = -1

// PGID identifies a placement group: the pool and a seed taken from the low
// bits of object hashes. How many bits make up the seed depends on the pool's
// placement-group count, see hashspace.SeedBits.
type PGID struct {
	Pool      int64
	Seed      uint32
	Preferred int32
}

// NewPGID returns a PGID with the given fields.
func NewPGID(seed uint32, pool int64, preferred int32) PGID {
	return PGID{Pool: pool, Seed: seed, Preferred: preferred}
}

// HashToPG returns the placement group that owns 'hash' in a pool with
// 'pgNum' placement groups.
func HashToPG(hash uint32, pool int64, pgNum uint32) PGID {
	return NewPGID(hashspace.Owner(hash, pgNum), pool, NoPreferred)
}

//--------------
// PGID Methods
//--------------

// IsSplit returns true if some of the objects of 'p' move to new placement
// groups when its pool grows from 'oldPGNum' to 'newPGNum' placement groups. If
// 'children' is not nil, the new placement groups are added to it.
//
// Only placement groups that exist at 'newPGNum' count. The Seed of 'p' must be
// below 'oldPGNum'.
func (p PGID) IsSplit(oldPGNum, newPGNum uint32, children map[PGID]bool) bool {
	if p.Seed >= oldPGNum {
		Bugf("%s is not a placement group of a pool with %d of them", p, oldPGNum)
	}
	seeds := hashspace.SplitChildren(p.Seed, oldPGNum, newPGNum)
	if children != nil {
		for _, s := range seeds {
			children[p.withSeed(s)] = true
		}
	}
	return len(seeds) > 0
}

// Children returns the placement groups that 'p' splits into when its pool
// grows from 'oldPGNum' to 'newPGNum', ordered by seed.
func (p PGID) Children(oldPGNum, newPGNum uint32) []PGID {
	if p.Seed >= oldPGNum {
		Bugf("%s is not a placement group of a pool with %d of them", p, oldPGNum)
	}
	var out []PGID
	for _, s := range hashspace.SplitChildren(p.Seed, oldPGNum, newPGNum) {
		out = append(out, p.withSeed(s))
	}
	return out
}

// Parent returns the placement group that held the objects of 'p' when the pool
// had 'oldPGNum' placement groups.
func (p PGID) Parent(oldPGNum uint32) PGID {
	return p.withSeed(hashspace.Ancestor(p.Seed, oldPGNum))
}

// SplitBits returns the number of low hash bits that select 'p' in a pool
// with 'pgNum' placement groups.
func (p PGID) SplitBits(pgNum uint32) uint {
	return hashspace.SeedBits(p.Seed, pgNum)
}

// Contains returns true if an object with the given hash belongs to 'p' in a
// pool with 'pgNum' placement groups.
func (p PGID) Contains(hash uint32, pgNum uint32) bool {
	return hash&hashspace.Mask(p.SplitBits(pgNum)) == p.Seed
}

// Prefixes returns the directory prefixes covering every object of 'p' in a
// pool with 'pgNum' placement groups.
func (p PGID) Prefixes(pgNum uint32) []string {
	return hashspace.Prefixes(p.SplitBits(pgNum), p.Seed, p.Pool)
}

// Less orders placement groups by pool, seed and preferred daemon.
func (p PGID) Less(q PGID) bool {
	if p.Pool != q.Pool {
		return p.Pool < q.Pool
	}
	if p.Seed != q.Seed {
		return p.Seed < q.Seed
	}
	return p.Preferred < q.Preferred
}

// String returns "pool.seed" with the seed in hex, plus "p<daemon>" if a
// preferred daemon is set. It can be parsed by ParsePGID.
func (p PGID) String() string {
	s := fmt.Sprintf("%d.%x", p.Pool, p.Seed)
	if p.Preferred >= 0 {
		s += fmt.Sprintf("p%d", p.Preferred)
	}
	return s
}

// ParsePGID parses a PGID in the format produced by PGID.String.
func ParsePGID(s string) (PGID, error) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return PGID{}, ErrInvalidID
	}
	pool, err := strconv.ParseInt(s[:dot], 10, 64)
	if err != nil {
		return PGID{}, ErrInvalidID
	}
	seedStr, prefStr, hasPref := s[dot+1:], "", false
	if i := strings.IndexByte(seedStr, 'p'); i >= 0 {
		seedStr, prefStr, hasPref = seedStr[:i], seedStr[i+1:], true
	}
	seed, err := strconv.ParseUint(seedStr, 16, 32)
	if err != nil {
		return PGID{}, ErrInvalidID
	}
	pg := NewPGID(uint32(seed), pool, NoPreferred)
	if hasPref {
		pref, err := strconv.ParseInt(prefStr, 10, 32)
		if err != nil || pref < 0 {
			return PGID{}, ErrInvalidID
		}
		pg.Preferred = int32(pref)
	}
	return pg, nil
}

func (p PGID) withSeed(seed uint32) PGID {
	p.Seed = seed
	return p
}
