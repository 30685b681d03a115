// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package core

import (
	"math/rand"
	"reflect"
	"testing"
)

func pgSet(pool int64, seeds ...uint32) map[PGID]bool {
	m := make(map[PGID]bool)
	for _, s := range seeds {
		m[NewPGID(s, pool, NoPreferred)] = true
	}
	return m
}

func TestPGIsSplit(t *testing.T) {
	tests := []struct {
		seed           uint32
		oldNum, newNum uint32
		split          bool
		children       []uint32
	}{
		{0, 1, 1, false, nil},
		{0, 2, 4, true, []uint32{2}},
		{0, 2, 8, true, []uint32{2, 4, 6}},
		{0, 3, 8, true, []uint32{4}},
		{0, 6, 8, false, nil},
		{1, 2, 4, true, []uint32{3}},
		{1, 2, 6, true, []uint32{3, 5}},
		{1, 2, 8, true, []uint32{3, 5, 7}},
		{1, 4, 8, true, []uint32{5}},
		{1, 3, 8, true, []uint32{3, 5, 7}},
		{1, 6, 8, false, nil},
		{3, 7, 8, true, []uint32{7}},
		{3, 7, 12, true, []uint32{7, 11}},
		{3, 7, 11, true, []uint32{7}},
	}

	for _, test := range tests {
		pg := NewPGID(test.seed, 0, NoPreferred)

		// Without an output set.
		if got := pg.IsSplit(test.oldNum, test.newNum, nil); got != test.split {
			t.Errorf("%s.IsSplit(%d, %d, nil) = %v", pg, test.oldNum, test.newNum, got)
		}

		children := make(map[PGID]bool)
		if got := pg.IsSplit(test.oldNum, test.newNum, children); got != test.split {
			t.Errorf("%s.IsSplit(%d, %d) = %v", pg, test.oldNum, test.newNum, got)
		}
		if want := pgSet(0, test.children...); !reflect.DeepEqual(children, want) {
			t.Errorf("%s.IsSplit(%d, %d) children = %v, want %v", pg, test.oldNum, test.newNum, children, want)
		}
	}
}

func TestPGIsSplitKeepsPoolAndPreferred(t *testing.T) {
	pg := NewPGID(1, 42, 7)
	children := make(map[PGID]bool)
	pg.IsSplit(2, 8, children)
	want := map[PGID]bool{NewPGID(3, 42, 7): true, NewPGID(5, 42, 7): true, NewPGID(7, 42, 7): true}
	if !reflect.DeepEqual(children, want) {
		t.Errorf("children = %v, want %v", children, want)
	}
	if got := pg.Children(2, 8); !reflect.DeepEqual(got, []PGID{NewPGID(3, 42, 7), NewPGID(5, 42, 7), NewPGID(7, 42, 7)}) {
		t.Errorf("Children = %v", got)
	}
	for c := range children {
		if c.Parent(2) != pg {
			t.Errorf("parent of %s is %s", c, c.Parent(2))
		}
	}
}

func TestPGIsSplitBadSeed(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic")
		}
	}()
	NewPGID(8, 0, NoPreferred).IsSplit(8, 16, nil)
}

// Every object of a split placement group ends up in exactly one of the parent
// and its children.
func TestPGContainsAfterSplit(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		oldNum := uint32(r.Intn(100) + 1)
		newNum := oldNum + uint32(r.Intn(100))
		parent := NewPGID(uint32(r.Intn(int(oldNum))), 3, NoPreferred)
		family := append([]PGID{parent}, parent.Children(oldNum, newNum)...)

		for j := 0; j < 100; j++ {
			h := r.Uint32()
			if !parent.Contains(h, oldNum) {
				continue
			}
			owners := 0
			for _, pg := range family {
				if pg.Contains(h, newNum) {
					owners++
					if HashToPG(h, 3, newNum) != pg {
						t.Fatalf("HashToPG disagrees with Contains for %08x", h)
					}
				}
			}
			if owners != 1 {
				t.Fatalf("%d->%d: hash %08x of %s has %d owners", oldNum, newNum, h, parent, owners)
			}
		}
	}
}

func TestPGPrefixes(t *testing.T) {
	// Seed 1 in a pool of 3 is still selected by one bit only.
	pg := NewPGID(1, 20, NoPreferred)
	want := []string{
		"0000000000000014.1",
		"0000000000000014.3",
		"0000000000000014.5",
		"0000000000000014.7",
		"0000000000000014.9",
		"0000000000000014.B",
		"0000000000000014.D",
		"0000000000000014.F",
	}
	if got := pg.Prefixes(3); !reflect.DeepEqual(got, want) {
		t.Errorf("Prefixes = %v", got)
	}
	if got := pg.Prefixes(4); !reflect.DeepEqual(got, []string{"0000000000000014.1", "0000000000000014.5", "0000000000000014.9", "0000000000000014.D"}) {
		t.Errorf("Prefixes = %v", got)
	}
}

func TestPGString(t *testing.T) {
	tests := []struct {
		pg  PGID
		str string
	}{
		{NewPGID(0x2a, 3, NoPreferred), "3.2a"},
		{NewPGID(0, -1, NoPreferred), "-1.0"},
		{NewPGID(0xff, 1, 5), "1.ffp5"},
	}
	for _, test := range tests {
		if s := test.pg.String(); s != test.str {
			t.Errorf("String() = %q, want %q", s, test.str)
		}
		p, err := ParsePGID(test.str)
		if err != nil || p != test.pg {
			t.Errorf("ParsePGID(%q) = %v, %v", test.str, p, err)
		}
	}
	for _, bad := range []string{"", "3", "x.1", "3.g", "3.1p", "3.1px", "3.p1"} {
		if _, err := ParsePGID(bad); err != ErrInvalidID {
			t.Errorf("ParsePGID(%q) should fail", bad)
		}
	}
}

func TestPGLess(t *testing.T) {
	if !NewPGID(5, 0, -1).Less(NewPGID(1, 1, -1)) || !NewPGID(1, 1, -1).Less(NewPGID(2, 1, -1)) || NewPGID(2, 1, -1).Less(NewPGID(2, 1, -1)) {
		t.Errorf("wrong order")
	}
}
