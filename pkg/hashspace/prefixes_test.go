// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package hashspace

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func TestPrefixes(t *testing.T) {
	tests := []struct {
		bits uint
		mask uint32
		pool int64
		want []string
	}{
		{12, 0xE947FA20, 0, []string{"0000000000000000.02A"}},
		{6, 0x0000000F, 20, []string{
			"0000000000000014.F0",
			"0000000000000014.F4",
			"0000000000000014.F8",
			"0000000000000014.FC",
		}},
		{25, 0xDEADBEAF, 0, []string{
			"0000000000000000.FAEBDA0",
			"0000000000000000.FAEBDA2",
			"0000000000000000.FAEBDA4",
			"0000000000000000.FAEBDA6",
			"0000000000000000.FAEBDA8",
			"0000000000000000.FAEBDAA",
			"0000000000000000.FAEBDAC",
			"0000000000000000.FAEBDAE",
		}},
		{32, 0xE947FA20, 0x23, []string{"0000000000000023.02AF749E"}},
		{0, 0xE947FA20, 0x23, []string{"0000000000000023."}},
		{1, 0xDEADBEAF, 0x34AC5D00, []string{
			"0000000034AC5D00.1",
			"0000000034AC5D00.3",
			"0000000034AC5D00.5",
			"0000000034AC5D00.7",
			"0000000034AC5D00.9",
			"0000000034AC5D00.B",
			"0000000034AC5D00.D",
			"0000000034AC5D00.F",
		}},
		// Negative pools render as two's complement.
		{4, 0x7, -1, []string{"FFFFFFFFFFFFFFFF.7"}},
	}

	for _, test := range tests {
		got := Prefixes(test.bits, test.mask, test.pool)
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("Prefixes(%d, %08x, %d) = %v, want %v", test.bits, test.mask, test.pool, got, test.want)
		}
	}
}

// Every prefix has the pool, a dot and one digit per (partial) nibble, and the
// number of prefixes doubles with every free bit of the last digit.
func TestPrefixesShape(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for nbits := uint(0); nbits <= MaxBits; nbits++ {
		for i := 0; i < 20; i++ {
			mask := r.Uint32()
			pool := r.Int63() - r.Int63()
			out := Prefixes(nbits, mask, pool)

			digits := (nbits + 3) / 4
			if len(out) != 1<<(digits*4-nbits) {
				t.Fatalf("bits %d: got %d prefixes", nbits, len(out))
			}
			seen := make(map[string]bool)
			for j, p := range out {
				if len(p) != 17+int(digits) {
					t.Fatalf("bits %d: prefix %q has the wrong length", nbits, p)
				}
				if !strings.HasPrefix(p, PoolPrefix(pool)) {
					t.Fatalf("bits %d: prefix %q lacks pool prefix", nbits, p)
				}
				if p != strings.ToUpper(p) {
					t.Fatalf("prefix %q is not uppercase", p)
				}
				if seen[p] {
					t.Fatalf("duplicate prefix %q", p)
				}
				seen[p] = true
				if j > 0 && out[j-1] >= p {
					t.Fatalf("prefixes not sorted: %v", out)
				}
			}
		}
	}
}

// Any hash agreeing with the mask in the fixed bits must land in exactly one
// of the returned directories, and hashes that don't agree in none.
func TestPrefixesCoverHashes(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 2000; i++ {
		nbits := uint(r.Intn(MaxBits + 1))
		mask := r.Uint32()
		hash := r.Uint32()
		if i%2 == 0 {
			// Force a match half of the time.
			hash = hash&^Mask(nbits) | mask&Mask(nbits)
		}
		name := PoolPrefix(7) + strings.ToUpper(hexOf(ReverseNibbles(hash)))

		matches := 0
		for _, p := range Prefixes(nbits, mask, 7) {
			if strings.HasPrefix(name, p) {
				matches++
			}
		}
		want := 0
		if hash&Mask(nbits) == mask&Mask(nbits) {
			want = 1
		}
		if matches != want {
			t.Fatalf("hash %08x bits %d mask %08x: %d matching prefixes, want %d", hash, nbits, mask, matches, want)
		}
	}
}

func TestPrefixesTooWide(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic for 33 bits")
		}
	}()
	Prefixes(33, 0, 0)
}

func hexOf(v uint32) string {
	const digits = "0123456789ABCDEF"
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = digits[v&0xf]
		v >>= 4
	}
	return string(b[:])
}
