// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package hashspace

import "fmt"

// MaxBits is the width of the hash space.
const MaxBits = 32

// PoolPrefix returns the directory name prefix shared by every object of
// 'pool': the pool as 16 uppercase hex digits (two's complement for negative
// pools) followed by a dot.
func PoolPrefix(pool int64) string {
	return fmt.Sprintf("%016X.", uint64(pool))
}

// Prefixes returns the directory prefixes that together cover every object of
// 'pool' whose hash agrees with 'mask' in its low 'nbits' bits.
//
// The fixed bits are widened to a whole hex digit and every value of the free
// bits in that digit is enumerated, so the result has 2^(4*ceil(nbits/4)-nbits)
// entries, each 16+1+ceil(nbits/4) characters long. The hex suffix is the
// nibble-reversed hash, see ReverseNibbles. The result is sorted.
//
// It panics if 'nbits' exceeds MaxBits.
func Prefixes(nbits uint, mask uint32, pool int64) []string {
	if nbits > MaxBits {
		panic(fmt.Sprintf("bug: %d bits is wider than the hash space", nbits))
	}

	digits := (nbits + 3) / 4
	free := digits*4 - nbits
	fixed := mask & Mask(nbits)
	poolStr := PoolPrefix(pool)

	out := make([]string, 0, 1<<free)
	for i := uint32(0); i < 1<<free; i++ {
		// When nbits is 32 there are no free bits and i is zero, so the
		// out-of-range shift is harmless.
		v := fixed | i<<nbits
		hex := fmt.Sprintf("%08X", ReverseNibbles(v))
		out = append(out, poolStr+hex[:digits])
	}
	return out
}
