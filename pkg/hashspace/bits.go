// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package hashspace contains the bit arithmetic that relates 32-bit object
// hashes to placement groups and to on-disk directory prefixes.
//
// A placement group is selected by the low bits of an object's hash. The number
// of bits used depends on the placement-group count of the pool, which need not
// be a power of two: with a count of n and b = CalcBitsOf(n-1), a hash whose low
// b bits form a value >= n folds down to its low b-1 bits (see StableMod). When
// the count grows, a group's objects are only ever handed to groups whose seed
// extends the parent's seed with more high-order bits, so existing objects never
// move between unrelated groups.
//
// Directories on disk are named after the hash with its nibbles reversed, so the
// low (placement) bits of the hash come first. Deepening the directory fan-out
// therefore only appends digits to existing names.
package hashspace

import "math/bits"

// CalcBitsOf returns the number of bits needed to represent n.
func CalcBitsOf(n uint32) uint {
	return uint(bits.Len32(n))
}

// Mask returns a mask with the low 'nbits' bits set.
func Mask(nbits uint) uint32 {
	if nbits >= 32 {
		return ^uint32(0)
	}
	return uint32(1)<<nbits - 1
}

// PGNumMask returns the smallest all-ones mask that covers every seed of a pool
// with 'pgNum' placement groups.
func PGNumMask(pgNum uint32) uint32 {
	if pgNum == 0 {
		return 0
	}
	return Mask(CalcBitsOf(pgNum - 1))
}

// StableMod folds 'x' into [0, b) using 'bmask', which must be the PGNumMask of
// b. Values whose masked form is out of range lose their top masked bit. Unlike
// x % b, the result for a given x only changes when b grows past it.
func StableMod(x, b, bmask uint32) uint32 {
	if x&bmask < b {
		return x & bmask
	}
	return x & (bmask >> 1)
}

// Owner returns the seed of the placement group that owns 'hash' in a pool
// with 'pgNum' placement groups.
func Owner(hash, pgNum uint32) uint32 {
	return StableMod(hash, pgNum, PGNumMask(pgNum))
}

// SeedBits returns how many low hash bits select 'seed' in a pool with 'pgNum'
// placement groups: a hash h is owned by 'seed' iff h&Mask(SeedBits) == seed.
//
// This is CalcBitsOf(pgNum-1), except for seeds whose upper twin
// (seed | 1<<(b-1)) does not exist yet. Those still own both halves and are
// selected by one bit less.
func SeedBits(seed, pgNum uint32) uint {
	if pgNum == 0 {
		return 0
	}
	b := CalcBitsOf(pgNum - 1)
	if b == 0 {
		return 0
	}
	half := uint64(1) << (b - 1)
	if uint64(seed) < half && uint64(seed)+half >= uint64(pgNum) {
		return b - 1
	}
	return b
}

// ReverseNibbles reverses the order of the eight hex digits of 'v'. The bits
// within each digit keep their order.
func ReverseNibbles(v uint32) uint32 {
	v = (v&0x0f0f0f0f)<<4 | (v&0xf0f0f0f0)>>4
	return bits.ReverseBytes32(v)
}

// ReverseBits reverses the bit order of 'v'. Sorting objects by the reversed
// hash keeps every placement group's objects contiguous for any count.
func ReverseBits(v uint32) uint32 {
	return bits.Reverse32(v)
}
