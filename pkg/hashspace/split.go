// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package hashspace

import "fmt"

// SplitChildren returns the seeds that take over part of the hash range of
// 'seed' when a pool grows from 'oldPGNum' to 'newPGNum' placement groups, in
// increasing order. The parent itself is not included. It returns nil if the
// pool does not grow or the parent keeps all of its objects.
//
// With L = SeedBits(seed, oldPGNum), the descendants of 'seed' are the values
// seed + j*2^L for j >= 1: each extra bit doubles the candidates. Only the
// candidates below 'newPGNum' exist; hashes that would have gone to a missing
// candidate fold back (via StableMod) onto a shorter seed, and eventually onto
// the parent.
//
// It panics if 'seed' is not a valid seed at 'oldPGNum'.
func SplitChildren(seed, oldPGNum, newPGNum uint32) []uint32 {
	if seed >= oldPGNum {
		panic(fmt.Sprintf("bug: seed %d does not exist in a pool of %d", seed, oldPGNum))
	}
	if newPGNum <= oldPGNum {
		return nil
	}

	step := uint64(1) << SeedBits(seed, oldPGNum)
	var children []uint32
	for c := uint64(seed) + step; c < uint64(newPGNum); c += step {
		children = append(children, uint32(c))
	}
	return children
}

// Ancestor returns the seed that owned 'seed's hash range when the pool had
// 'oldPGNum' placement groups. It is the inverse of SplitChildren.
func Ancestor(seed, oldPGNum uint32) uint32 {
	return Owner(seed, oldPGNum)
}
