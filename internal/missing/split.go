// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package missing

import (
	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/placement/internal/core"
	"github.com/westerndigitalcorporation/placement/pkg/hashspace"
)

// SplitInto moves every object whose hash selects 'child' into 'into'. An
// object belongs to 'child' if the low 'splitBits' bits of its hash equal the
// child's seed; 'splitBits' is child.SplitBits(newPGNum) for the pool's new
// placement-group count. Objects already in 'into' are overwritten.
//
// 'into' must not be 's'.
func (s *Set) SplitInto(child core.PGID, splitBits uint, into *Set) {
	if into == s {
		core.Bugf("splitting %s into its own parent ledger", child)
	}
	mask := hashspace.Mask(splitBits)
	moved := 0
	for oid, it := range s.missing {
		if oid.Hash&mask != child.Seed {
			continue
		}
		into.put(oid, it)
		s.remove(oid)
		moved++
	}
	mSplitMoved.Add(float64(moved))
	log.V(1).Infof("missing: moved %d of %d objects to %s (%d bits)", moved, moved+len(s.missing), child, splitBits)
}
