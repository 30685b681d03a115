// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package missing keeps track of the objects a placement group replica lacks
// or holds at a stale version, relative to the authoritative log.
//
// A Set is fed the placement group's log in order (AddNextEvent) and told
// about recovered objects (Got, Rm). For every object it knows the version it
// must reach (need) and the newest version it has locally (have). A reverse
// index keyed by the counter of the needed version lets recovery walk the
// objects in log order.
//
// A Set is not safe for concurrent use; callers serialize access per
// placement group.
package missing

import (
	"fmt"
	"sort"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/placement/internal/core"
)

// Item is the state of one missing object.
type Item struct {
	Need core.Version // The version the object must be brought to.
	Have core.Version // The version held locally, ZeroVersion if none.
}

func (i Item) String() string {
	return fmt.Sprintf("(need %s have %s)", i.Need, i.Have)
}

// Set maps missing objects to their Item. The zero value is an empty Set.
type Set struct {
	missing map[core.ObjectID]Item

	// Reverse index from Need.Counter to the objects needing it. Counters are
	// unique within a log, so there is almost always exactly one object per
	// counter; objects added by hand with the same (often zero) version share
	// a slot.
	rmissing map[uint64][]core.ObjectID
	nrev     int
}

// New returns an empty Set.
func New() *Set {
	s := &Set{}
	s.init()
	return s
}

func (s *Set) init() {
	if s.missing == nil {
		s.missing = make(map[core.ObjectID]Item)
		s.rmissing = make(map[uint64][]core.ObjectID)
	}
}

//-----------
// Mutations
//-----------

// Add tracks 'oid' as needing 'need' and having 'have', replacing whatever was
// tracked for it before.
func (s *Set) Add(oid core.ObjectID, need, have core.Version) {
	s.put(oid, Item{Need: need, Have: have})
}

// AddNextEvent applies the next entry of the placement group's log. Entries
// for an object must be applied in log order.
//
// An update makes the object needed at the entry's version. If the object was
// not missing yet, the entry's prior version is what we hold; if it was, what
// we hold doesn't change. A delete means nothing more is owed for the object,
// so it stops being missing. Backlog entries must never reach this point and
// cause a panic.
func (s *Set) AddNextEvent(e core.LogEntry) {
	switch {
	case e.IsDelete():
		if _, ok := s.missing[e.Object]; ok {
			s.remove(e.Object)
		}
	case e.IsUpdate():
		if it, ok := s.missing[e.Object]; ok {
			s.put(e.Object, Item{Need: e.Version, Have: it.Have})
		} else {
			s.put(e.Object, Item{Need: e.Version, Have: e.PriorVersion})
		}
	default:
		core.Bugf("%s entries can't be replayed into a missing set: %s", e.Op, e)
	}
	mEvents.WithLabelValues(e.Op.String()).Inc()
	if log.V(2) {
		log.Infof("missing: applied %s, %d missing", e, len(s.missing))
	}
}

// ReviseNeed sets the version 'oid' must reach. If it wasn't missing it starts
// out with nothing held locally.
func (s *Set) ReviseNeed(oid core.ObjectID, need core.Version) {
	it := s.missing[oid]
	s.put(oid, Item{Need: need, Have: it.Have})
}

// ReviseHave sets the version of 'oid' held locally. It does nothing if 'oid'
// is not missing.
func (s *Set) ReviseHave(oid core.ObjectID, have core.Version) {
	it, ok := s.missing[oid]
	if !ok {
		return
	}
	it.Have = have
	s.missing[oid] = it
}

// Rm stops tracking 'oid' if the version it needs is no newer than 'v'. Stale
// removals are ignored.
func (s *Set) Rm(oid core.ObjectID, v core.Version) {
	if it, ok := s.missing[oid]; ok && !v.Less(it.Need) {
		s.remove(oid)
	}
}

// RmKey stops tracking 'oid', whatever version it needs.
func (s *Set) RmKey(oid core.ObjectID) {
	if _, ok := s.missing[oid]; ok {
		s.remove(oid)
	}
}

// Got records that 'oid' was recovered at version 'v'. The object must be
// missing and 'v' must be at least the version it needs, otherwise Got panics.
func (s *Set) Got(oid core.ObjectID, v core.Version) {
	it, ok := s.missing[oid]
	if !ok {
		core.Bugf("got %v at %s but it is not missing", oid, v)
	}
	if v.Less(it.Need) {
		core.Bugf("got %v at %s but it needs %s", oid, v, it.Need)
	}
	s.remove(oid)
}

// GotKey records that 'oid' was recovered at whatever version it needed. The
// object must be missing.
func (s *Set) GotKey(oid core.ObjectID) {
	if _, ok := s.missing[oid]; !ok {
		core.Bugf("got %v but it is not missing", oid)
	}
	s.remove(oid)
}

// Swap exchanges the contents of 's' and 'other'.
func (s *Set) Swap(other *Set) {
	s.missing, other.missing = other.missing, s.missing
	s.rmissing, other.rmissing = other.rmissing, s.rmissing
	s.nrev, other.nrev = other.nrev, s.nrev
}

//---------
// Queries
//---------

// IsMissing returns true if 'oid' is missing at any version.
func (s *Set) IsMissing(oid core.ObjectID) bool {
	_, ok := s.missing[oid]
	return ok
}

// IsMissingVersion returns true if 'oid' is missing and needs exactly 'v'.
func (s *Set) IsMissingVersion(oid core.ObjectID, v core.Version) bool {
	it, ok := s.missing[oid]
	return ok && it.Need == v
}

// HaveOld returns the version of 'oid' held locally, or ZeroVersion if it is
// not missing.
func (s *Set) HaveOld(oid core.ObjectID) core.Version {
	return s.missing[oid].Have
}

// Item returns the state of 'oid', if it is missing.
func (s *Set) Item(oid core.ObjectID) (Item, bool) {
	it, ok := s.missing[oid]
	return it, ok
}

// HaveMissing returns true if any object is missing.
func (s *Set) HaveMissing() bool {
	return len(s.missing) > 0
}

// NumMissing returns the number of missing objects.
func (s *Set) NumMissing() int {
	return len(s.missing)
}

// ObjectAt returns the object whose needed version has 'counter', if any. If
// several do, the one added first is returned.
func (s *Set) ObjectAt(counter uint64) (core.ObjectID, bool) {
	objs := s.rmissing[counter]
	if len(objs) == 0 {
		return core.ObjectID{}, false
	}
	return objs[0], true
}

// ReverseLen returns the number of entries in the reverse index. It always
// equals NumMissing.
func (s *Set) ReverseLen() int {
	return s.nrev
}

// Objects returns the missing objects in ObjectID order.
func (s *Set) Objects() []core.ObjectID {
	out := make([]core.ObjectID, 0, len(s.missing))
	for oid := range s.missing {
		out = append(out, oid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// ByNeed returns the missing objects in the order they appear in the log,
// which is the order recovery should fetch them in.
func (s *Set) ByNeed() []core.ObjectID {
	counters := make([]uint64, 0, len(s.rmissing))
	for c := range s.rmissing {
		counters = append(counters, c)
	}
	sort.Slice(counters, func(i, j int) bool { return counters[i] < counters[j] })

	out := make([]core.ObjectID, 0, len(s.missing))
	for _, c := range counters {
		out = append(out, s.rmissing[c]...)
	}
	return out
}

func (s *Set) String() string {
	return fmt.Sprintf("missing(%d)", len(s.missing))
}

//----------
// Internal
//----------

// put stores 'it' for 'oid' and moves its reverse index entry to it.Need.
func (s *Set) put(oid core.ObjectID, it Item) {
	s.init()
	if old, ok := s.missing[oid]; ok {
		s.unindex(oid, old.Need.Counter)
	}
	s.missing[oid] = it
	s.rmissing[it.Need.Counter] = append(s.rmissing[it.Need.Counter], oid)
	s.nrev++
}

// remove drops 'oid', which must be tracked.
func (s *Set) remove(oid core.ObjectID) {
	s.unindex(oid, s.missing[oid].Need.Counter)
	delete(s.missing, oid)
}

func (s *Set) unindex(oid core.ObjectID, counter uint64) {
	objs := s.rmissing[counter]
	for i, o := range objs {
		if o != oid {
			continue
		}
		if len(objs) == 1 {
			delete(s.rmissing, counter)
		} else {
			// Keep insertion order so ObjectAt stays stable.
			s.rmissing[counter] = append(objs[:i:i], objs[i+1:]...)
		}
		s.nrev--
		return
	}
	core.Bugf("reverse index has no entry for %v at %d", oid, counter)
}
