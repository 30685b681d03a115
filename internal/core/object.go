// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/westerndigitalcorporation/placement/pkg/hashspace"
)

// NoPool is the pool of internal metadata objects that belong to no pool.
const NoPool int64 = -1

// NoSnap is the snapshot id of the head (writable) version of an object.
const NoSnap uint64 = ^uint64(0) - 1

// ObjectID identifies an object. Hash is computed by whoever creates the
// ObjectID (usually from the locator key) and never changes for the lifetime of
// the object; this package only ever reads it.
//
// ObjectID is comparable and is used directly as a map key.
type ObjectID struct {
	Name    string // Object name.
	Locator string // Overrides Name for placement if not empty.
	Snap    uint64 // Snapshot id.
	Hash    uint32 // Placement hash.
	Pool    int64  // Owning pool, or NoPool.
}

// NewObjectID returns an ObjectID with the given fields.
func NewObjectID(name, locator string, snap uint64, hash uint32, pool int64) ObjectID {
	return ObjectID{Name: name, Locator: locator, Snap: snap, Hash: hash, Pool: pool}
}

// LocatorKey returns the string that placement of this object is derived from.
func (o ObjectID) LocatorKey() string {
	if o.Locator != "" {
		return o.Locator
	}
	return o.Name
}

// FilestoreKey returns the bit-reversed hash. Sorting by it keeps all objects
// of a placement group next to each other regardless of the pool's
// placement-group count.
func (o ObjectID) FilestoreKey() uint32 {
	return hashspace.ReverseBits(o.Hash)
}

// Compare orders ObjectIDs by pool, filestore key, name, locator and snapshot.
func (o ObjectID) Compare(p ObjectID) int {
	switch {
	case o.Pool != p.Pool:
		if o.Pool < p.Pool {
			return -1
		}
		return 1
	case o.FilestoreKey() != p.FilestoreKey():
		if o.FilestoreKey() < p.FilestoreKey() {
			return -1
		}
		return 1
	}
	if c := strings.Compare(o.Name, p.Name); c != 0 {
		return c
	}
	if c := strings.Compare(o.Locator, p.Locator); c != 0 {
		return c
	}
	switch {
	case o.Snap < p.Snap:
		return -1
	case o.Snap > p.Snap:
		return 1
	}
	return 0
}

// Less returns true if 'o' sorts before 'p'.
func (o ObjectID) Less(p ObjectID) bool {
	return o.Compare(p) < 0
}

// PG returns the placement group holding 'o' in a pool with 'pgNum' placement
// groups.
func (o ObjectID) PG(pgNum uint32) PGID {
	return HashToPG(o.Hash, o.Pool, pgNum)
}

// GetPrefixes returns the directory prefixes covering every object of 'pool'
// whose hash agrees with 'mask' in the low 'bits' bits. See
// hashspace.Prefixes.
func GetPrefixes(bits uint, mask uint32, pool int64) []string {
	return hashspace.Prefixes(bits, mask, pool)
}

// String returns a human-readable representation of the ObjectID.
func (o ObjectID) String() string {
	snap := fmt.Sprintf("%x", o.Snap)
	if o.Snap == NoSnap {
		snap = "head"
	}
	return fmt.Sprintf("%d/%08X/%s/%s/%s", o.Pool, o.Hash, o.Name, o.Locator, snap)
}

// Key returns a binary encoding of 'o'. Comparing two keys with bytes.Compare
// gives the same result as ObjectID.Compare.
//
// The layout is: pool (8 bytes, sign bit flipped), filestore key (4 bytes),
// name and locator (each escaped and terminated, see appendString), snapshot
// (8 bytes). All integers are big endian.
func (o ObjectID) Key() []byte {
	buf := make([]byte, 12, 12+len(o.Name)+len(o.Locator)+4+8)
	binary.BigEndian.PutUint64(buf[0:8], uint64(o.Pool)^(1<<63))
	binary.BigEndian.PutUint32(buf[8:12], o.FilestoreKey())
	buf = appendString(buf, o.Name)
	buf = appendString(buf, o.Locator)
	var snap [8]byte
	binary.BigEndian.PutUint64(snap[:], o.Snap)
	return append(buf, snap[:]...)
}

// ObjectIDFromKey is the reverse of ObjectID.Key.
func ObjectIDFromKey(key []byte) (o ObjectID, err error) {
	if len(key) < 12 {
		return o, ErrInvalidID
	}
	o.Pool = int64(binary.BigEndian.Uint64(key[0:8]) ^ (1 << 63))
	o.Hash = hashspace.ReverseBits(binary.BigEndian.Uint32(key[8:12]))
	rest := key[12:]
	if o.Name, rest, err = readString(rest); err != nil {
		return ObjectID{}, err
	}
	if o.Locator, rest, err = readString(rest); err != nil {
		return ObjectID{}, err
	}
	if len(rest) != 8 {
		return ObjectID{}, ErrInvalidID
	}
	o.Snap = binary.BigEndian.Uint64(rest)
	return o, nil
}

// Strings are written with every 0x00 escaped as 0x00 0xff and terminated by
// 0x00 0x01, so a string sorts before any longer string it is a prefix of.
func appendString(buf []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			buf = append(buf, 0, 0xff)
		} else {
			buf = append(buf, s[i])
		}
	}
	return append(buf, 0, 1)
}

func readString(in []byte) (string, []byte, error) {
	var out bytes.Buffer
	for i := 0; i < len(in); i++ {
		if in[i] != 0 {
			out.WriteByte(in[i])
			continue
		}
		if i+1 >= len(in) {
			return "", nil, ErrInvalidID
		}
		switch in[i+1] {
		case 0xff:
			out.WriteByte(0)
			i++
		case 1:
			return out.String(), in[i+2:], nil
		default:
			return "", nil, ErrInvalidID
		}
	}
	return "", nil, ErrInvalidID
}
