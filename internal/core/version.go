// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Version orders every mutation of a placement group. Epoch is the
// generation of the cluster configuration the mutation happened in, Counter the
// position of the mutation within the placement group's log. The zero Version
// means "no version": the object never existed.
type Version struct {
	Epoch   uint64
	Counter uint64
}

// ZeroVersion is the "no version" sentinel.
var ZeroVersion = Version{}

// VersionKeyLen is the length of the encoding returned by Version.Key.
const VersionKeyLen = 16

// IsZero returns true if 'v' is the "no version" sentinel.
func (v Version) IsZero() bool {
	return v == ZeroVersion
}

// Compare returns -1, 0 or 1 if 'v' is older than, equal to or newer than 'o'.
func (v Version) Compare(o Version) int {
	switch {
	case v.Epoch < o.Epoch:
		return -1
	case v.Epoch > o.Epoch:
		return 1
	case v.Counter < o.Counter:
		return -1
	case v.Counter > o.Counter:
		return 1
	}
	return 0
}

// Less returns true if 'v' is strictly older than 'o'.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// String returns "epoch'counter", which can be parsed by ParseVersion.
func (v Version) String() string {
	return fmt.Sprintf("%d'%d", v.Epoch, v.Counter)
}

// ParseVersion parses a Version in the format produced by Version.String.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, "'")
	if len(parts) != 2 {
		return Version{}, ErrInvalidID
	}
	epoch, e1 := strconv.ParseUint(parts[0], 10, 64)
	counter, e2 := strconv.ParseUint(parts[1], 10, 64)
	if e1 != nil || e2 != nil {
		return Version{}, ErrInvalidID
	}
	return Version{Epoch: epoch, Counter: counter}, nil
}

// Key returns a big-endian encoding of 'v' whose byte order matches the
// version order.
func (v Version) Key() []byte {
	var key [VersionKeyLen]byte
	binary.BigEndian.PutUint64(key[0:8], v.Epoch)
	binary.BigEndian.PutUint64(key[8:16], v.Counter)
	return key[:]
}

// VersionFromKey is the reverse of Version.Key.
func VersionFromKey(key []byte) (Version, error) {
	if len(key) != VersionKeyLen {
		return Version{}, ErrInvalidID
	}
	return Version{
		Epoch:   binary.BigEndian.Uint64(key[0:8]),
		Counter: binary.BigEndian.Uint64(key[8:16]),
	}, nil
}
