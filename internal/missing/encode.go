// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package missing

import (
	"encoding/binary"
	"hash/crc32"

	log "github.com/golang/glog"
	"github.com/golang/snappy"

	"github.com/westerndigitalcorporation/placement/internal/core"
)

// formatVersion defines the version of the encoding of a Set.
type formatVersion uint32

const (
	invalidFormat formatVersion = iota
	snappyV1                    // snappy-compressed entries, crc32c of the uncompressed body
)

const (
	// The magic number that validates an encoded Set.
	magic uint32 = 0x4D155E7

	headerLen = 12

	// Snappy never expands a block by more than this factor, so a larger
	// decoded length in the block header is corrupt.
	maxExpansion = 32
)

var crc32Table = crc32.MakeTable(crc32.Castagnoli)

// The encoding has the following format:
//
//      4 bytes        4 bytes         4 bytes              the rest
// -------------------------------------------------------------------------------
// | magic number | format version | crc of body |   ...snappy-compressed body... |
// -------------------------------------------------------------------------------
//
// The uncompressed body is the number of entries (uvarint) followed by each
// entry: object key length (uvarint), object key, need, have (each a 16 byte
// core.Version key). Entries are in ObjectID order, so equal Sets encode to
// equal bytes. All fixed-size integers are big endian.

// MarshalBinary encodes the Set so a peer can rebuild it with UnmarshalBinary.
func (s *Set) MarshalBinary() ([]byte, error) {
	objs := s.Objects()

	body := make([]byte, 0, 16+len(objs)*64)
	body = appendUvarint(body, uint64(len(objs)))
	for _, oid := range objs {
		it := s.missing[oid]
		key := oid.Key()
		body = appendUvarint(body, uint64(len(key)))
		body = append(body, key...)
		body = append(body, it.Need.Key()...)
		body = append(body, it.Have.Key()...)
	}

	compressed := snappy.Encode(nil, body)
	out := make([]byte, headerLen, headerLen+len(compressed))
	binary.BigEndian.PutUint32(out[0:4], magic)
	binary.BigEndian.PutUint32(out[4:8], uint32(snappyV1))
	binary.BigEndian.PutUint32(out[8:12], crcOf(body))
	return append(out, compressed...), nil
}

// UnmarshalBinary replaces the contents of the Set with the decoded data. On
// error the Set is left unchanged.
func (s *Set) UnmarshalBinary(data []byte) error {
	if len(data) < headerLen || binary.BigEndian.Uint32(data[0:4]) != magic {
		log.Errorf("missing: bad header in encoded set")
		return core.ErrBadFormat
	}
	if v := formatVersion(binary.BigEndian.Uint32(data[4:8])); v != snappyV1 {
		log.Errorf("missing: unknown format version %d", v)
		return core.ErrBadFormat
	}

	compressed := data[headerLen:]
	if n, err := snappy.DecodedLen(compressed); err != nil || n > maxExpansion*len(compressed) {
		log.Errorf("missing: bad decoded length in encoded set")
		return core.ErrCorruptData
	}
	body, err := snappy.Decode(nil, compressed)
	if err != nil {
		log.Errorf("missing: failed to decompress set: %v", err)
		return core.ErrCorruptData
	}
	if crcOf(body) != binary.BigEndian.Uint32(data[8:12]) {
		log.Errorf("missing: checksum mismatch in encoded set")
		return core.ErrCorruptData
	}

	decoded, err := decodeBody(body)
	if err != nil {
		log.Errorf("missing: failed to decode set: %v", err)
		return err
	}
	s.Swap(decoded)
	return nil
}

func decodeBody(body []byte) (*Set, error) {
	n, body, ok := readUvarint(body)
	if !ok {
		return nil, core.ErrCorruptData
	}
	out := New()
	for i := uint64(0); i < n; i++ {
		var keyLen uint64
		if keyLen, body, ok = readUvarint(body); !ok || keyLen > uint64(len(body)) || uint64(len(body))-keyLen < 2*core.VersionKeyLen {
			return nil, core.ErrCorruptData
		}
		oid, err := core.ObjectIDFromKey(body[:keyLen])
		if err != nil {
			return nil, core.ErrCorruptData
		}
		body = body[keyLen:]
		need, _ := core.VersionFromKey(body[:core.VersionKeyLen])
		have, _ := core.VersionFromKey(body[core.VersionKeyLen : 2*core.VersionKeyLen])
		body = body[2*core.VersionKeyLen:]
		if out.IsMissing(oid) {
			return nil, core.ErrCorruptData
		}
		out.Add(oid, need, have)
	}
	if len(body) != 0 {
		return nil, core.ErrCorruptData
	}
	return out, nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(buf []byte) (uint64, []byte, bool) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, nil, false
	}
	return v, buf[n:], true
}

func crcOf(body []byte) uint32 {
	return crc32.Checksum(body, crc32Table)
}
