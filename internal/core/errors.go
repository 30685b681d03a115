// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package core

import (
	"errors"
	"fmt"

	log "github.com/golang/glog"
)

var (
	// ErrInvalidID is the error returned when a string or binary
	// representation of an ID or version is invalid.
	ErrInvalidID = errors.New("invalid id format")

	// ErrCorruptData is returned if encoded data fails its checksum or can't be
	// parsed.
	ErrCorruptData = errors.New("corrupt data")

	// ErrBadFormat is returned if encoded data has an unknown magic number or
	// format version.
	ErrBadFormat = errors.New("unknown encoding format")
)

// Bugf logs and panics. It is used for violated preconditions, which are
// caller bugs and not data conditions.
func Bugf(format string, args ...interface{}) {
	msg := "bug: " + fmt.Sprintf(format, args...)
	log.ErrorDepth(1, msg)
	panic(msg)
}
