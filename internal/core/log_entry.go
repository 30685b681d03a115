// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package core

import (
	"fmt"
	"time"
)

// LogOp is the kind of mutation a LogEntry records.
type LogOp int

const (
	// OpModify records a write to an object, creating it if needed.
	OpModify LogOp = iota + 1

	// OpClone records the creation of an object as a clone of another.
	OpClone

	// OpDelete records the removal of an object.
	OpDelete

	// OpBacklog is a placeholder for history that is no longer in the log. It
	// is deprecated and must never be replayed.
	OpBacklog

	// OpLostRevert records an object being reverted to an older version after
	// the newest one was declared lost.
	OpLostRevert

	// OpLostDelete records an object being deleted after all of its versions
	// were declared lost.
	OpLostDelete
)

var logOpNames = map[LogOp]string{
	OpModify:     "modify",
	OpClone:      "clone",
	OpDelete:     "delete",
	OpBacklog:    "backlog",
	OpLostRevert: "lost_revert",
	OpLostDelete: "lost_delete",
}

func (op LogOp) String() string {
	if s, ok := logOpNames[op]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", int(op))
}

// RequestID identifies the client request that caused a mutation. It is
// carried along with log entries but has no meaning for placement.
type RequestID struct {
	Client uint64 // Client entity number.
	Tid    uint64 // Client transaction id.
	Inc    int32  // Client incarnation.
}

func (r RequestID) String() string {
	return fmt.Sprintf("client.%d.%d:%d", r.Client, r.Inc, r.Tid)
}

// LogEntry is one mutation from a placement group's log.
type LogEntry struct {
	Op           LogOp
	Object       ObjectID
	Version      Version // The version the object has after this entry.
	PriorVersion Version // The version it had before, or ZeroVersion if it didn't exist.
	ReqID        RequestID
	MTime        time.Time
}

// IsUpdate returns true if the entry leaves the object in existence with new
// contents.
func (e LogEntry) IsUpdate() bool {
	return e.Op == OpModify || e.Op == OpClone || e.Op == OpLostRevert
}

// IsClone returns true if the entry creates a clone.
func (e LogEntry) IsClone() bool {
	return e.Op == OpClone
}

// IsDelete returns true if the entry removes the object.
func (e LogEntry) IsDelete() bool {
	return e.Op == OpDelete || e.Op == OpLostDelete
}

// IsBacklog returns true for the deprecated backlog placeholder.
func (e LogEntry) IsBacklog() bool {
	return e.Op == OpBacklog
}

func (e LogEntry) String() string {
	return fmt.Sprintf("%s (%s) %s %s by %s %s", e.Version, e.PriorVersion, e.Op, e.Object, e.ReqID, e.MTime.UTC().Format(time.RFC3339Nano))
}
