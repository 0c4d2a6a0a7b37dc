package plumbing

import (
	"errors"
	"fmt"
)

var (
	// ErrStop is used to stop a ForEach function in an Iter.
	ErrStop = errors.New("stop iter")
)

// noSuchObject is an error type that occurs when no object with a given
// Hash is available from the commit store. This backs the core's
// MissingCommit error kind (spec §7).
type noSuchObject struct {
	oid Hash
}

func (e *noSuchObject) Error() string {
	return fmt.Sprintf("wren: no such object: %s", e.oid)
}

// NoSuchObject creates an error representing a missing object with the
// given id.
func NoSuchObject(oid Hash) error {
	return &noSuchObject{oid: oid}
}

// IsNoSuchObject indicates whether an error is a noSuchObject and is
// non-nil.
func IsNoSuchObject(e error) bool {
	if e == nil {
		return false
	}
	err, ok := e.(*noSuchObject)
	return ok && err != nil
}

func ExtractNoSuchObject(e error) (Hash, bool) {
	if e == nil {
		return ZeroHash, false
	}
	err, ok := e.(*noSuchObject)
	if !ok {
		return ZeroHash, false
	}
	return err.oid, true
}
