// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Store errors shared by every record store implementation. Callers
// compare with errors.Is.
var (
	// ErrNotFound reports that a record or pack does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists reports an identifier collision on create.
	ErrAlreadyExists = errors.New("already exists")

	// ErrPackLocked reports a write against a locked pack.
	ErrPackLocked = errors.New("pack is locked")
)
