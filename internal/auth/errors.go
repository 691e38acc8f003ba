// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateAuth reports a second authentication registration for a
// player identity that is already in the bucket. This is a caller
// sequencing fault, never a user-facing condition; it must be surfaced
// loudly, not swallowed.
var ErrDuplicateAuth = errors.New("account already authenticating")
