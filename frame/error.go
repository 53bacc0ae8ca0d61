// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package frame

import (
	"errors"
)

// A list of framing errors.
var (
	// ContentBeforeStart is returned when something other than whitespace is
	// found before the first '<' in the buffer.
	// The decoder drops one byte before returning it so that repeated calls
	// eventually resynchronize on the next construct.
	ContentBeforeStart = Error{Condition: "content-before-start"}

	// FrameTooLarge is returned when a frame, or the incomplete data waiting to
	// become one, is larger than the decoder's maximum size.
	FrameTooLarge = Error{Condition: "frame-too-large"}
)

// ErrStale is returned when the decoder gave up on buffered data that did not
// produce a frame after too many attempts and discarded it.
var ErrStale = errors.New("frame: discarded stale buffered data")

// Error is a framing error.
type Error struct {
	Condition string
}

// Error satisfies the error interface.
func (e Error) Error() string {
	return "frame: " + e.Condition
}
