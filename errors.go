// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wsbridge

import (
	"errors"

	"mellium.im/wsbridge/frame"
)

// Conditions used to classify errors in logs and metrics.
const (
	CondUnreachable     = "unreachable"
	CondPayloadShape    = "unexpected-payload-shape"
	CondConnectionFault = "connection-fault"
	CondStale           = "stale"
	CondShutdown        = "shutdown"
)

// ConnectError is returned when the upstream server cannot be reached.
// It is terminal for the session.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return "wsbridge: " + CondUnreachable + ": dial " + e.Addr + ": " + e.Err.Error()
}

// Unwrap returns the underlying dial error.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ProtocolMismatch is returned when a frame does not have the shape expected
// at its position in the stream, for example an <open/> element that cannot be
// parsed.
// The frame is dropped and the session continues.
type ProtocolMismatch struct {
	Err error
}

func (e *ProtocolMismatch) Error() string {
	return "wsbridge: " + CondPayloadShape + ": " + e.Err.Error()
}

// Unwrap returns the underlying parse error.
func (e *ProtocolMismatch) Unwrap() error {
	return e.Err
}

// TransportError is returned when reading from or writing to either of the
// paired connections fails.
// It is terminal for the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "wsbridge: " + CondConnectionFault + ": " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying I/O error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// condition returns a short name for err suitable for use as a metric label.
func condition(err error) string {
	var (
		connectErr  *ConnectError
		mismatchErr *ProtocolMismatch
		transErr    *TransportError
		frameErr    frame.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &connectErr):
		return CondUnreachable
	case errors.As(err, &mismatchErr):
		return CondPayloadShape
	case errors.As(err, &transErr):
		return CondConnectionFault
	case errors.As(err, &frameErr):
		return frameErr.Condition
	case errors.Is(err, frame.ErrStale):
		return CondStale
	case errors.Is(err, errShutdown):
		return CondShutdown
	}
	return "unknown"
}
