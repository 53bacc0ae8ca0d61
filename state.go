// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wsbridge

import (
	"strconv"
)

// State is the lifecycle state of a Session.
type State int32

// A list of session states in the order in which they are normally reached.
const (
	// NotConnected is the state of a session that has not started dialing.
	NotConnected State = iota

	// Connecting indicates that the upstream connection is being established.
	// Messages from the client are queued until it is.
	Connecting

	// StreamNotOpened indicates that the upstream connection is established but
	// the server has not sent its stream header yet.
	StreamNotOpened

	// StreamOpen indicates that the server stream header was translated and
	// sent to the client.
	StreamOpen

	// StreamClosed indicates that the server closed its stream.
	// The client may open a new one.
	StreamClosed

	// Disconnected indicates that both connections have been closed.
	Disconnected
)

var stateNames = [...]string{
	NotConnected:    "not-connected",
	Connecting:      "connecting",
	StreamNotOpened: "stream-not-opened",
	StreamOpen:      "stream-open",
	StreamClosed:    "stream-closed",
	Disconnected:    "disconnected",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}
