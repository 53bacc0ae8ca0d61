// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wsbridge

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"testing"

	"mellium.im/wsbridge/frame"
)

var (
	_ error = (*ConnectError)(nil)
	_ error = (*ProtocolMismatch)(nil)
	_ error = (*TransportError)(nil)
)

var conditionTests = [...]struct {
	err  error
	cond string
}{
	0: {},
	1: {err: &ConnectError{Addr: "a:1", Err: io.EOF}, cond: CondUnreachable},
	2: {err: &ProtocolMismatch{Err: io.EOF}, cond: CondPayloadShape},
	3: {err: &TransportError{Op: "write", Err: io.EOF}, cond: CondConnectionFault},
	4: {err: frame.ContentBeforeStart, cond: "content-before-start"},
	5: {err: fmt.Errorf("queueing: %w", frame.FrameTooLarge), cond: "frame-too-large"},
	6: {err: frame.ErrStale, cond: CondStale},
	7: {err: errors.New("other"), cond: "unknown"},
	8: {err: errShutdown, cond: CondShutdown},
}

func TestCondition(t *testing.T) {
	for i, tc := range conditionTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if cond := condition(tc.err); cond != tc.cond {
				t.Errorf("wrong condition: want=%q, got=%q", tc.cond, cond)
			}
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	for i, err := range []error{
		&ConnectError{Addr: "a:1", Err: io.EOF},
		&ProtocolMismatch{Err: io.EOF},
		&TransportError{Op: "read", Err: io.EOF},
	} {
		if !errors.Is(err, io.EOF) {
			t.Errorf("%d: %v does not unwrap to io.EOF", i, err)
		}
	}
	const want = "wsbridge: unreachable: dial a:1: EOF"
	if s := (&ConnectError{Addr: "a:1", Err: io.EOF}).Error(); s != want {
		t.Errorf("wrong message: want=%q, got=%q", want, s)
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		NotConnected:     "not-connected",
		StreamOpen:       "stream-open",
		Disconnected:     "disconnected",
		Disconnected + 1: "State(6)",
		-1:               "State(-1)",
	} {
		if s := st.String(); s != want {
			t.Errorf("wrong string: want=%q, got=%q", want, s)
		}
	}
}
