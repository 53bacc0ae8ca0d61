// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wsbridge

import (
	"io"

	"github.com/eapache/queue"
)

// pendingWrites holds client payloads that arrive before the upstream
// connection is established.
// They are written in the order in which they were received.
type pendingWrites struct {
	q    *queue.Queue
	size int
}

func newPendingWrites() *pendingWrites {
	return &pendingWrites{q: queue.New()}
}

func (p *pendingWrites) push(b []byte) {
	p.q.Add(b)
	p.size += len(b)
}

// Len returns the number of queued payloads.
func (p *pendingWrites) Len() int {
	return p.q.Length()
}

// Size returns the number of queued bytes.
func (p *pendingWrites) Size() int {
	return p.size
}

// flush writes every queued payload to w in order.
// If a write fails the payloads that were not written remain queued.
func (p *pendingWrites) flush(w io.Writer) error {
	for p.q.Length() > 0 {
		b := p.q.Peek().([]byte)
		if _, err := w.Write(b); err != nil {
			return err
		}
		p.q.Remove()
		p.size -= len(b)
	}
	return nil
}

// reset drops all queued payloads.
func (p *pendingWrites) reset() {
	for p.q.Length() > 0 {
		p.q.Remove()
	}
	p.size = 0
}
