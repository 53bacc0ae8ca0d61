// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wsbridge

import (
	"bytes"
	"errors"
	"testing"
)

type failWriter struct {
	bytes.Buffer
	failAfter int
}

func (w *failWriter) Write(p []byte) (int, error) {
	if w.failAfter == 0 {
		return 0, errors.New("write failed")
	}
	w.failAfter--
	return w.Buffer.Write(p)
}

func TestPendingFlushOrder(t *testing.T) {
	p := newPendingWrites()
	for _, s := range []string{"<a/>", "<b/>", "<c/>"} {
		p.push([]byte(s))
	}
	if p.Len() != 3 || p.Size() != 12 {
		t.Fatalf("wrong queue size: want=3/12, got=%d/%d", p.Len(), p.Size())
	}

	var buf bytes.Buffer
	if err := p.flush(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "<a/><b/><c/>"; buf.String() != want {
		t.Errorf("wrong output: want=%q, got=%q", want, buf.String())
	}
	if p.Len() != 0 || p.Size() != 0 {
		t.Errorf("queue should be empty, got %d/%d", p.Len(), p.Size())
	}
}

func TestPendingFlushError(t *testing.T) {
	p := newPendingWrites()
	for _, s := range []string{"<a/>", "<b/>", "<c/>"} {
		p.push([]byte(s))
	}
	w := &failWriter{failAfter: 1}
	if err := p.flush(w); err == nil {
		t.Fatalf("expected write error")
	}
	if w.String() != "<a/>" {
		t.Errorf("wrong output: want=%q, got=%q", "<a/>", w.String())
	}
	if p.Len() != 2 {
		t.Errorf("unwritten payloads should stay queued: want=2, got=%d", p.Len())
	}

	p.reset()
	if p.Len() != 0 || p.Size() != 0 {
		t.Errorf("queue should be empty after reset, got %d/%d", p.Len(), p.Size())
	}
}
