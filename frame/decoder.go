// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package frame

import (
	"bytes"
)

// Defaults used by the zero value of Decoder.
const (
	DefaultMaxSize      = 1 << 20
	DefaultDiscardAfter = 100
)

// Decoder extracts one top-level XML construct per call from a buffer.
// The zero value is ready to use.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	// MaxSize is the largest frame, in bytes, that will be extracted.
	// If zero, DefaultMaxSize is used.
	MaxSize int

	// DiscardAfter is the number of calls that may fail to produce a frame
	// before the buffered data is thrown away.
	// If zero, DefaultDiscardAfter is used; if negative, data is never thrown
	// away.
	DiscardAfter int

	stale int
}

func (d *Decoder) maxSize() int {
	if d.MaxSize <= 0 {
		return DefaultMaxSize
	}
	return d.MaxSize
}

func (d *Decoder) discardAfter() int {
	if d.DiscardAfter == 0 {
		return DefaultDiscardAfter
	}
	return d.DiscardAfter
}

// Decode scans all of buf and, if it starts with a complete construct, removes
// the construct from buf and returns a copy of it without leading whitespace.
// If more data is needed, buf is left untouched and Decode returns nil, nil.
//
// Started reports whether the stream header has already been extracted.
// Until it has, the first construct is expected to be the header, which is an
// open tag that is never closed.
//
// Decode should be called again as long as it returns a frame and buf is not
// empty.
func (d *Decoder) Decode(buf *bytes.Buffer, started bool) ([]byte, error) {
	b := buf.Bytes()
	if len(b) == 0 {
		return nil, nil
	}

	baseline := 0
	if !started {
		baseline = 1
	}

	var (
		openingBracketFound bool
		elementFound        bool
		inCDATA             bool
		depth               int
		closeDepth          int
		length              int
		leading             int
	)

scan:
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case !openingBracketFound && isSpace(c):
			leading++
		case !openingBracketFound && c != '<':
			buf.Next(1)
			return nil, ContentBeforeStart
		case !inCDATA && c == '<':
			openingBracketFound = true
			if i+1 >= len(b) {
				// Wait for the next byte to know what this is.
				continue
			}
			switch next := b[i+1]; {
			case next == '/':
				depth--
			case isNameStart(next):
				elementFound = true
				depth++
			case next == '!':
				switch {
				case isCommentStart(b, i):
					depth++
				case isCDATAStart(b, i):
					depth++
					inCDATA = true
				}
			case next == '?':
				depth++
			}
		case !inCDATA && c == '/':
			if i+1 < len(b) && b[i+1] == '>' {
				depth--
			}
		case c == '>':
			length = i + 1
			if i > 0 {
				prev := b[i-1]
				switch {
				case !inCDATA && prev == '?':
					depth--
				case !inCDATA && prev == '-' && i > 1 && b[i-2] == '-':
					depth--
				case inCDATA && prev == ']' && i > 1 && b[i-2] == ']':
					depth--
					inCDATA = false
				}
			}
			closeDepth = depth
			if elementFound && depth <= baseline {
				break scan
			}
		}
	}

	if !openingBracketFound {
		// Whitespace between constructs carries no meaning.
		buf.Reset()
		return nil, nil
	}

	// A construct is complete if the bracket depth was back at the baseline at
	// the last '>' seen.
	// This also covers constructs that do not contain an element, such as the
	// stream close tag.
	if length == 0 || closeDepth > baseline {
		if buf.Len() > d.maxSize() {
			return nil, FrameTooLarge
		}
		return nil, d.wait(buf)
	}
	if length > d.maxSize() {
		return nil, FrameTooLarge
	}

	d.stale = 0
	frame := make([]byte, length-leading)
	copy(frame, b[leading:length])
	buf.Next(length)
	return frame, nil
}

// wait records a call that did not produce a frame and drops the buffered
// data if there have been too many of them.
func (d *Decoder) wait(buf *bytes.Buffer) error {
	limit := d.discardAfter()
	if limit < 0 {
		return nil
	}
	d.stale++
	if d.stale > limit {
		d.stale = 0
		buf.Reset()
		return ErrStale
	}
	return nil
}

// Reset clears the count of calls that did not produce a frame.
func (d *Decoder) Reset() {
	d.stale = 0
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// isNameStart reports whether c may start an element name.
// Bytes outside of ASCII are assumed to start a multi-byte name character.
func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == ':' || c == '_' || c >= 0x80
}

var (
	commentStart = []byte("<!--")
	cdataStart   = []byte("<![CDATA[")
)

func isCommentStart(b []byte, i int) bool {
	return bytes.HasPrefix(b[i:], commentStart)
}

func isCDATAStart(b []byte, i int) bool {
	return bytes.HasPrefix(b[i:], cdataStart)
}
