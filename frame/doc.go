// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package frame locates complete top-level XML constructs in a byte buffer
// that is filled incrementally from a classic XMPP stream.
//
// A classic stream is one XML document that stays open for the lifetime of the
// session, so an XML parser never sees the end of it.
// Instead of parsing, a Decoder counts angle brackets: the first construct of a
// stream is the unterminated stream header (net depth 1), and every construct
// after it is a complete child of the stream (net depth 0).
// Whether the header has already been seen is owned by the caller and passed
// to every call to Decode.
//
// The scan is byte oriented.
// This is safe for UTF-8 input because the bytes it looks for ('<', '>', '/',
// '!', '?', '-', ']') never occur inside a multi-byte sequence.
// No well-formedness checking is performed.
package frame // import "mellium.im/wsbridge/frame"
