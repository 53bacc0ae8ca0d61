// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package decl contains functionality related to XML declarations.
package decl // import "mellium.im/wsbridge/internal/decl"

import (
	"bytes"
	"encoding/xml"
)

const (
	// XMLHeader is the XML declaration written before a classic stream header.
	// It uses single quotes and is followed by a newline, which is what common
	// servers send and expect.
	XMLHeader = "<?xml version='1.0'?>\n"
)

type skipper struct {
	r       xml.TokenReader
	started bool
}

// Token implements xml.TokenReader for Reader.
func (r *skipper) Token() (xml.Token, error) {
	tok, err := r.r.Token()
	if tok != nil && !r.started {
		r.started = true
		if proc, ok := tok.(xml.ProcInst); ok && proc.Target == "xml" {
			if err != nil {
				return nil, err
			}
			return r.r.Token()
		}
	}
	return tok, err
}

// Skip wraps a token reader and skips any XML declaration.
func Skip(r xml.TokenReader) xml.TokenReader {
	return &skipper{r: r}
}

var (
	declStart = []byte("<?xml")
	declEnd   = []byte("?>")
)

// Strip removes a leading XML declaration and any whitespace that surrounds it
// from b.
// If b does not start with a declaration it is returned unchanged.
// A declaration that is not terminated is left alone.
func Strip(b []byte) []byte {
	trimmed := bytes.TrimLeft(b, " \t\r\n")
	if !bytes.HasPrefix(trimmed, declStart) {
		return b
	}
	// "<?xml-stylesheet" and friends are not declarations.
	if len(trimmed) > len(declStart) && !isSpace(trimmed[len(declStart)]) && trimmed[len(declStart)] != '?' {
		return b
	}
	end := bytes.Index(trimmed, declEnd)
	if end < 0 {
		return b
	}
	return bytes.TrimLeft(trimmed[end+len(declEnd):], " \t\r\n")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
