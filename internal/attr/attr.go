// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package attr contains helpers for working with raw XML attributes.
package attr // import "mellium.im/wsbridge/internal/attr"

import (
	"encoding/xml"
	"strings"
)

// QName returns the qualified name as it appeared in a raw token.
// Raw tokens keep the prefix in Space, so the prefix is joined back on.
func QName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Write writes a space followed by the attribute as name='value' to b.
// The value is escaped so that it is safe inside single quotes.
func Write(b *strings.Builder, a xml.Attr) {
	b.WriteByte(' ')
	b.WriteString(QName(a.Name))
	b.WriteString("='")
	// strings.Builder never returns an error.
	_ = xml.EscapeText(b, []byte(a.Value))
	b.WriteByte('\'')
}
