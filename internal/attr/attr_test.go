// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package attr_test

import (
	"encoding/xml"
	"strconv"
	"strings"
	"testing"

	"mellium.im/wsbridge/internal/attr"
)

func name(space, local string) xml.Name {
	return xml.Name{Space: space, Local: local}
}

// header is the attribute list of a raw stream header token.
var header = []xml.Attr{
	{Name: name("", "xmlns"), Value: "jabber:client"},
	{Name: name("xmlns", "stream"), Value: "http://etherx.jabber.org/streams"},
	{Name: name("", "to"), Value: "example.com"},
	{Name: name("xml", "lang"), Value: "en"},
}

func TestQName(t *testing.T) {
	for i, a := range header {
		want := a.Name.Local
		if a.Name.Space != "" {
			want = a.Name.Space + ":" + want
		}
		if q := attr.QName(a.Name); q != want {
			t.Errorf("%d: wrong name: want=%q, got=%q", i, want, q)
		}
	}
}

var writeTests = [...]struct {
	attr xml.Attr
	out  string
}{
	0: {attr: xml.Attr{Name: xml.Name{Local: "to"}, Value: "example.com"}, out: ` to='example.com'`},
	1: {attr: xml.Attr{Name: xml.Name{Space: "xml", Local: "lang"}, Value: "en"}, out: ` xml:lang='en'`},
	2: {attr: xml.Attr{Name: xml.Name{Local: "id"}, Value: `a'b&c<d`}, out: ` id='a&#39;b&amp;c&lt;d'`},
	3: {attr: xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: "jabber:client"}, out: ` xmlns='jabber:client'`},
	4: {attr: xml.Attr{Name: xml.Name{Space: "xmlns", Local: "stream"}, Value: "x"}, out: ` xmlns:stream='x'`},
}

func TestWrite(t *testing.T) {
	for i, tc := range writeTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			var b strings.Builder
			attr.Write(&b, tc.attr)
			if s := b.String(); s != tc.out {
				t.Errorf("wrong output: want=%q, got=%q", tc.out, s)
			}
		})
	}
}
