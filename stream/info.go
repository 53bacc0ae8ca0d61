// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/xml"

	"golang.org/x/text/language"

	"mellium.im/wsbridge/internal/ns"
)

// Info contains metadata extracted from a stream header.
type Info struct {
	// Name is the name of the header element as it was written.
	// For raw tokens Name.Space holds the prefix, not the namespace.
	Name    xml.Name
	XMLNS   string
	To      string
	From    string
	ID      string
	Version Version
	Lang    language.Tag

	// Framed is true if the header was a WebSocket <open/> element instead of a
	// <stream:stream> start tag.
	Framed bool
}

// FromStartElement sets the data in the stream info from a start element,
// which may have been read as a raw token or as a namespaced token.
//
// If the version or language attributes cannot be parsed BadFormat is
// returned, if the element is in the wrong namespace InvalidNamespace is
// returned.
func (i *Info) FromStartElement(s xml.StartElement) error {
	*i = Info{Name: s.Name}

	var streamPrefix string
	for _, a := range s.Attr {
		switch a.Name.Space {
		case "":
			switch a.Name.Local {
			case "xmlns":
				i.XMLNS = a.Value
			case "to":
				i.To = a.Value
			case "from":
				i.From = a.Value
			case "id":
				i.ID = a.Value
			case "version":
				err := (&i.Version).UnmarshalXMLAttr(a)
				if err != nil {
					return BadFormat
				}
			}
		case "xml", ns.XML:
			if a.Name.Local != "lang" || a.Value == "" {
				continue
			}
			tag, err := language.Parse(a.Value)
			if err != nil {
				return BadFormat
			}
			i.Lang = tag
		case "xmlns":
			if a.Name.Local == ns.StreamPrefix {
				streamPrefix = a.Value
			}
		}
	}

	switch s.Name.Local {
	case "open":
		i.Framed = true
		if i.XMLNS != ns.WS && s.Name.Space != ns.WS {
			return InvalidNamespace
		}
	case "stream":
		if streamPrefix != "" && streamPrefix != NS {
			return InvalidNamespace
		}
		if s.Name.Space != ns.StreamPrefix && s.Name.Space != NS {
			return InvalidNamespace
		}
		if i.XMLNS != "" && i.XMLNS != ns.Client && i.XMLNS != ns.Server {
			return InvalidNamespace
		}
	default:
		return BadFormat
	}
	return nil
}
