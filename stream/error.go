// Copyright 2015 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/xml"

	"mellium.im/xmlstream"
)

// Stream errors from RFC 6120 §4.9.3 that the bridge sends or reports.
var (
	// BadFormat is used when the entity has sent XML that cannot be processed.
	BadFormat = Error{Err: "bad-format"}

	// InvalidNamespace is sent when the stream or content namespace is not one
	// that the entity supports.
	InvalidNamespace = Error{Err: "invalid-namespace"}

	// PolicyViolation is sent when a local policy was violated, for instance a
	// frame exceeded the configured size limit.
	PolicyViolation = Error{Err: "policy-violation"}

	// RemoteConnectionFailed is sent when the bridge cannot connect to the
	// upstream server.
	RemoteConnectionFailed = Error{Err: "remote-connection-failed"}

	// SystemShutdown is sent when the bridge is shutting down and all streams
	// are being closed.
	SystemShutdown = Error{Err: "system-shutdown"}
)

// A Error represents an unrecoverable stream-level error.
type Error struct {
	Err string
}

// Error satisfies the builtin error interface and returns the name of the
// StreamError. For instance, given the error:
//
//     <stream:error>
//       <restricted-xml xmlns="urn:ietf:params:xml:ns:xmpp-streams"/>
//     </stream:error>
//
// Error() would return "restricted-xml".
func (s Error) Error() string {
	return s.Err
}

// UnmarshalXML satisfies the xml package's Unmarshaler interface and allows
// StreamError's to be correctly unmarshaled from XML.
func (s *Error) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	se := struct {
		XMLName xml.Name
		Err     []struct {
			XMLName xml.Name
		} `xml:",any"`
	}{}
	err := d.DecodeElement(&se, &start)
	if err != nil {
		return err
	}
	// The condition is the first child in the stream errors namespace, other
	// children are text or application specific conditions.
	for _, child := range se.Err {
		if child.XMLName.Space == ErrorNS || child.XMLName.Space == "" {
			s.Err = child.XMLName.Local
			return nil
		}
	}
	if len(se.Err) > 0 {
		s.Err = se.Err[0].XMLName.Local
	}
	return nil
}

// MarshalXML satisfies the xml package's Marshaler interface and allows
// StreamError's to be correctly marshaled back into XML.
func (s Error) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return s.WriteXML(e, xml.StartElement{})
}

// WriteXML satisfies the xmlstream.Marshaler interface.
// It is like MarshalXML except it writes tokens to w.
func (s Error) WriteXML(w xmlstream.TokenWriter, _ xml.StartElement) error {
	_, err := xmlstream.Copy(w, s.TokenReader(nil))
	if err != nil {
		return err
	}
	if f, ok := w.(xmlstream.Flusher); ok {
		return f.Flush()
	}
	return nil
}

// TokenReader returns a new xmlstream.TokenReader that returns an encoding of
// the error.
// If payload is not nil it is appended after the condition element, which is
// where RFC 6120 puts descriptive text and application specific conditions.
func (s Error) TokenReader(payload xml.TokenReader) xml.TokenReader {
	var inner xml.TokenReader = xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Local: s.Err, Space: ErrorNS}})
	if payload != nil {
		inner = xmlstream.MultiReader(
			inner,
			payload,
		)
	}
	return xmlstream.Wrap(
		inner,
		xml.StartElement{
			Name: xml.Name{Local: "error", Space: NS},
		},
	)
}

// Text returns a token reader for the optional descriptive text element of a
// stream error.
func Text(text string) xml.TokenReader {
	return xmlstream.Wrap(
		xmlstream.Token(xml.CharData(text)),
		xml.StartElement{Name: xml.Name{Local: "text", Space: ErrorNS}},
	)
}
