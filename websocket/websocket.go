// Copyright 2017 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package websocket

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"mellium.im/wsbridge/internal/attr"
	"mellium.im/wsbridge/internal/decl"
	"mellium.im/wsbridge/internal/ns"
	"mellium.im/wsbridge/stream"
)

// Frames that are written verbatim.
const (
	// Close is the framed form of the end of a stream.
	Close = `<close xmlns='` + NS + `'/>`

	// StreamEnd is the classic form of the end of a stream.
	StreamEnd = `</stream:stream>`
)

// ErrNoElement is returned when a frame does not contain an element, for
// example if it is only an XML declaration or a comment.
var ErrNoElement = errors.New("websocket: frame does not contain an element")

var errNotOpen = errors.New("websocket: expected an open element")

// startElement returns the first start element in b using raw tokens so that
// prefixes are preserved.
// Any XML declaration, comments, or whitespace before the element are skipped.
func startElement(b []byte) (xml.StartElement, error) {
	d := xml.NewDecoder(bytes.NewReader(decl.Strip(b)))
	for {
		tok, err := d.RawToken()
		if err != nil {
			if err == io.EOF {
				return xml.StartElement{}, ErrNoElement
			}
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.Comment, xml.ProcInst, xml.Directive:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return xml.StartElement{}, ErrNoElement
			}
		default:
			return xml.StartElement{}, ErrNoElement
		}
	}
}

// ToOpen converts a classic stream header into an open element.
//
// For example, the header:
//
//     <stream:stream xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams' to='example.com'>
//
// becomes:
//
//     <open to='example.com' xmlns='urn:ietf:params:xml:ns:xmpp-framing'/>
//
// Any XML declaration is dropped, the stream prefix declaration is removed, and
// the default namespace is replaced with the framing namespace and moved to the
// end.
// All other attributes are kept in order.
func ToOpen(header []byte) ([]byte, error) {
	start, err := startElement(header)
	if err != nil {
		return nil, err
	}
	if start.Name.Local != "stream" || start.Name.Space == "" {
		return nil, fmt.Errorf("websocket: expected stream header, got <%s>", attr.QName(start.Name))
	}
	prefix := start.Name.Space

	attrs := start.Attr[:0]
	for _, a := range start.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			continue
		case a.Name.Space == "xmlns" && a.Name.Local == prefix:
			continue
		}
		attrs = append(attrs, a)
	}
	return Open(attrs...), nil
}

// FromOpen converts an open element into a classic stream header preceded by
// an XML declaration.
//
// For example, the open element:
//
//     <open to='example.com' xmlns='urn:ietf:params:xml:ns:xmpp-framing'/>
//
// becomes:
//
//     <?xml version='1.0'?>
//     <stream:stream xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams' to='example.com'>
//
// The framing namespace is dropped and all other attributes are kept in order.
func FromOpen(open []byte) ([]byte, error) {
	start, err := startElement(open)
	if err != nil {
		return nil, err
	}
	if start.Name.Local != "open" || start.Name.Space != "" {
		return nil, fmt.Errorf("%w, got <%s>", errNotOpen, attr.QName(start.Name))
	}

	var b strings.Builder
	b.WriteString(decl.XMLHeader)
	b.WriteString("<stream:stream xmlns='" + ns.Client + "' xmlns:stream='" + ns.Stream + "'")
	for _, a := range start.Attr {
		if a.Name.Space == "" && a.Name.Local == "xmlns" {
			continue
		}
		if a.Name.Space == "xmlns" && a.Name.Local == ns.StreamPrefix {
			continue
		}
		attr.Write(&b, a)
	}
	b.WriteString(">")
	return []byte(b.String()), nil
}

// Open returns an open element with the given attributes followed by the
// framing namespace.
func Open(attrs ...xml.Attr) []byte {
	var b strings.Builder
	b.WriteString("<open")
	for _, a := range attrs {
		attr.Write(&b, a)
	}
	b.WriteString(" xmlns='" + NS + "'/>")
	return []byte(b.String())
}

// Info parses the stream metadata from an open element or a classic stream
// header.
func Info(b []byte) (stream.Info, error) {
	var info stream.Info
	start, err := startElement(b)
	if err != nil {
		return info, err
	}
	err = info.FromStartElement(start)
	return info, err
}

// IsOpen reports whether the payload is an open element.
func IsOpen(payload []byte) bool {
	return hasTag(payload, "open")
}

// IsClose reports whether the payload is a close element.
func IsClose(payload []byte) bool {
	return hasTag(payload, "close")
}

// IsStreamEnd reports whether the frame is the end of a classic stream.
func IsStreamEnd(frame []byte) bool {
	return string(bytes.TrimSpace(frame)) == StreamEnd
}

// hasTag reports whether b, ignoring leading whitespace, starts with the start
// tag of an element with the given unprefixed name.
func hasTag(b []byte, name string) bool {
	b = bytes.TrimLeft(b, " \t\r\n")
	if len(b) < len(name)+2 || b[0] != '<' || string(b[1:len(name)+1]) != name {
		return false
	}
	return isTagEnd(b[len(name)+1])
}

func isTagEnd(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '>', '/':
		return true
	}
	return false
}

const (
	streamTag  = "<stream:"
	streamDecl = `xmlns:stream=`
	streamAttr = ` xmlns:stream="` + ns.Stream + `"`
)

// InjectStreamNS adds a declaration of the stream prefix to frames that use
// it, such as <stream:features/> or <stream:error/>.
// Framed elements are standalone documents so the prefix must be declared on
// the element itself.
// The declaration is inserted right after the tag name.
//
// Frames that do not start with a stream prefixed tag, or that already declare
// the prefix in their start tag, are returned unchanged.
func InjectStreamNS(frame []byte) []byte {
	if !bytes.HasPrefix(frame, []byte(streamTag)) {
		return frame
	}
	nameEnd := len(streamTag)
	for nameEnd < len(frame) && !isTagEnd(frame[nameEnd]) {
		nameEnd++
	}
	tagEnd := bytes.IndexByte(frame, '>')
	if tagEnd < 0 {
		tagEnd = len(frame)
	}
	if bytes.Contains(frame[nameEnd:tagEnd], []byte(streamDecl)) {
		return frame
	}

	out := make([]byte, 0, len(frame)+len(streamAttr))
	out = append(out, frame[:nameEnd]...)
	out = append(out, streamAttr...)
	out = append(out, frame[nameEnd:]...)
	return out
}
