// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package websocket translates between the framing used by the WebSocket
// subprotocol for XMPP defined in RFC 7395 and the classic stream framing
// defined in RFC 6120.
//
// On the classic transport a session is a single XML document that is opened
// with a <stream:stream> start tag and closed with </stream:stream>.
// On the WebSocket transport every message is a complete XML element and the
// stream is opened and closed with <open/> and <close/> elements.
//
// The functions in this package operate on individual frames as extracted by
// the frame package and never parse more than the opening tag of a frame.
package websocket // import "mellium.im/wsbridge/websocket"

// Various constants used by this package, provided as a convenience.
const (
	// NS is the XML namespace used by the XMPP subprotocol framing.
	NS = "urn:ietf:params:xml:ns:xmpp-framing"

	// WSProtocol is the protocol string used during the WebSocket handshake.
	WSProtocol = "xmpp"
)
