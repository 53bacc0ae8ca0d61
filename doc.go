// Copyright 2014 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package wsbridge lets XMPP clients that only speak the WebSocket subprotocol
// defined in RFC 7395 talk to servers that only expose the classic TCP
// transport defined in RFC 6120.
//
// Each WebSocket connection is paired with a TCP connection to the upstream
// server by a Session.
// Messages from the client are complete elements and are written to the
// server after the stream header and footer have been translated.
// Data from the server is one long XML document which is cut into top level
// elements by a frame.Decoder before being translated and sent to the client
// as individual WebSocket messages.
//
// The bridge does not parse stanzas or take part in stream negotiation.
// Authentication, resource binding, and everything else are performed by the
// client and server over the bridge.
package wsbridge // import "mellium.im/wsbridge"
