// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants that are used by the bridge and
// other internal packages.
package ns // import "mellium.im/wsbridge/internal/ns"

// List of commonly used namespaces.
const (
	Client  = "jabber:client"
	Server  = "jabber:server"
	Stream  = "http://etherx.jabber.org/streams"
	Streams = "urn:ietf:params:xml:ns:xmpp-streams"
	WS      = "urn:ietf:params:xml:ns:xmpp-framing"
	XML     = "http://www.w3.org/XML/1998/namespace"
)

// StreamPrefix is the prefix conventionally bound to the Stream namespace on
// the classic transport.
const StreamPrefix = "stream"
