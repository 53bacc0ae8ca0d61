// Copyright 2019 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stream contains the XMPP stream errors defined by RFC 6120 §4.9 and
// the metadata carried by stream headers, in both the classic form
// (<stream:stream>) and the WebSocket form (<open/>).
//
// The bridge does not take part in stream negotiation, it only inspects stream
// headers and errors for logging and sends an error of its own when it cannot
// reach the upstream server.
package stream // import "mellium.im/wsbridge/stream"

import (
	"mellium.im/wsbridge/internal/ns"
)

// Namespaces used by XMPP streams and stream errors, provided as a convenience.
const (
	NS      = ns.Stream
	ErrorNS = ns.Streams
)
