// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wsbridge

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/idna"

	"mellium.im/wsbridge/internal/discover"
)

// A Dialer contains options for connecting to the upstream server.
//
// The zero value for each field is equivalent to dialing without that option.
type Dialer struct {
	net.Dialer

	// Resolver allows you to change options related to resolving DNS.
	Resolver *net.Resolver

	// LookupSRV makes the dialer look up SRV records for the host and try them
	// in order before the host itself.
	LookupSRV bool
}

// Dial connects to the upstream server at host on the given port.
// Internationalized host names are converted to their ASCII form first.
//
// If the context expires before the connection is complete, an error is
// returned. Once successfully connected, any expiration of the context will not
// affect the connection.
func (d *Dialer) Dial(ctx context.Context, host string, port int) (net.Conn, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("wsbridge: invalid port %d", port)
	}
	host, err := normalizeHost(host)
	if err != nil {
		return nil, err
	}

	addrs := discover.FallbackRecords(host, uint16(port))
	if d.LookupSRV && net.ParseIP(host) == nil {
		addrs, err = discover.LookupService(ctx, d.Resolver, host, uint16(port))
		if err != nil {
			return nil, err
		}
	}

	// Try dialing all of the records we know about, breaking as soon as the
	// connection is established.
	for _, addr := range addrs {
		var c net.Conn
		c, err = d.DialContext(ctx, "tcp", net.JoinHostPort(
			addr.Target,
			strconv.FormatUint(uint64(addr.Port), 10),
		))
		if err != nil {
			continue
		}
		return c, nil
	}
	return nil, err
}

// normalizeHost converts a host name to the form used in DNS lookups.
// IP addresses are returned unchanged.
func normalizeHost(host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("wsbridge: invalid host %q: %w", host, err)
	}
	return ascii, nil
}
