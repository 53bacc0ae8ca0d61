// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package discover is used to look up and advertise XMPP services.
package discover // import "mellium.im/wsbridge/internal/discover"

import (
	"context"
	"errors"
	"net"
)

// Service is the SRV service name for client-to-server connections without
// implicit TLS.
const Service = "xmpp-client"

// ErrNoService is returned when the SRV records of a domain state that the
// service is not available there.
var ErrNoService = errors.New("discover: service is not available at the domain")

func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	ok := errors.As(err, &dnsErr)
	return ok && dnsErr.IsNotFound
}

// FallbackRecords returns a fake SRV record that can be used if no actual SRV
// records can be found but we believe that an XMPP service exists at the given
// domain and port.
func FallbackRecords(domain string, port uint16) []*net.SRV {
	return []*net.SRV{{
		Target: domain,
		Port:   port,
	}}
}

// LookupService looks for the client service hosted at domain.
// It returns addresses from SRV records ordered by priority and weight, and if
// none exist it returns a single fallback record for the domain itself and the
// given port.
// If the target of the only record is "." ErrNoService is returned.
func LookupService(ctx context.Context, resolver *net.Resolver, domain string, port uint16) ([]*net.SRV, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	_, addrs, err := resolver.LookupSRV(ctx, Service, "tcp", domain)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		return FallbackRecords(domain, port), nil
	}

	// RFC 6120 §3.2.1
	//    3.  If a response is received, it will contain one or more
	//        combinations of a port and FDQN, each of which is weighted and
	//        prioritized as described in [DNS-SRV].  (However, if the result
	//        of the SRV lookup is a single resource record with a Target of
	//        ".", i.e., the root domain, then the initiating entity MUST abort
	//        SRV processing at this point because according to [DNS-SRV] such
	//        a Target "means that the service is decidedly not available at
	//        this domain".)
	if len(addrs) == 1 && addrs[0].Target == "." {
		return nil, ErrNoService
	}
	if len(addrs) == 0 {
		return FallbackRecords(domain, port), nil
	}
	return addrs, nil
}
