// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package discover

import (
	"encoding/json"
	"encoding/xml"
	"net/http"
	"strings"
)

// Paths of the Web Host Metadata documents.
const (
	HostMetaXML  = "/.well-known/host-meta"
	HostMetaJSON = "/.well-known/host-meta.json"
)

// WebSocketRel is the link relation used to advertise XMPP WebSocket
// endpoints as defined by RFC 7395 §4.
const WebSocketRel = "urn:xmpp:alt-connections:websocket"

// XRD represents an Extensible Resource Descriptor document of the form:
//
//	<?xml version='1.0' encoding=utf-8'?>
//	<XRD xmlns='http://docs.oasis-open.org/ns/xri/xrd-1.0'>
//	  …
//	  <Link rel="urn:xmpp:alt-connections:websocket"
//	        href="wss://web.example.com:443/ws" />
//	  …
//	</XRD>
//
// as defined by RFC 6415 and OASIS.XRD-1.0.
type XRD struct {
	XMLName xml.Name `xml:"http://docs.oasis-open.org/ns/xri/xrd-1.0 XRD" json:"-"`
	Links   []Link   `xml:"Link" json:"links"`
}

// Link is an individual hyperlink in an XRD document.
type Link struct {
	Rel  string `xml:"rel,attr" json:"rel"`
	Href string `xml:"href,attr" json:"href"`
}

// HostMeta returns a document that advertises the given WebSocket endpoints.
func HostMeta(urls ...string) XRD {
	xrd := XRD{}
	for _, u := range urls {
		xrd.Links = append(xrd.Links, Link{Rel: WebSocketRel, Href: u})
	}
	return xrd
}

// Handler serves the host metadata document in XML, or in JSON if the request
// path ends in ".json".
func Handler(xrd XRD) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if strings.HasSuffix(r.URL.Path, ".json") {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(xrd)
			return
		}
		w.Header().Set("Content-Type", "application/xrd+xml")
		_, _ = w.Write([]byte(xml.Header))
		_ = xml.NewEncoder(w).Encode(xrd)
	})
}
