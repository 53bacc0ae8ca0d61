// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package discover_test

import (
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"mellium.im/wsbridge/internal/discover"
)

var wsLink = discover.Link{Rel: "urn:xmpp:alt-connections:websocket", Href: "wss://web.example.com:443/ws"}

func TestUnmarshalWellKnownXML(t *testing.T) {
	hostMeta := []byte(`<XRD xmlns='http://docs.oasis-open.org/ns/xri/xrd-1.0'>
  <Link rel="urn:xmpp:alt-connections:websocket"
        href="wss://web.example.com:443/ws" />
</XRD>`)
	var xrd discover.XRD
	if err := xml.Unmarshal(hostMeta, &xrd); err != nil {
		t.Error(err)
	}
	switch {
	case len(xrd.Links) != 1:
		t.Errorf("Expected 1 link in xrd unmarshal output, but found %d", len(xrd.Links))
	case xrd.Links[0] != wsLink:
		t.Errorf("Expected %v, but got %v", wsLink, xrd.Links[0])
	}
}

func TestFallbackRecords(t *testing.T) {
	addrs := discover.FallbackRecords("example.net", 5222)
	if len(addrs) != 1 {
		t.Fatalf("wrong number of records: want=1, got=%d", len(addrs))
	}
	if addrs[0].Target != "example.net" || addrs[0].Port != 5222 {
		t.Errorf("wrong record: want=%s:%d, got=%s:%d", "example.net", 5222, addrs[0].Target, addrs[0].Port)
	}
}

var handlerTests = [...]struct {
	method string
	path   string
	code   int
	ctype  string
}{
	0: {method: http.MethodGet, path: discover.HostMetaXML, code: http.StatusOK, ctype: "application/xrd+xml"},
	1: {method: http.MethodGet, path: discover.HostMetaJSON, code: http.StatusOK, ctype: "application/json"},
	2: {method: http.MethodPost, path: discover.HostMetaXML, code: http.StatusMethodNotAllowed},
}

func TestHandler(t *testing.T) {
	want := discover.HostMeta(wsLink.Href)
	h := discover.Handler(want)
	for i, tc := range handlerTests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			if w.Code != tc.code {
				t.Fatalf("wrong status: want=%d, got=%d", tc.code, w.Code)
			}
			if tc.code != http.StatusOK {
				return
			}
			if ct := w.Header().Get("Content-Type"); ct != tc.ctype {
				t.Errorf("wrong content type: want=%q, got=%q", tc.ctype, ct)
			}
			var got discover.XRD
			var err error
			if tc.path == discover.HostMetaJSON {
				err = json.Unmarshal(w.Body.Bytes(), &got)
			} else {
				err = xml.Unmarshal(w.Body.Bytes(), &got)
			}
			if err != nil {
				t.Fatalf("error decoding host meta: %v", err)
			}
			if !reflect.DeepEqual(got.Links, want.Links) {
				t.Errorf("wrong links: want=%v, got=%v", want.Links, got.Links)
			}
		})
	}
}
