// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wsbridge

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	xwebsocket "golang.org/x/net/websocket"

	"mellium.im/wsbridge/frame"
	"mellium.im/wsbridge/internal/discover"
	"mellium.im/wsbridge/websocket"
)

// Errors returned from the WebSocket handshake.
// Both result in a 403 Forbidden response.
var (
	ErrNoSubprotocol = errors.New("wsbridge: client does not support the xmpp subprotocol")
	ErrBadOrigin     = errors.New("wsbridge: origin not allowed")
)

// wsConn adapts a WebSocket connection to the ClientConn interface.
type wsConn struct {
	*xwebsocket.Conn
}

// ReadFrame returns the payload of the next text or binary message.
func (c wsConn) ReadFrame() ([]byte, error) {
	var p []byte
	err := xwebsocket.Message.Receive(c.Conn, &p)
	if errors.Is(err, xwebsocket.ErrFrameTooLarge) {
		return nil, fmt.Errorf("%w: %v", frame.FrameTooLarge, err)
	}
	return p, err
}

// WriteFrame sends p as a text message.
func (c wsConn) WriteFrame(p []byte) error {
	return xwebsocket.Message.Send(c.Conn, string(p))
}

// handshake selects the xmpp subprotocol and checks the origin.
func handshake(cfg Config) func(*xwebsocket.Config, *http.Request) error {
	return func(c *xwebsocket.Config, r *http.Request) error {
		if len(cfg.AllowedOrigins) > 0 && !originAllowed(cfg.AllowedOrigins, r.Header.Get("Origin")) {
			return ErrBadOrigin
		}
		for _, p := range c.Protocol {
			if p == websocket.WSProtocol {
				c.Protocol = []string{websocket.WSProtocol}
				return nil
			}
		}
		return ErrNoSubprotocol
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || (origin != "" && o == origin) {
			return true
		}
	}
	return false
}

// Handler returns an HTTP handler that upgrades requests to WebSocket
// connections using the xmpp subprotocol and bridges each of them to the
// server named in cfg.
//
// Sessions end when the request context is canceled, which can be arranged
// for all sessions at once with http.Server.BaseContext.
func Handler(cfg Config, logger *slog.Logger, m *Metrics) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return xwebsocket.Server{
		Handshake: handshake(cfg),
		Handler: func(conn *xwebsocket.Conn) {
			conn.PayloadType = xwebsocket.TextFrame
			conn.MaxPayloadBytes = cfg.MaxFrameSize

			r := conn.Request()
			s := NewSession(wsConn{Conn: conn}, cfg, logger.With("remote", r.RemoteAddr), m)
			s.logger.Info("session started")
			err := s.Serve(r.Context())
			if err != nil {
				s.logger.Error("session failed", "err", err)
				return
			}
			s.logger.Info("session ended")
		},
	}
}

// Mux returns an HTTP handler that serves the bridge at cfg.Path.
// If cfg.PublicURL is set the Web Host Metadata documents advertising it are
// also served.
func Mux(cfg Config, logger *slog.Logger, m *Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, Handler(cfg, logger, m))
	if cfg.PublicURL != "" {
		hostMeta := discover.Handler(discover.HostMeta(cfg.PublicURL))
		mux.Handle(discover.HostMetaXML, hostMeta)
		mux.Handle(discover.HostMetaJSON, hostMeta)
	}
	return mux
}
