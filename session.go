// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wsbridge

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"mellium.im/xmlstream"

	"mellium.im/wsbridge/frame"
	"mellium.im/wsbridge/internal/decl"
	"mellium.im/wsbridge/internal/ns"
	"mellium.im/wsbridge/stream"
	"mellium.im/wsbridge/websocket"
)

const minReadSize = 4096

// readSize returns the size of reads from the server.
// Reads must be large enough for a frame of maxFrame bytes to arrive within
// discardAfter reads, otherwise the decoder drops it as stale.
func readSize(maxFrame, discardAfter int) int {
	if maxFrame <= 0 {
		maxFrame = frame.DefaultMaxSize
	}
	if discardAfter == 0 {
		discardAfter = frame.DefaultDiscardAfter
	}
	if discardAfter < 0 {
		return minReadSize
	}
	if n := maxFrame/discardAfter + 1; n > minReadSize {
		return n
	}
	return minReadSize
}

// ClientConn is the WebSocket side of a session.
// Each call to ReadFrame returns the payload of one WebSocket message and each
// call to WriteFrame sends one.
//
// ReadFrame should return an error that wraps io.EOF when the client closed the
// connection normally, and one that wraps frame.FrameTooLarge when a message
// was too big to be accepted.
type ClientConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame([]byte) error
	Close() error
}

// DialFunc connects to the upstream server.
type DialFunc func(ctx context.Context) (net.Conn, error)

var errShutdown = errors.New("wsbridge: shutting down")

// Session pairs a client connection with a connection to the upstream server.
//
// All state is owned by a single goroutine started by Serve.
// Reads from both connections and the upstream dial happen on their own
// goroutines and are handed to it as events.
type Session struct {
	id      string
	client  ClientConn
	dial    DialFunc
	addr    string
	logger  *slog.Logger
	metrics *Metrics

	maxPending   int
	readSize     int
	rewriteClose bool
	state      atomic.Int32
	events     chan interface{}
	done       chan struct{}

	// Only used by the event loop.
	upstream      net.Conn
	upstreamEnded bool
	pending       *pendingWrites
	decoder       frame.Decoder
	buf           bytes.Buffer
	started       bool
	clientInfo    stream.Info
}

// Events handed to the event loop.
type (
	clientFrame []byte
	clientErr   struct{ err error }
	dialResult  struct {
		conn net.Conn
		err  error
	}
	serverData []byte
	serverErr  struct{ err error }
)

// NewSession returns a session that bridges client to the server named in cfg.
// If logger is nil slog.Default is used, m may be nil.
func NewSession(client ClientConn, cfg Config, logger *slog.Logger, m *Metrics) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dialer{
		Dialer:    net.Dialer{Timeout: cfg.DialTimeout},
		LookupSRV: cfg.LookupSRV,
	}
	s := &Session{
		id:     uuid.NewString(),
		client: client,
		dial: func(ctx context.Context) (net.Conn, error) {
			return d.Dial(ctx, cfg.Target, cfg.TargetPort)
		},
		addr:         cfg.TargetAddr(),
		metrics:      m,
		maxPending:   cfg.MaxFrameSize,
		readSize:     readSize(cfg.MaxFrameSize, cfg.DiscardAfter),
		rewriteClose: cfg.RewriteClose,
		events:       make(chan interface{}),
		done:         make(chan struct{}),
		pending:      newPendingWrites(),
		decoder:      cfg.decoder(),
	}
	if s.maxPending <= 0 {
		s.maxPending = frame.DefaultMaxSize
	}
	s.logger = logger.With("session", s.id, "target", s.addr)
	return s
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state of the session.
// It is safe to call from any goroutine.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	old := State(s.state.Swap(int32(st)))
	if old != st {
		s.logger.Debug("state changed", "from", old, "to", st)
	}
}

// Done returns a channel that is closed when the session has ended and both
// connections are closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Serve starts connecting to the upstream server and translates between the
// two connections until either of them is closed or ctx is canceled.
// Serve must only be called once.
//
// When Serve returns both connections are closed.
// If the session ended because one side closed its connection normally, or
// because ctx was canceled, the error is nil.
func (s *Session) Serve(ctx context.Context) error {
	s.metrics.sessionStarted()
	defer s.metrics.sessionEnded()

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.setState(Connecting)
	go s.connect(dialCtx)
	go s.readClient()

	var err error
	for err == nil {
		select {
		case ev := <-s.events:
			err = s.handle(ev)
		case <-ctx.Done():
			err = s.shutdown()
		}
	}
	cancel()
	s.teardown()
	close(s.done)

	switch {
	case errors.Is(err, io.EOF):
		s.logger.Debug("session closed")
		return nil
	case errors.Is(err, errShutdown):
		s.metrics.error(err)
		s.logger.Debug("session closed by shutdown")
		return nil
	}
	s.metrics.error(err)
	return err
}

// post hands an event to the event loop.
// It reports false if the session has already ended.
func (s *Session) post(ev interface{}) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) connect(ctx context.Context) {
	s.logger.Debug("connecting upstream")
	start := time.Now()
	conn, err := s.dial(ctx)
	s.metrics.dialed(start)
	if !s.post(dialResult{conn: conn, err: err}) && conn != nil {
		/* #nosec */
		conn.Close()
	}
}

func (s *Session) readClient() {
	for {
		p, err := s.client.ReadFrame()
		if err != nil {
			s.post(clientErr{err: err})
			return
		}
		if !s.post(clientFrame(p)) {
			return
		}
	}
}

func (s *Session) readServer(conn net.Conn) {
	buf := make([]byte, s.readSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			if !s.post(serverData(b)) {
				return
			}
		}
		if err != nil {
			s.post(serverErr{err: err})
			return
		}
	}
}

func (s *Session) handle(ev interface{}) error {
	switch ev := ev.(type) {
	case clientFrame:
		return s.fromClient(ev)
	case clientErr:
		return s.clientClosed(ev.err)
	case dialResult:
		return s.connected(ev.conn, ev.err)
	case serverData:
		return s.fromServer(ev)
	case serverErr:
		return s.serverClosed(ev.err)
	}
	panic(fmt.Sprintf("wsbridge: unknown session event %T", ev))
}

func (s *Session) connected(conn net.Conn, err error) error {
	if err != nil {
		s.sendStreamError(stream.RemoteConnectionFailed, "")
		return &ConnectError{Addr: s.addr, Err: err}
	}
	s.upstream = conn
	s.setState(StreamNotOpened)
	s.logger.Debug("connected upstream", "local", conn.LocalAddr().String(), "pending", s.pending.Len())
	if err := s.pending.flush(conn); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	go s.readServer(conn)
	return nil
}

// fromClient translates a message from the client and writes it upstream.
func (s *Session) fromClient(p []byte) error {
	s.metrics.bytes(FromClient, len(p))
	s.metrics.frame(FromClient)

	switch {
	case websocket.IsOpen(p):
		out, err := websocket.FromOpen(p)
		if err != nil {
			err = &ProtocolMismatch{Err: err}
			s.metrics.error(err)
			s.logger.Warn("dropping client message", "err", err)
			return nil
		}
		info, err := websocket.Info(p)
		if err != nil {
			s.logger.Warn("invalid stream header from client", "err", err)
		}
		s.clientInfo = info
		s.logger.Debug("client opened stream",
			"to", info.To,
			"version", info.Version.String(),
			"lang", info.Lang.String(),
		)

		// A new stream is starting, either the first one or a restart after
		// authentication, so the next server frame is a stream header.
		s.started = false
		s.decoder.Reset()
		if st := s.State(); st == StreamOpen || st == StreamClosed {
			s.setState(StreamNotOpened)
		}
		return s.write(out)
	case s.rewriteClose && websocket.IsClose(p):
		s.logger.Debug("client closed stream")
		s.upstreamEnded = true
		return s.write([]byte(websocket.StreamEnd))
	}
	return s.write(p)
}

// write sends p upstream, or queues it if the connection is not established.
func (s *Session) write(p []byte) error {
	if s.upstream == nil {
		if s.pending.Size()+len(p) > s.maxPending {
			s.sendStreamError(stream.PolicyViolation, "too much data sent before the server connection was established")
			return fmt.Errorf("wsbridge: queueing client data: %w", frame.FrameTooLarge)
		}
		s.pending.push(p)
		return nil
	}
	if _, err := s.upstream.Write(p); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// fromServer extracts every complete frame from the data received so far.
func (s *Session) fromServer(data []byte) error {
	s.metrics.bytes(FromServer, len(data))
	s.buf.Write(data)

	var skipped int
	defer func() {
		if skipped > 0 {
			s.metrics.error(frame.ContentBeforeStart)
			s.logger.Warn("skipped data before frame", "bytes", skipped)
		}
	}()
	for s.buf.Len() > 0 {
		f, err := s.decoder.Decode(&s.buf, s.started)
		switch {
		case errors.Is(err, frame.ContentBeforeStart):
			skipped++
			continue
		case errors.Is(err, frame.ErrStale):
			s.metrics.error(err)
			s.logger.Warn("discarded incomplete data from server", "err", err)
			return nil
		case err != nil:
			s.sendStreamError(stream.PolicyViolation, "server frame too large")
			return err
		}
		if f == nil {
			return nil
		}
		if err = s.fromServerFrame(f); err != nil {
			return err
		}
	}
	return nil
}

var streamErrorTag = []byte("<" + ns.StreamPrefix + ":error")

// fromServerFrame translates one frame from the server and sends it to the
// client.
func (s *Session) fromServerFrame(f []byte) error {
	s.metrics.frame(FromServer)

	if websocket.IsStreamEnd(f) {
		s.logger.Debug("server closed stream")
		s.started = false
		s.setState(StreamClosed)
		return s.send([]byte(websocket.Close))
	}

	if !s.started {
		out, err := websocket.ToOpen(f)
		switch {
		case errors.Is(err, websocket.ErrNoElement):
			s.logger.Debug("dropping frame before stream header", "frame", string(f))
			return nil
		case err != nil:
			err = &ProtocolMismatch{Err: err}
			s.metrics.error(err)
			s.logger.Warn("dropping server frame", "err", err)
			return nil
		}
		info, err := websocket.Info(f)
		switch {
		case err != nil:
			s.logger.Warn("invalid stream header from server", "err", err)
		case info.Version.Less(stream.DefaultVersion):
			s.logger.Warn("server stream version is older than the one spoken by WebSocket clients",
				"version", info.Version.String(),
			)
		}
		s.logger.Debug("server opened stream",
			"id", info.ID,
			"from", info.From,
			"version", info.Version.String(),
		)
		s.started = true
		s.setState(StreamOpen)
		return s.send(out)
	}

	out := decl.Strip(f)
	if len(bytes.TrimSpace(out)) == 0 {
		return nil
	}
	out = websocket.InjectStreamNS(out)
	if bytes.HasPrefix(out, streamErrorTag) {
		s.logStreamError(f)
	}
	return s.send(out)
}

func (s *Session) logStreamError(f []byte) {
	var se stream.Error
	d := xml.NewTokenDecoder(decl.Skip(xml.NewDecoder(bytes.NewReader(f))))
	if err := d.Decode(&se); err != nil {
		s.logger.Warn("server sent malformed stream error", "err", err)
		return
	}
	s.logger.Warn("server sent stream error", "condition", se.Err)
}

// send writes a frame to the client.
func (s *Session) send(p []byte) error {
	if err := s.client.WriteFrame(p); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// sendStreamError tells the client that the stream is about to end because of
// e and closes the stream.
// If text is not empty it is sent as the descriptive text of the error.
// If the client has not received a stream header yet one is sent first.
// Errors are ignored since the session is ending anyway.
func (s *Session) sendStreamError(e stream.Error, text string) {
	s.logger.Debug("sending stream error", "condition", e.Err)
	if !s.started {
		version, err := stream.DefaultVersion.MarshalXMLAttr(xml.Name{Local: "version"})
		if err != nil {
			return
		}
		attrs := []xml.Attr{version}
		if s.clientInfo.To != "" {
			attrs = append([]xml.Attr{{Name: xml.Name{Local: "from"}, Value: s.clientInfo.To}}, attrs...)
		}
		if s.client.WriteFrame(websocket.Open(attrs...)) != nil {
			return
		}
		s.started = true
	}

	var payload xml.TokenReader
	if text != "" {
		payload = stream.Text(text)
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	_, err := xmlstream.Copy(enc, e.TokenReader(payload))
	if err == nil {
		err = enc.Flush()
	}
	if err == nil {
		if s.client.WriteFrame(buf.Bytes()) != nil {
			return
		}
	}
	/* #nosec */
	s.client.WriteFrame([]byte(websocket.Close))
	s.started = false
	s.setState(StreamClosed)
}

func (s *Session) clientClosed(err error) error {
	switch {
	case errors.Is(err, frame.FrameTooLarge):
		s.sendStreamError(stream.PolicyViolation, "client message too large")
		return err
	case errors.Is(err, io.EOF):
		s.logger.Debug("client disconnected")
		s.endUpstream()
		return io.EOF
	}
	s.endUpstream()
	return &TransportError{Op: "read client", Err: err}
}

func (s *Session) serverClosed(err error) error {
	if s.State() != StreamClosed {
		/* #nosec */
		s.client.WriteFrame([]byte(websocket.Close))
	}
	if errors.Is(err, io.EOF) {
		s.logger.Debug("server disconnected")
		return io.EOF
	}
	return &TransportError{Op: "read server", Err: err}
}

func (s *Session) shutdown() error {
	s.sendStreamError(stream.SystemShutdown, "")
	s.endUpstream()
	return errShutdown
}

// endUpstream closes the upstream stream if it is still open.
func (s *Session) endUpstream() {
	if s.upstream == nil || s.upstreamEnded {
		return
	}
	s.upstreamEnded = true
	/* #nosec */
	s.upstream.Write([]byte(websocket.StreamEnd))
}

// teardown closes both connections.
func (s *Session) teardown() {
	s.setState(Disconnected)
	if s.upstream != nil {
		if err := s.upstream.Close(); err != nil {
			s.logger.Debug("error closing upstream connection", "err", err)
		}
	}
	if err := s.client.Close(); err != nil {
		s.logger.Debug("error closing client connection", "err", err)
	}
	s.pending.reset()
}
