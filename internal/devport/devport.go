// Package devport runs an optional QUIC listener that streams
// newly-produced diagnostic batches to a connected tool (e.g. an editor
// plugin), one unidirectional stream per compile. Grounded on the
// teacher's internal/runtime/netstack QUIC usage (http3.go) and its
// cmd/gdb-rsp-server / cmd/orizon-lsp pattern of exposing compiler
// internals over a socket — here over a raw QUIC listener rather than
// HTTP/3, since a dev port pushes batches rather than answering requests.
package devport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/nyashlang/nyashc/internal/diag"
	quic "github.com/quic-go/quic-go"
)

// Server accepts QUIC connections from diagnostic-consuming tools and
// pushes one JSON-encoded Diagnostic batch per compile to every connected
// client. Multiplexing more than one compile at a time is out of scope
// (SPEC_FULL.md §4.12): Publish blocks until the current batch has been
// sent to all currently-connected clients.
type Server struct {
	ln      *quic.Listener
	conns   chan *quic.Conn
	closeCh chan struct{}
}

// Listen binds a QUIC listener on addr (e.g. "127.0.0.1:0") with an
// ephemeral self-signed certificate.
func Listen(addr string) (*Server, error) {
	tlsConf, err := selfSignedTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("devport: generate TLS config: %w", err)
	}

	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("devport: listen %s: %w", addr, err)
	}

	ln, err := quic.Listen(pc, tlsConf, &quic.Config{})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("devport: quic listen: %w", err)
	}

	s := &Server{ln: ln, conns: make(chan *quic.Conn, 8), closeCh: make(chan struct{})}
	go s.acceptLoop()
	return s, nil
}

// Addr returns the bound local address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept(context.Background())
		if err != nil {
			return
		}
		select {
		case s.conns <- conn:
		case <-s.closeCh:
			conn.CloseWithError(0, "devport shutting down")
			return
		}
	}
}

// Batch is one compile's diagnostic output, serialized as JSON.
type Batch struct {
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

// Publish streams a diagnostic batch to every client connected so far, as
// a single unidirectional QUIC stream per client.
func (s *Server) Publish(ctx context.Context, batch Batch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("devport: marshal batch: %w", err)
	}

	clients := s.drainConns()
	for _, conn := range clients {
		str, err := conn.OpenUniStreamSync(ctx)
		if err != nil {
			continue // a client that dropped mid-compile doesn't fail the publish.
		}
		if _, err := str.Write(payload); err != nil {
			str.Close()
			continue
		}
		str.Close()
	}
	// Connected clients remain available for the next Publish call.
	for _, conn := range clients {
		s.conns <- conn
	}
	return nil
}

func (s *Server) drainConns() []*quic.Conn {
	var out []*quic.Conn
	for {
		select {
		case c := <-s.conns:
			out = append(out, c)
		default:
			return out
		}
	}
}

// Close shuts down the listener and all tracked connections.
func (s *Server) Close() error {
	close(s.closeCh)
	for _, conn := range s.drainConns() {
		conn.CloseWithError(0, "devport shutting down")
	}
	return s.ln.Close()
}
