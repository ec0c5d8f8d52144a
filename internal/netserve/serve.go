// Package netserve runs an http.Handler over TCP and, optionally, HTTP/3.
package netserve

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/quic-go/quic-go/http3"
)

// Config describes the listeners.
type Config struct {
	Addr string
	// TLS enables HTTPS; nil serves plain HTTP.
	TLS *tls.Config
	// H3 also serves HTTP/3 on the same port over UDP. Requires TLS.
	H3 bool
	// Challenge, when set, is served on ChallengeAddr (":80" by default)
	// for ACME HTTP-01 validation.
	Challenge     http.Handler
	ChallengeAddr string
	// ShutdownTimeout bounds graceful shutdown; zero means five seconds.
	ShutdownTimeout time.Duration
}

// Server owns bound listeners until Serve returns.
type Server struct {
	cfg       Config
	log       *log.Logger
	tcp       net.Listener
	udp       net.PacketConn
	http      *http.Server
	h3        *http3.Server
	challenge *http.Server
}

// Listen binds the configured sockets without serving yet.
func Listen(cfg Config, h http.Handler, logger *log.Logger) (*Server, error) {
	if cfg.H3 && cfg.TLS == nil {
		return nil, ErrMissingTLS
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	tcp, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, log: logger, tcp: tcp}

	if cfg.H3 {
		// Same port as TCP so Alt-Svc can advertise it.
		host, _, _ := net.SplitHostPort(cfg.Addr)
		port := tcp.Addr().(*net.TCPAddr).Port
		udp, err := net.ListenPacket("udp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			_ = tcp.Close()
			return nil, err
		}
		s.udp = udp
		s.h3 = &http3.Server{Handler: h, TLSConfig: cfg.TLS}
		h = s.altSvc(h)
	}
	s.http = &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second, ErrorLog: logger}
	if cfg.TLS != nil {
		s.tcp = tls.NewListener(tcp, cfg.TLS)
	}
	if cfg.Challenge != nil {
		addr := cfg.ChallengeAddr
		if addr == "" {
			addr = ":80"
		}
		s.challenge = &http.Server{Addr: addr, Handler: cfg.Challenge, ReadHeaderTimeout: 10 * time.Second}
	}
	return s, nil
}

func (s *Server) altSvc(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.h3.SetQUICHeaders(w.Header())
		next.ServeHTTP(w, r)
	})
}

// Addr is the bound TCP address.
func (s *Server) Addr() net.Addr { return s.tcp.Addr() }

// PacketAddr is the bound UDP address, or nil without HTTP/3.
func (s *Server) PacketAddr() net.Addr {
	if s.udp == nil {
		return nil
	}
	return s.udp.LocalAddr()
}

// Serve blocks until ctx is done or a listener fails, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	errc := make(chan error, 3)
	go func() { errc <- s.http.Serve(s.tcp) }()
	if s.h3 != nil {
		go func() { errc <- s.h3.Serve(s.udp) }()
	}
	if s.challenge != nil {
		go func() { errc <- s.challenge.ListenAndServe() }()
	}
	s.logf("netserve: listening on %s (tls=%t h3=%t)", s.Addr(), s.cfg.TLS != nil, s.h3 != nil)

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errc:
		_ = s.shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(ctx)
	if s.challenge != nil {
		_ = s.challenge.Shutdown(ctx)
	}
	if s.h3 != nil {
		_ = s.h3.Close()
		_ = s.udp.Close()
	}
	s.logf("netserve: stopped")
	return err
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
