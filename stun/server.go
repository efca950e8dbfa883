// Package stun provides a minimal STUN binding server so local agents can gather server reflexive
// candidates without an external service.
package stun

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pion/stun/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	nberrors "github.com/netbirdio/iceagent/errors"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("stun: server closed")

// ErrNoListeners is returned by Serve when the server has no sockets.
var ErrNoListeners = errors.New("stun: no listeners configured")

const (
	maxMessageSize = 1500

	// DefaultResponseRate bounds the binding responses sent per second across all sockets.
	DefaultResponseRate  = rate.Limit(1000)
	DefaultResponseBurst = 100
)

// Server answers binding requests with the reflexive transport address of the sender.
type Server struct {
	conns    []net.PacketConn
	software string
	limiter  *rate.Limiter
	log      *log.Entry

	wg sync.WaitGroup
}

// Listen binds one UDP socket per address and returns a server for them. Already bound sockets are
// closed when a later address fails.
func Listen(addrs []string, software string) (*Server, error) {
	conns := make([]net.PacketConn, 0, len(addrs))
	for _, addr := range addrs {
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			return nil, fmt.Errorf("listen on %s: %w", addr, err)
		}
		conns = append(conns, conn)
	}
	return NewServer(conns, software), nil
}

// NewServer returns a server for sockets the caller bound. The server closes them on Shutdown.
func NewServer(conns []net.PacketConn, software string) *Server {
	return &Server{
		conns:    conns,
		software: software,
		limiter:  rate.NewLimiter(DefaultResponseRate, DefaultResponseBurst),
		log:      log.WithField("component", "stun"),
	}
}

// SetResponseRate changes how many binding responses per second the server sends. Requests over
// the limit are dropped. Call it before Serve.
func (s *Server) SetResponseRate(limit rate.Limit, burst int) {
	s.limiter = rate.NewLimiter(limit, burst)
}

// Addrs returns the local address of every socket.
func (s *Server) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(s.conns))
	for _, conn := range s.conns {
		addrs = append(addrs, conn.LocalAddr())
	}
	return addrs
}

// URLs returns a stun: URI per socket, suitable for the engine configuration. Wildcard addresses are
// reported as 127.0.0.1.
func (s *Server) URLs() []string {
	urls := make([]string, 0, len(s.conns))
	for _, addr := range s.Addrs() {
		udp, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		ip := udp.IP
		if ip == nil || ip.IsUnspecified() {
			ip = net.IPv4(127, 0, 0, 1)
		}
		urls = append(urls, "stun:"+net.JoinHostPort(ip.String(), fmt.Sprint(udp.Port)))
	}
	return urls
}

// Serve answers requests until Shutdown and then returns ErrServerClosed.
func (s *Server) Serve() error {
	if len(s.conns) == 0 {
		return ErrNoListeners
	}

	for _, conn := range s.conns {
		s.log.Infof("STUN server listening on %s", conn.LocalAddr())
		s.wg.Add(1)
		go s.readLoop(conn)
	}

	s.wg.Wait()
	return ErrServerClosed
}

func (s *Server) readLoop(conn net.PacketConn) {
	defer s.wg.Done()
	buf := make([]byte, maxMessageSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.log.Debugf("socket %s closed, stopping read loop", conn.LocalAddr())
				return
			}
			s.log.Warnf("failed to read STUN packet: %v", err)
			continue
		}

		udpAddr, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		s.handlePacket(conn, buf[:n], udpAddr)
	}
}

func (s *Server) handlePacket(conn net.PacketConn, data []byte, addr *net.UDPAddr) {
	if !stun.IsMessage(data) {
		s.log.Tracef("ignoring %d non STUN bytes from %s", len(data), addr)
		return
	}

	msg := &stun.Message{Raw: data}
	if err := msg.Decode(); err != nil {
		s.log.Debugf("failed to decode STUN message from %s: %v", addr, err)
		return
	}

	if msg.Type != stun.BindingRequest {
		s.log.Debugf("ignoring STUN %s from %s", msg.Type, addr)
		return
	}

	if !s.limiter.Allow() {
		s.log.Tracef("response rate exceeded, dropping binding request from %s", addr)
		return
	}

	response, err := s.bindingSuccess(msg.TransactionID, addr)
	if err != nil {
		s.log.Errorf("failed to build STUN response: %v", err)
		return
	}

	if _, err := conn.WriteTo(response.Raw, addr); err != nil {
		s.log.Debugf("failed to send STUN response to %s: %v", addr, err)
		return
	}
	s.log.Tracef("answered binding request from %s", addr)
}

func (s *Server) bindingSuccess(tx [stun.TransactionIDSize]byte, addr *net.UDPAddr) (*stun.Message, error) {
	setters := []stun.Setter{
		stun.NewTransactionIDSetter(tx),
		stun.BindingSuccess,
		&stun.XORMappedAddress{IP: addr.IP, Port: addr.Port},
	}
	if s.software != "" {
		setters = append(setters, stun.NewSoftware(s.software))
	}
	setters = append(setters, stun.Fingerprint)
	return stun.Build(setters...)
}

// Shutdown closes every socket and waits for the read loops to stop.
func (s *Server) Shutdown() error {
	var merr *multierror.Error
	for _, conn := range s.conns {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			merr = multierror.Append(merr, fmt.Errorf("close STUN socket: %w", err))
		}
	}

	s.wg.Wait()
	return nberrors.FormatErrorOrNil(merr)
}
