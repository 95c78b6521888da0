// Package transport moves raw packets to a single LED device over UDP.
//
// The device listens on a fixed host:port and never acknowledges razer
// traffic; the only feedback at this layer is whether the send itself
// succeeded. A Session is an explicit handle; there is exactly one
// physical device behind it, so callers own serialization. Nothing here
// retries: transient failures are surfaced as typed errors and the
// caller (the prober) decides what a failed trial means.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"lumiprobe/internal/logging"
	"lumiprobe/internal/protocol"
)

// ErrorKind discriminates transport failures.
type ErrorKind int

const (
	// Timeout: the send did not complete within the write deadline.
	// A hung device is not a device that said no.
	Timeout ErrorKind = iota
	// ConnectionRefused: the endpoint actively refused (ICMP port
	// unreachable surfaced on a connected UDP socket).
	ConnectionRefused
	// SendFailed: any other I/O failure.
	SendFailed
)

func (k ErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case ConnectionRefused:
		return "connection refused"
	default:
		return "send failed"
	}
}

// TransportError wraps a failed exchange with the device.
type TransportError struct {
	Kind ErrorKind
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Config holds the device endpoint settings.
type Config struct {
	// Host is the device IPv4 address.
	Host string
	// Port is the device control port.
	Port int
	// WriteTimeout bounds each send.
	WriteTimeout time.Duration
}

// Session is an open connection to one device. Methods are safe to call
// sequentially; concurrent sends against one physical device corrupt
// its state and are the caller's bug, not ours.
type Session struct {
	conn   *net.UDPConn
	addr   string
	cfg    Config
	logger *logging.Logger
}

// Open connects a UDP socket to the device endpoint. Using a connected
// socket (rather than WriteTo) lets the kernel surface ICMP
// port-unreachable as ECONNREFUSED on later writes.
func Open(ctx context.Context, cfg Config, logger *logging.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.Default()
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, &TransportError{Kind: SendFailed, Addr: addr, Err: err}
	}

	conn, err := net.DialUDP("udp4", nil, udpAddr)
	if err != nil {
		return nil, classify(addr, err)
	}

	logger.Debug("device session opened", "addr", addr)
	return &Session{conn: conn, addr: addr, cfg: cfg, logger: logger}, nil
}

// Addr returns the remote endpoint as host:port.
func (s *Session) Addr() string {
	return s.addr
}

// Send writes one wire packet to the device. The returned boolean
// reports whether the device accepted the packet as far as this layer
// can tell; acceptance never implies the device rendered it correctly.
func (s *Session) Send(ctx context.Context, payload []byte) (accepted bool, err error) {
	deadline := time.Now().Add(s.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return false, classify(s.addr, err)
	}

	if _, err := s.conn.Write(payload); err != nil {
		s.logger.Warn("send failed", "addr", s.addr, "bytes", len(payload), "err", err)
		return false, classify(s.addr, err)
	}

	// UDP razer traffic is fire-and-forget; the device never NAKs at
	// this layer. Transports that do get explicit rejections report
	// them as accepted=false with a nil error.
	return true, nil
}

// SetRazerMode switches the device's razer streaming mode on or off.
func (s *Session) SetRazerMode(ctx context.Context, on bool) error {
	pkt, err := protocol.RazerModePacket(on)
	if err != nil {
		return err
	}
	if _, err := s.Send(ctx, pkt); err != nil {
		return err
	}
	s.logger.Info("razer mode switched", "addr", s.addr, "on", on)
	return nil
}

// Close releases the socket.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// classify maps an I/O error onto the transport taxonomy.
func classify(addr string, err error) *TransportError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: Timeout, Addr: addr, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &TransportError{Kind: ConnectionRefused, Addr: addr, Err: err}
	}
	return &TransportError{Kind: SendFailed, Addr: addr, Err: err}
}
