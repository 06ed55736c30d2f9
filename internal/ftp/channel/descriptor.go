package channel

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// Descriptor is a negotiated-but-not-yet-used data channel. Exactly two
// implementations exist: Active (server dials a client-given address)
// and Passive (client dials a registry-leased listener).
//
// A descriptor is single-use: Open materializes the data socket at most
// once, and Close must be called afterwards whether or not the transfer
// succeeded (Open of a Passive releases the leased port itself; Close is
// the safety net for descriptors that were replaced or never used).
type Descriptor interface {
	// Open materializes the connected data socket, bounded by timeout.
	Open(timeout time.Duration) (net.Conn, error)

	// Close tears down any resources still held (passive listener,
	// leased port). Safe to call multiple times.
	Close() error

	// Mode returns "active" or "passive" for logging.
	Mode() string

	// Addr returns the negotiated address (PORT target or leased
	// listener address).
	Addr() string
}

// Active dials out to the address the client supplied via PORT.
type Active struct {
	target string
}

// NewActive creates an active-mode descriptor for a validated target
// address. Validation (peer match, port floor) is the PORT handler's job.
func NewActive(target string) *Active {
	return &Active{target: target}
}

func (a *Active) Open(timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", a.target, timeout)
	if err != nil {
		return nil, fmt.Errorf("dialing data target %s: %w", a.target, err)
	}
	return conn, nil
}

func (a *Active) Close() error { return nil }

func (a *Active) Mode() string { return "active" }

func (a *Active) Addr() string { return a.target }

// Passive accepts exactly one connection on a listener whose port is
// leased from the Registry.
type Passive struct {
	listener net.Listener
	addr     string
	port     int
	registry *Registry

	closeOnce sync.Once
}

func (p *Passive) Open(timeout time.Duration) (net.Conn, error) {
	// The port goes back to the pool as soon as the accept attempt
	// resolves, success or failure.
	defer p.Close()

	if tcp, ok := p.listener.(*net.TCPListener); ok {
		if err := tcp.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("arming accept deadline: %w", err)
		}
	}

	conn, err := p.listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("accepting data connection on %s: %w", p.addr, err)
	}
	return conn, nil
}

func (p *Passive) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.listener.Close()
		p.registry.Release(p.port)
	})
	return err
}

func (p *Passive) Mode() string { return "passive" }

func (p *Passive) Addr() string { return p.addr }

// Port returns the leased port number, used to build the PASV reply.
func (p *Passive) Port() int { return p.port }
