// Package channel manages data-channel negotiation: the process-wide
// pool of passive-mode ports and the per-session descriptors that
// materialize into connected data sockets.
package channel

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rakshithvk19/rax-ftp-server/internal/logger"
	"github.com/rakshithvk19/rax-ftp-server/pkg/metrics"
)

// ErrPortsExhausted is returned by Acquire when every port in the
// configured range is leased or unbindable.
var ErrPortsExhausted = errors.New("no free data ports in the passive range")

// Registry owns the pool of passive-mode data ports in the inclusive
// range [min, max]. A port is leased to at most one session at a time;
// allocation picks the lowest free port so behavior is deterministic.
//
// The mutex guards only the lease bookkeeping, never socket I/O.
type Registry struct {
	bindAddr string
	min, max int

	mu     sync.Mutex
	leased map[int]struct{}

	metrics metrics.FTPMetrics
}

// NewRegistry creates a registry leasing ports from [min, max] bound on
// bindAddr. m may be nil.
func NewRegistry(bindAddr string, min, max int, m metrics.FTPMetrics) *Registry {
	return &Registry{
		bindAddr: bindAddr,
		min:      min,
		max:      max,
		leased:   make(map[int]struct{}),
		metrics:  m,
	}
}

// Acquire leases the lowest free port, binds a listener on it and
// returns a passive descriptor. Ports the OS refuses to bind (taken by
// another process) are skipped. Returns ErrPortsExhausted when no port
// in the range can be leased.
func (r *Registry) Acquire() (*Passive, error) {
	for port := r.min; port <= r.max; port++ {
		if !r.tryLease(port) {
			continue
		}

		listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", r.bindAddr, port))
		if err != nil {
			r.Release(port)
			logger.Debug("Skipping unbindable passive port",
				logger.KeyDataPort, port, logger.KeyError, err)
			continue
		}

		return &Passive{
			listener: listener,
			addr:     fmt.Sprintf("%s:%d", r.bindAddr, port),
			port:     port,
			registry: r,
		}, nil
	}
	return nil, ErrPortsExhausted
}

// Release returns a port to the pool. Releasing an unleased port is a
// no-op, so release paths can be defensive without double-free risk.
func (r *Registry) Release(port int) {
	r.mu.Lock()
	delete(r.leased, port)
	n := len(r.leased)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SetLeasedPorts(n)
	}
}

// LeasedCount returns the number of currently leased ports.
func (r *Registry) LeasedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leased)
}

// tryLease marks a port leased if it is free.
func (r *Registry) tryLease(port int) bool {
	r.mu.Lock()
	if _, taken := r.leased[port]; taken {
		r.mu.Unlock()
		return false
	}
	r.leased[port] = struct{}{}
	n := len(r.leased)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SetLeasedPorts(n)
	}
	return true
}
