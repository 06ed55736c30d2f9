// Package bufpool provides a tiered buffer pool for I/O buffer reuse.
//
// The transfer engine copies file bytes between sockets and storage in
// fixed-size chunks; pooling those chunks avoids a fresh allocation per
// transfer and keeps GC pressure flat under many concurrent sessions.
//
// Two size classes cover the server's needs: small buffers for command
// lines and directory listings, large buffers for file transfer chunks.
// Requests above the large class are allocated directly and never pooled.
//
// All operations are safe for concurrent use.
package bufpool

import "sync"

const (
	// SmallSize covers command lines and directory listings (4KB).
	SmallSize = 4 << 10

	// LargeSize covers file transfer chunks (64KB).
	LargeSize = 64 << 10
)

// Pool manages byte-slice pools organized by size class.
type Pool struct {
	small sync.Pool
	large sync.Pool
}

// New creates a buffer pool.
func New() *Pool {
	return &Pool{
		small: sync.Pool{New: func() any {
			b := make([]byte, SmallSize)
			return &b
		}},
		large: sync.Pool{New: func() any {
			b := make([]byte, LargeSize)
			return &b
		}},
	}
}

// Get returns a buffer of at least the requested size. The returned
// slice has length size.
func (p *Pool) Get(size int) []byte {
	switch {
	case size <= SmallSize:
		buf := *(p.small.Get().(*[]byte))
		return buf[:size]
	case size <= LargeSize:
		buf := *(p.large.Get().(*[]byte))
		return buf[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns a buffer to the pool. Buffers larger than the large size
// class are dropped for the GC to collect.
func (p *Pool) Put(buf []byte) {
	c := cap(buf)
	switch {
	case c == SmallSize:
		buf = buf[:c]
		p.small.Put(&buf)
	case c == LargeSize:
		buf = buf[:c]
		p.large.Put(&buf)
	}
}

// defaultPool backs the package-level Get/Put helpers.
var defaultPool = New()

// Get returns a buffer of at least the requested size from the default pool.
func Get(size int) []byte {
	return defaultPool.Get(size)
}

// Put returns a buffer to the default pool.
func Put(buf []byte) {
	defaultPool.Put(buf)
}
