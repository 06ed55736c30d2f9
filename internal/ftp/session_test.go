package ftp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDescriptor implements channel.Descriptor and records Close calls.
type stubDescriptor struct {
	closed int
}

func (d *stubDescriptor) Open(time.Duration) (net.Conn, error) { return nil, nil }
func (d *stubDescriptor) Close() error                         { d.closed++; return nil }
func (d *stubDescriptor) Mode() string                         { return "stub" }
func (d *stubDescriptor) Addr() string                         { return "stub" }

// ============================================================================
// Authentication state machine
// ============================================================================

func TestSessionLoginFlow(t *testing.T) {
	s := NewSession("127.0.0.1")
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Equal(t, "/", s.Cwd())

	s.BeginLogin("alice")
	assert.Equal(t, StateAwaitingPassword, s.State())
	assert.Equal(t, "alice", s.Username())

	s.CompleteLogin()
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "alice", s.Username())
}

func TestSessionFailedLoginForcesFreshUser(t *testing.T) {
	s := NewSession("127.0.0.1")
	s.BeginLogin("alice")
	s.FailLogin()

	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Empty(t, s.Username())
}

func TestSessionUserRevokesExistingIdentity(t *testing.T) {
	s := NewSession("127.0.0.1")
	s.BeginLogin("alice")
	s.CompleteLogin()

	// A new USER mid-session drops the authenticated identity until the
	// matching PASS succeeds.
	s.BeginLogin("bob")
	assert.Equal(t, StateAwaitingPassword, s.State())
	assert.Equal(t, "bob", s.Username())
}

func TestSessionLogoutResetsEverything(t *testing.T) {
	s := NewSession("127.0.0.1")
	s.BeginLogin("alice")
	s.CompleteLogin()
	s.SetCwd("/docs")

	d := &stubDescriptor{}
	s.SetPending(d)

	s.Logout()
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Empty(t, s.Username())
	assert.Equal(t, "/", s.Cwd())
	assert.Equal(t, 1, d.closed)
	assert.Nil(t, s.TakePending())
}

// ============================================================================
// Pending data channel ownership
// ============================================================================

func TestSessionSetPendingReplacesAndCloses(t *testing.T) {
	s := NewSession("127.0.0.1")

	first := &stubDescriptor{}
	second := &stubDescriptor{}

	s.SetPending(first)
	s.SetPending(second)

	assert.Equal(t, 1, first.closed, "replaced descriptor must be closed")
	assert.Equal(t, 0, second.closed)
}

func TestSessionTakePendingConsumes(t *testing.T) {
	s := NewSession("127.0.0.1")
	d := &stubDescriptor{}
	s.SetPending(d)

	got := s.TakePending()
	require.Equal(t, d, got)
	assert.Nil(t, s.TakePending(), "descriptor is single-use")
	assert.Equal(t, 0, d.closed, "taking must not close; the caller owns it now")
}

func TestSessionCloseReleasesPending(t *testing.T) {
	s := NewSession("127.0.0.1")
	d := &stubDescriptor{}
	s.SetPending(d)

	s.Close()
	assert.Equal(t, 1, d.closed)
}
