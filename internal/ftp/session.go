package ftp

import (
	"github.com/rakshithvk19/rax-ftp-server/internal/ftp/channel"
)

// AuthState is the authentication phase of a session.
type AuthState int

const (
	// StateUnauthenticated is the initial state; only USER, QUIT and
	// RAX are meaningful.
	StateUnauthenticated AuthState = iota

	// StateAwaitingPassword means a USER was received and the next
	// PASS decides the login.
	StateAwaitingPassword

	// StateAuthenticated grants access to the privileged commands.
	StateAuthenticated
)

// Session is the per-client mutable state. It is owned exclusively by
// the goroutine serving the control connection, so none of its methods
// lock; the shared port pool and client counter live elsewhere.
type Session struct {
	peerIP   string
	state    AuthState
	username string
	cwd      string
	pending  channel.Descriptor
}

// NewSession creates a session for a control connection whose remote
// IP is peerIP.
func NewSession(peerIP string) *Session {
	return &Session{peerIP: peerIP, cwd: "/"}
}

// PeerIP returns the control connection's remote IP, used to validate
// PORT targets.
func (s *Session) PeerIP() string { return s.peerIP }

// State returns the current authentication state.
func (s *Session) State() AuthState { return s.state }

// Username returns the login candidate or authenticated identity,
// depending on State.
func (s *Session) Username() string { return s.username }

// Cwd returns the current directory as a rooted virtual path.
func (s *Session) Cwd() string { return s.cwd }

// SetCwd commits a new current directory. Callers must have resolved
// and validated the path first.
func (s *Session) SetCwd(path string) { s.cwd = path }

// BeginLogin records a USER command. Any previously authenticated
// identity is revoked: the session must complete a fresh PASS before
// privileged commands work again.
func (s *Session) BeginLogin(username string) {
	s.username = username
	s.state = StateAwaitingPassword
}

// CompleteLogin transitions AwaitingPassword to Authenticated.
func (s *Session) CompleteLogin() {
	s.state = StateAuthenticated
}

// FailLogin resets to Unauthenticated after a bad PASS, forcing a
// fresh USER rather than another PASS attempt.
func (s *Session) FailLogin() {
	s.username = ""
	s.state = StateUnauthenticated
}

// Logout resets authentication, returns the current directory to the
// root and releases any pending data channel. The control connection
// stays open.
func (s *Session) Logout() {
	s.username = ""
	s.state = StateUnauthenticated
	s.cwd = "/"
	s.ClearPending()
}

// SetPending installs a freshly negotiated data channel, replacing and
// closing any prior one (a replaced passive listener returns its port
// to the pool).
func (s *Session) SetPending(d channel.Descriptor) {
	if s.pending != nil {
		_ = s.pending.Close()
	}
	s.pending = d
}

// TakePending consumes the pending data channel. Descriptors are
// single-use: once taken, the client must negotiate again with
// PORT or PASV before the next transfer.
func (s *Session) TakePending() channel.Descriptor {
	d := s.pending
	s.pending = nil
	return d
}

// ClearPending drops and closes any pending data channel.
func (s *Session) ClearPending() {
	if s.pending != nil {
		_ = s.pending.Close()
		s.pending = nil
	}
}

// Close releases all session-held resources. Called on every session
// exit path, cooperative or abrupt.
func (s *Session) Close() {
	s.ClearPending()
}
