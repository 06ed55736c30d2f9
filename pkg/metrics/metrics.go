// Package metrics defines the observability interfaces for the FTP
// server and owns the process-wide Prometheus registry. Concrete
// implementations live in the prometheus subpackage; every call site
// accepts a nil interface for zero-overhead disabled metrics.
package metrics

import "time"

// FTPMetrics provides observability for the FTP server.
//
// All methods must be safe for concurrent use. A nil FTPMetrics disables
// collection with zero overhead.
type FTPMetrics interface {
	// RecordSessionStarted increments the session counter and the
	// active-session gauge.
	RecordSessionStarted()

	// RecordSessionClosed decrements the active-session gauge.
	RecordSessionClosed()

	// RecordSessionRejected counts control connections refused because
	// the client limit was reached.
	RecordSessionRejected()

	// RecordLogin counts a PASS attempt by outcome.
	RecordLogin(success bool)

	// RecordCommand counts a handled command by verb and reply code.
	RecordCommand(verb string, code int)

	// RecordTransfer records a completed transfer. direction is "upload",
	// "download" or "list"; errorCode is empty on success.
	RecordTransfer(direction string, bytes int64, duration time.Duration, errorCode string)

	// SetLeasedPorts sets the passive port-pool lease gauge.
	SetLeasedPorts(n int)
}
