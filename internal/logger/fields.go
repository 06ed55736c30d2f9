package logger

// Standard field keys for structured logging. Use these consistently
// across log statements so logs can be aggregated and queried.
const (
	// Client identification
	KeyClientIP   = "client_ip"   // control connection remote IP
	KeyClientAddr = "client_addr" // control connection remote address (ip:port)
	KeyUsername   = "username"
	KeySessionID  = "session_id"

	// Protocol
	KeyCommand = "command" // FTP verb: USER, STOR, PASV, ...
	KeyReply   = "reply"   // 3-digit response code sent to the client

	// File system
	KeyPath = "path"

	// Data channel
	KeyDataAddr = "data_addr" // negotiated data-channel address
	KeyDataPort = "data_port" // leased passive port
	KeyMode     = "mode"      // active or passive

	// I/O
	KeyBytes      = "bytes"
	KeyDurationMs = "duration_ms"

	// Errors
	KeyError = "error"
)
