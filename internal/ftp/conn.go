package ftp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"time"

	"github.com/rakshithvk19/rax-ftp-server/internal/ftp/channel"
	"github.com/rakshithvk19/rax-ftp-server/internal/logger"
	"github.com/rakshithvk19/rax-ftp-server/pkg/identity"
	"github.com/rakshithvk19/rax-ftp-server/pkg/metrics"
	"github.com/rakshithvk19/rax-ftp-server/pkg/storage"
)

// Handler serves FTP control connections. One Handler is shared by all
// sessions; per-client state lives in the Session each connection gets.
type Handler struct {
	// Checker verifies USER/PASS credentials.
	Checker identity.Checker

	// Engine streams files for STOR, RETR and LIST.
	Engine *Engine

	// Registry leases passive-mode data ports.
	Registry *channel.Registry

	// MinClientPort is the lowest PORT target accepted from clients.
	MinClientPort int

	// DataTimeout bounds data-channel dials and accepts.
	DataTimeout time.Duration

	// Metrics may be nil.
	Metrics metrics.FTPMetrics
}

// RejectBusy writes the over-capacity reply to a control connection
// that will not get a session. The caller closes the connection.
func RejectBusy(conn net.Conn) {
	fmt.Fprintf(conn, "421 Too many connections. Server busy.\r\n")
}

// Serve runs one control-connection session to completion. It returns
// when the client quits, the connection drops, or ctx is canceled via
// the server closing the connection.
func (h *Handler) Serve(ctx context.Context, netConn net.Conn) {
	peerIP, _, err := net.SplitHostPort(netConn.RemoteAddr().String())
	if err != nil {
		peerIP = netConn.RemoteAddr().String()
	}

	c := &conn{
		h:    h,
		conn: netConn,
		r:    bufio.NewReaderSize(netConn, MaxCommandLength),
		sess: NewSession(peerIP),
	}
	defer c.sess.Close()

	logger.Info("Session started", logger.KeyClientAddr, netConn.RemoteAddr().String())
	c.reply(replyWelcome)
	c.run(ctx)
	logger.Info("Session ended",
		logger.KeyClientAddr, netConn.RemoteAddr().String(),
		logger.KeyUsername, c.sess.Username())
}

// conn binds one control connection to its session state.
type conn struct {
	h    *Handler
	conn net.Conn
	r    *bufio.Reader
	sess *Session
}

func (c *conn) run(ctx context.Context) {
	for {
		line, err := c.readLine()
		if err != nil {
			if errors.Is(err, errLineTooLong) {
				c.reply(replyLineTooLong)
				continue
			}
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Debug("Control read failed",
					logger.KeyClientIP, c.sess.PeerIP(), logger.KeyError, err)
			}
			return
		}
		if !c.handle(line) {
			return
		}
	}
}

var errLineTooLong = errors.New("command line too long")

// readLine reads one CRLF- or LF-terminated command line. A line longer
// than MaxCommandLength is drained and reported as errLineTooLong so
// the session can continue at the next line boundary.
func (c *conn) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err == nil {
		return line, nil
	}
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = c.r.ReadString('\n')
		}
		if err != nil {
			return "", err
		}
		return "", errLineTooLong
	}
	return "", err
}

func (c *conn) reply(r Reply) {
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", r); err != nil {
		logger.Debug("Control write failed",
			logger.KeyClientIP, c.sess.PeerIP(), logger.KeyError, err)
	}
}

// handle dispatches one command line and writes its reply. It returns
// false when the session should end.
func (c *conn) handle(line string) bool {
	cmd, err := Parse(line)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingArgument):
			c.reply(replyBadArgs)
		default:
			c.reply(replyUnknownCmd)
		}
		return true
	}

	reply, quit := c.dispatch(cmd)
	c.reply(reply)
	logger.Debug("Command handled",
		logger.KeyClientIP, c.sess.PeerIP(),
		logger.KeyCommand, string(cmd.Verb),
		logger.KeyReply, reply.Code)
	if c.h.Metrics != nil {
		c.h.Metrics.RecordCommand(string(cmd.Verb), reply.Code)
	}
	return !quit
}

// privileged lists the verbs requiring an authenticated session.
var privileged = map[Verb]bool{
	VerbLogout: true,
	VerbList:   true,
	VerbPwd:    true,
	VerbCwd:    true,
	VerbRetr:   true,
	VerbStor:   true,
	VerbDel:    true,
	VerbPort:   true,
	VerbPasv:   true,
}

func (c *conn) dispatch(cmd Command) (Reply, bool) {
	if privileged[cmd.Verb] && c.sess.State() != StateAuthenticated {
		return replyNotLoggedIn, false
	}

	switch cmd.Verb {
	case VerbUser:
		return c.handleUser(cmd.Arg), false
	case VerbPass:
		return c.handlePass(cmd.Arg), false
	case VerbLogout:
		c.sess.Logout()
		return replyLoggedOut, false
	case VerbQuit:
		return replyGoodbye, true
	case VerbRax:
		return replyRax, false
	case VerbPwd:
		return replyCurrentDir(c.sess.Cwd()), false
	case VerbCwd:
		return c.handleCwd(cmd.Arg), false
	case VerbDel:
		return c.handleDel(cmd.Arg), false
	case VerbPort:
		return c.handlePort(cmd.Arg), false
	case VerbPasv:
		return c.handlePasv(), false
	case VerbStor:
		return c.handleStor(cmd.Arg), false
	case VerbRetr:
		return c.handleRetr(cmd.Arg), false
	case VerbList:
		return c.handleList(cmd.Arg), false
	default:
		return replyUnknownCmd, false
	}
}

// handleUser accepts a login candidate in any state. A USER from an
// authenticated session revokes the current identity until the next
// successful PASS.
func (c *conn) handleUser(username string) Reply {
	c.sess.BeginLogin(username)
	return replyNeedPass
}

func (c *conn) handlePass(password string) Reply {
	if c.sess.State() != StateAwaitingPassword {
		return replyBadSequence
	}

	username := c.sess.Username()
	ok := c.h.Checker.Verify(username, password)
	if c.h.Metrics != nil {
		c.h.Metrics.RecordLogin(ok)
	}
	if !ok {
		c.sess.FailLogin()
		logger.Warn("Login failed",
			logger.KeyClientIP, c.sess.PeerIP(), logger.KeyUsername, username)
		return replyLoginFailed
	}

	c.sess.CompleteLogin()
	logger.Info("Login successful",
		logger.KeyClientIP, c.sess.PeerIP(), logger.KeyUsername, username)
	return replyLoginOK
}

func (c *conn) handleCwd(arg string) Reply {
	target, err := storage.Resolve(c.sess.Cwd(), arg)
	if err != nil {
		return replyFileUnavailable("Path outside server root")
	}

	isDir, err := c.h.Engine.Root.IsDir(target)
	if err != nil {
		return replyFileUnavailable("No such directory")
	}
	if !isDir {
		return replyFileUnavailable("Not a directory")
	}

	c.sess.SetCwd(target)
	return replyDirChanged(target)
}

func (c *conn) handleDel(arg string) Reply {
	target, err := storage.Resolve(c.sess.Cwd(), arg)
	if err != nil {
		return replyFileUnavailable("Path outside server root")
	}

	switch err := c.h.Engine.Root.Remove(target); {
	case err == nil:
		logger.Info("File deleted",
			logger.KeyClientIP, c.sess.PeerIP(), logger.KeyPath, target)
		return replyDeleted(target)
	case errors.Is(err, storage.ErrNotFound):
		return replyFileUnavailable("No such file")
	case errors.Is(err, storage.ErrIsDirectory):
		return replyFileUnavailable("Is a directory")
	default:
		return replyActionAborted(err.Error())
	}
}

// handlePort validates the client-supplied data target. The host must
// be the control connection's own peer IP and the port must sit at or
// above the configured client-port floor.
func (c *conn) handlePort(arg string) Reply {
	host, portStr, err := net.SplitHostPort(arg)
	if err != nil {
		return replyBadArgs
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port == 0 || port > 65535 {
		return replyBadArgs
	}
	if port < c.h.MinClientPort {
		return replyBadArgs
	}
	if host != c.sess.PeerIP() {
		logger.Warn("PORT target does not match control peer",
			logger.KeyClientIP, c.sess.PeerIP(), logger.KeyDataAddr, arg)
		return replyBadArgs
	}

	c.sess.SetPending(channel.NewActive(arg))
	logger.Debug("Active data channel registered",
		logger.KeyClientIP, c.sess.PeerIP(), logger.KeyDataAddr, arg)
	return replyPortOK
}

func (c *conn) handlePasv() Reply {
	d, err := c.h.Registry.Acquire()
	if err != nil {
		if errors.Is(err, channel.ErrPortsExhausted) {
			return replyNoFreePorts
		}
		return replyDataFailed
	}

	c.sess.SetPending(d)
	logger.Debug("Passive data channel registered",
		logger.KeyClientIP, c.sess.PeerIP(), logger.KeyDataAddr, d.Addr())
	return replyPassiveMode(d.Addr())
}

func (c *conn) handleStor(arg string) Reply {
	if c.sess.pending == nil {
		return replyNoChannel
	}
	target, err := storage.Resolve(c.sess.Cwd(), arg)
	if err != nil {
		return replyFileUnavailable("Path outside server root")
	}
	if c.h.Engine.Root.Exists(target) {
		return replyFileUnavailable("File already exists")
	}

	dataConn, reply, ok := c.openData(path.Base(target))
	if !ok {
		return reply
	}
	defer dataConn.Close()

	n, err := c.h.Engine.Store(target, dataConn)
	if err != nil {
		return c.transferError("upload", target, err)
	}
	logger.Info("Upload complete",
		logger.KeyClientIP, c.sess.PeerIP(),
		logger.KeyPath, target, logger.KeyBytes, n)
	return replyXferDone
}

func (c *conn) handleRetr(arg string) Reply {
	if c.sess.pending == nil {
		return replyNoChannel
	}
	target, err := storage.Resolve(c.sess.Cwd(), arg)
	if err != nil {
		return replyFileUnavailable("Path outside server root")
	}
	isDir, err := c.h.Engine.Root.IsDir(target)
	if err != nil {
		return replyFileUnavailable("No such file")
	}
	if isDir {
		return replyFileUnavailable("Is a directory")
	}

	dataConn, reply, ok := c.openData(path.Base(target))
	if !ok {
		return reply
	}
	defer dataConn.Close()

	n, err := c.h.Engine.Retrieve(target, dataConn)
	if err != nil {
		return c.transferError("download", target, err)
	}
	logger.Info("Download complete",
		logger.KeyClientIP, c.sess.PeerIP(),
		logger.KeyPath, target, logger.KeyBytes, n)
	return replyXferDone
}

// handleList lists the current directory, or the resolved argument
// directory when one is given.
func (c *conn) handleList(arg string) Reply {
	if c.sess.pending == nil {
		return replyNoChannel
	}
	target := c.sess.Cwd()
	if arg != "" {
		var err error
		target, err = storage.Resolve(c.sess.Cwd(), arg)
		if err != nil {
			return replyFileUnavailable("Path outside server root")
		}
	}
	isDir, err := c.h.Engine.Root.IsDir(target)
	if err != nil {
		return replyFileUnavailable("No such directory")
	}
	if !isDir {
		return replyFileUnavailable("Not a directory")
	}

	dataConn, reply, ok := c.openData("directory listing")
	if !ok {
		return reply
	}
	defer dataConn.Close()

	if err := c.h.Engine.SendListing(target, dataConn); err != nil {
		return c.transferError("list", target, err)
	}
	return replyXferDone
}

// openData consumes the pending descriptor, announces the transfer on
// the control connection and materializes the data socket. Whatever the
// outcome, the descriptor is spent.
func (c *conn) openData(what string) (net.Conn, Reply, bool) {
	pending := c.sess.TakePending()
	defer pending.Close()

	c.reply(replyOpeningData(what))

	dataConn, err := pending.Open(c.h.DataTimeout)
	if err != nil {
		logger.Warn("Data connection failed",
			logger.KeyClientIP, c.sess.PeerIP(),
			logger.KeyMode, pending.Mode(),
			logger.KeyDataAddr, pending.Addr(),
			logger.KeyError, err)
		return nil, replyDataFailed, false
	}
	return dataConn, Reply{}, true
}

func (c *conn) transferError(direction, target string, err error) Reply {
	logger.Warn("Transfer failed",
		logger.KeyClientIP, c.sess.PeerIP(),
		logger.KeyMode, direction,
		logger.KeyPath, target,
		logger.KeyError, err)

	var dataErr *DataConnError
	if errors.As(err, &dataErr) {
		return replyXferAborted
	}
	if errors.Is(err, ErrSizeLimitExceeded) {
		return replyActionAborted("maximum file size exceeded")
	}
	return replyActionAborted(err.Error())
}
