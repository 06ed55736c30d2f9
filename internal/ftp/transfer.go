package ftp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rakshithvk19/rax-ftp-server/pkg/bufpool"
	"github.com/rakshithvk19/rax-ftp-server/pkg/metrics"
	"github.com/rakshithvk19/rax-ftp-server/pkg/storage"
)

// ErrSizeLimitExceeded is returned by Store when an upload grows past
// the configured maximum file size. The partial file is removed.
var ErrSizeLimitExceeded = errors.New("maximum file size exceeded")

// DataConnError wraps a failure on the data connection itself, as
// opposed to a local filesystem failure. The two map to different
// reply codes.
type DataConnError struct {
	Err error
}

func (e *DataConnError) Error() string { return "data connection: " + e.Err.Error() }
func (e *DataConnError) Unwrap() error { return e.Err }

// Engine streams file content between the storage root and data
// connections. It is shared by all sessions and holds no per-transfer
// state.
type Engine struct {
	Root        *storage.Root
	MaxFileSize int64
	Metrics     metrics.FTPMetrics
}

// Store receives an upload from conn into path, which must already be
// resolved. The partial file is removed on any failure so a failed
// upload never leaves a truncated file behind.
func (e *Engine) Store(path string, conn net.Conn) (int64, error) {
	f, err := e.Root.Create(path)
	if err != nil {
		return 0, err
	}

	buf := bufpool.Get(bufpool.LargeSize)
	defer bufpool.Put(buf)

	start := time.Now()
	var total int64
	for {
		n, rerr := conn.Read(buf)
		if n > 0 {
			total += int64(n)
			if e.MaxFileSize > 0 && total > e.MaxFileSize {
				f.Close()
				_ = e.Root.Remove(path)
				e.record("upload", total, start, "size_limit")
				return total, ErrSizeLimitExceeded
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				_ = e.Root.Remove(path)
				e.record("upload", total, start, "storage")
				return total, werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			_ = e.Root.Remove(path)
			e.record("upload", total, start, "data_conn")
			return total, &DataConnError{Err: rerr}
		}
	}

	if err := f.Close(); err != nil {
		_ = e.Root.Remove(path)
		e.record("upload", total, start, "storage")
		return total, err
	}
	e.record("upload", total, start, "")
	return total, nil
}

// Retrieve sends the file at path, which must already be resolved,
// over conn.
func (e *Engine) Retrieve(path string, conn net.Conn) (int64, error) {
	f, err := e.Root.OpenRead(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := bufpool.Get(bufpool.LargeSize)
	defer bufpool.Put(buf)

	start := time.Now()
	var total int64
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				e.record("download", total, start, "data_conn")
				return total, &DataConnError{Err: werr}
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			e.record("download", total, start, "storage")
			return total, rerr
		}
	}
	e.record("download", total, start, "")
	return total, nil
}

// SendListing writes a directory listing for path, which must already
// be resolved, over conn. One entry per line, directories flagged with
// a leading "d".
func (e *Engine) SendListing(path string, conn net.Conn) error {
	entries, err := e.Root.List(path)
	if err != nil {
		return err
	}
	for _, ent := range entries {
		typ := "-"
		if ent.IsDir {
			typ = "d"
		}
		if _, err := fmt.Fprintf(conn, "%s %10d %s\r\n", typ, ent.Size, ent.Name); err != nil {
			return &DataConnError{Err: err}
		}
	}
	return nil
}

func (e *Engine) record(direction string, bytes int64, start time.Time, errorCode string) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.RecordTransfer(direction, bytes, time.Since(start), errorCode)
}
