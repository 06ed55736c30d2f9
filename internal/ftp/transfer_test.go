package ftp

import (
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakshithvk19/rax-ftp-server/pkg/storage"
)

func newTestEngine(t *testing.T, maxFileSize int64) *Engine {
	t.Helper()
	return &Engine{
		Root:        storage.NewMemRoot(),
		MaxFileSize: maxFileSize,
	}
}

// pipeConn runs fn against the client end of an in-memory connection
// and returns the server end.
func pipeConn(t *testing.T, fn func(client net.Conn)) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	go fn(client)
	return server
}

// ============================================================================
// Store
// ============================================================================

func TestStoreWritesFile(t *testing.T) {
	e := newTestEngine(t, 0)

	conn := pipeConn(t, func(client net.Conn) {
		client.Write([]byte("hello world"))
		client.Close()
	})

	n, err := e.Store("/upload.txt", conn)
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	f, err := e.Root.OpenRead("/upload.txt")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestStoreEmptyUpload(t *testing.T) {
	e := newTestEngine(t, 0)

	conn := pipeConn(t, func(client net.Conn) {
		client.Close()
	})

	n, err := e.Store("/empty.txt", conn)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, e.Root.Exists("/empty.txt"))
}

func TestStoreSizeLimitRemovesPartial(t *testing.T) {
	e := newTestEngine(t, 8)

	conn := pipeConn(t, func(client net.Conn) {
		client.Write([]byte(strings.Repeat("x", 64)))
		client.Close()
	})

	_, err := e.Store("/big.txt", conn)
	require.ErrorIs(t, err, ErrSizeLimitExceeded)
	assert.False(t, e.Root.Exists("/big.txt"), "partial upload must be removed")
}

func TestStoreDataConnFailureRemovesPartial(t *testing.T) {
	e := newTestEngine(t, 0)

	server, client := net.Pipe()
	go func() {
		client.Write([]byte("partial"))
		// Abort without a clean EOF.
		server.Close()
	}()

	_, err := e.Store("/broken.txt", server)
	require.Error(t, err)

	var dataErr *DataConnError
	require.ErrorAs(t, err, &dataErr)
	assert.False(t, e.Root.Exists("/broken.txt"), "partial upload must be removed")
}

// ============================================================================
// Retrieve
// ============================================================================

func TestRetrieveSendsFile(t *testing.T) {
	e := newTestEngine(t, 0)
	seedFile(t, e.Root, "/download.txt", "file content here")

	server, client := net.Pipe()
	done := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(client)
		done <- string(data)
	}()

	n, err := e.Retrieve("/download.txt", server)
	require.NoError(t, err)
	server.Close()

	assert.Equal(t, int64(17), n)
	assert.Equal(t, "file content here", <-done)
}

func TestRetrieveMissingFile(t *testing.T) {
	e := newTestEngine(t, 0)
	server, _ := net.Pipe()
	defer server.Close()

	_, err := e.Retrieve("/nope.txt", server)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRetrieveDataConnFailure(t *testing.T) {
	e := newTestEngine(t, 0)
	seedFile(t, e.Root, "/download.txt", "content")

	server, client := net.Pipe()
	client.Close()

	_, err := e.Retrieve("/download.txt", server)
	var dataErr *DataConnError
	require.ErrorAs(t, err, &dataErr)
}

// ============================================================================
// SendListing
// ============================================================================

func TestSendListingFormat(t *testing.T) {
	e := newTestEngine(t, 0)
	require.NoError(t, e.Root.Mkdir("/docs"))
	seedFile(t, e.Root, "/readme.txt", "hi")

	server, client := net.Pipe()
	done := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(client)
		done <- string(data)
	}()

	require.NoError(t, e.SendListing("/", server))
	server.Close()

	listing := <-done
	lines := strings.Split(strings.TrimRight(listing, "\r\n"), "\r\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "d"), "directories flagged with d: %q", lines[0])
	assert.Contains(t, lines[0], "docs")
	assert.True(t, strings.HasPrefix(lines[1], "-"))
	assert.Contains(t, lines[1], "readme.txt")
}

func TestSendListingNotADirectory(t *testing.T) {
	e := newTestEngine(t, 0)
	seedFile(t, e.Root, "/file.txt", "hi")

	server, _ := net.Pipe()
	defer server.Close()

	err := e.SendListing("/file.txt", server)
	assert.ErrorIs(t, err, storage.ErrNotDirectory)
}

func seedFile(t *testing.T, root *storage.Root, path, content string) {
	t.Helper()
	f, err := root.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
