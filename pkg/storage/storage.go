// Package storage provides the root-confined filesystem collaborator.
//
// All session paths are virtual: rooted at "/", resolved against the
// session's current directory, and mapped onto an afero filesystem whose
// base is the configured server root. Escaping the root is rejected at
// resolution time, before any filesystem call; the afero.BasePathFs layer
// confines OS access as a second guard.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Common errors for storage operations.
var (
	// ErrPathOutsideRoot is returned when a resolved path would escape
	// the server root.
	ErrPathOutsideRoot = errors.New("path resolves outside the server root")

	// ErrNotFound is returned when the target does not exist.
	ErrNotFound = errors.New("no such file or directory")

	// ErrNotDirectory is returned when a directory operation targets a file.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory is returned when a file operation targets a directory.
	ErrIsDirectory = errors.New("is a directory")
)

// Entry describes one directory entry in a listing.
type Entry struct {
	Name  string
	Size  int64
	IsDir bool
}

// Resolve joins a client-supplied path against the current directory and
// canonicalizes the result. cwd must be a rooted virtual path ("/", "/docs").
// Any resolution escaping the root returns ErrPathOutsideRoot; escapes are
// detected, never silently clamped to "/".
func Resolve(cwd, p string) (string, error) {
	var base string
	if !strings.HasPrefix(p, "/") {
		base = strings.TrimPrefix(cwd, "/")
	}

	// path.Join cleans the result; on unrooted input a traversal above
	// the base survives as a leading "..", which is what we test for.
	// Leading slashes are stripped in full so "//docs" canonicalizes
	// the same as "/docs".
	joined := path.Join(base, strings.TrimLeft(p, "/"))
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return "", ErrPathOutsideRoot
	}
	if joined == "." || joined == "" {
		return "/", nil
	}
	return "/" + joined, nil
}

// Root is a filesystem confined to the server root directory.
type Root struct {
	fs afero.Fs
}

// NewRoot confines operations to the given OS directory.
func NewRoot(dir string) (*Root, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("server root %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("server root %q: %w", dir, ErrNotDirectory)
	}
	return &Root{fs: afero.NewBasePathFs(afero.NewOsFs(), dir)}, nil
}

// NewMemRoot returns a Root backed by an in-memory filesystem.
// Intended for tests.
func NewMemRoot() *Root {
	return &Root{fs: afero.NewMemMapFs()}
}

// OpenRead opens the file at the given virtual path for reading.
func (r *Root) OpenRead(vpath string) (io.ReadCloser, error) {
	info, err := r.fs.Stat(vpath)
	if err != nil {
		return nil, r.mapError(err)
	}
	if info.IsDir() {
		return nil, ErrIsDirectory
	}
	f, err := r.fs.Open(vpath)
	if err != nil {
		return nil, r.mapError(err)
	}
	return f, nil
}

// Create opens the file at the given virtual path for writing,
// truncating any existing content.
func (r *Root) Create(vpath string) (io.WriteCloser, error) {
	f, err := r.fs.Create(vpath)
	if err != nil {
		return nil, r.mapError(err)
	}
	return f, nil
}

// Remove deletes the file at the given virtual path.
func (r *Root) Remove(vpath string) error {
	info, err := r.fs.Stat(vpath)
	if err != nil {
		return r.mapError(err)
	}
	if info.IsDir() {
		return ErrIsDirectory
	}
	return r.mapError(r.fs.Remove(vpath))
}

// List returns the entries of the directory at the given virtual path,
// sorted by name.
func (r *Root) List(vpath string) ([]Entry, error) {
	info, err := r.fs.Stat(vpath)
	if err != nil {
		return nil, r.mapError(err)
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	infos, err := afero.ReadDir(r.fs, vpath)
	if err != nil {
		return nil, r.mapError(err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, Entry{
			Name:  fi.Name(),
			Size:  fi.Size(),
			IsDir: fi.IsDir(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// IsDir reports whether the virtual path exists and is a directory.
func (r *Root) IsDir(vpath string) (bool, error) {
	info, err := r.fs.Stat(vpath)
	if err != nil {
		return false, r.mapError(err)
	}
	return info.IsDir(), nil
}

// Exists reports whether the virtual path exists.
func (r *Root) Exists(vpath string) bool {
	_, err := r.fs.Stat(vpath)
	return err == nil
}

// Mkdir creates a directory at the given virtual path.
// Used by tests and the init command to seed the tree.
func (r *Root) Mkdir(vpath string) error {
	return r.mapError(r.fs.MkdirAll(vpath, 0755))
}

func (r *Root) mapError(err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}
