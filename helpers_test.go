package compositefs

import (
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeStorage is an in-memory Storage that records the uris it is asked
// about and notices use after close.
type fakeStorage struct {
	name    string
	native  string
	infos   map[string]FileInfo
	entries map[string][]string

	mu    sync.Mutex
	calls []string

	listErr  error
	closeErr error

	// block, if set, stalls GetInfo until closed; entered is signalled first
	block   chan struct{}
	entered chan struct{}

	closed         atomic.Int32
	usedAfterClose atomic.Bool
}

// newFake creates a storage holding paths; paths ending in "/" are directories
func newFake(name string, paths ...string) *fakeStorage {
	f := &fakeStorage{
		name:    name,
		infos:   map[string]FileInfo{"": {Type: TypeDirectory}},
		entries: map[string][]string{"": nil},
	}
	for _, p := range paths {
		f.add(p)
	}
	for dir := range f.entries {
		sort.Strings(f.entries[dir])
	}
	return f
}

func (f *fakeStorage) add(p string) {
	isDir := strings.HasSuffix(p, "/")
	p = strings.Trim(p, "/")
	if _, ok := f.infos[p]; ok {
		return
	}

	dir, name := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	if dir != "" {
		f.add(dir + "/")
	}
	f.entries[dir] = append(f.entries[dir], name)

	if isDir {
		f.infos[p] = FileInfo{Type: TypeDirectory}
		f.entries[p] = nil
	} else {
		f.infos[p] = FileInfo{Type: TypeRegular, Size: uint64(len(p))}
	}
}

func (f *fakeStorage) checkOpen() {
	if f.closed.Load() > 0 {
		f.usedAfterClose.Store(true)
	}
}

func (f *fakeStorage) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return "<none>"
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeStorage) GetInfo(uri string, follow bool) (FileInfo, error) {
	f.checkOpen()
	f.mu.Lock()
	f.calls = append(f.calls, uri)
	f.mu.Unlock()

	if f.block != nil {
		f.entered <- struct{}{}
		<-f.block
		f.checkOpen()
	}

	info, ok := f.infos[uri]
	if !ok {
		return FileInfo{}, &os.PathError{Op: "stat", Path: uri, Err: fs.ErrNotExist}
	}
	return info, nil
}

func (f *fakeStorage) OpenDirectory(uri string) (DirectoryReader, error) {
	f.checkOpen()
	if f.listErr != nil {
		return nil, f.listErr
	}

	names, ok := f.entries[uri]
	if !ok {
		return nil, &os.PathError{Op: "opendir", Path: uri, Err: fs.ErrNotExist}
	}
	r := &sliceDirReader{}
	for _, name := range names {
		r.entries = append(r.entries, DirEntry{Name: name, Info: f.infos[JoinURI(uri, name)]})
	}
	return r, nil
}

func (f *fakeStorage) MapUTF8(uri string) string {
	f.checkOpen()
	return f.name + ":" + uri
}

func (f *fakeStorage) MapFS(uri string) (string, bool) {
	f.checkOpen()
	if f.native == "" {
		return "", false
	}
	if uri == "" {
		return f.native, true
	}
	return f.native + "/" + uri, true
}

func (f *fakeStorage) MapToRelativeUTF8(native string) (string, bool) {
	f.checkOpen()
	if f.native == "" {
		return "", false
	}
	return RelativeURI(f.native, native)
}

func (f *fakeStorage) Close() error {
	f.closed.Add(1)
	return f.closeErr
}

// sliceDirReader serves a listing that was loaded up front
type sliceDirReader struct {
	entries []DirEntry
	offset  int
	closed  bool
}

func (d *sliceDirReader) Read() (string, error) {
	if d.closed {
		return "", os.ErrClosed
	}
	if d.offset >= len(d.entries) {
		return "", io.EOF
	}
	d.offset++
	return d.entries[d.offset-1].Name, nil
}

func (d *sliceDirReader) GetInfo(follow bool) (FileInfo, error) {
	if d.closed {
		return FileInfo{}, os.ErrClosed
	}
	if d.offset == 0 {
		return FileInfo{}, os.ErrInvalid
	}
	return d.entries[d.offset-1].Info, nil
}

func (d *sliceDirReader) Close() error {
	d.closed = true
	return nil
}

// treeValid reports whether every node below n other than n itself has a
// mount or children
func treeValid(n *mountNode) bool {
	for _, child := range n.children {
		if child.isEmpty() || !treeValid(child) {
			return false
		}
	}
	return true
}

func requireTreeValid(t *testing.T, c *CompositeStorage) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.True(t, treeValid(c.root), "tree has a dangling node")
}

func listNames(t *testing.T, c *CompositeStorage, uri string) []string {
	t.Helper()
	r, err := c.OpenDirectory(uri)
	require.NoError(t, err)
	entries, err := ReadDirectory(r)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}
