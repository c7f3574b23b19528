package compositefs

import (
	"io"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/absfs/absfs"
)

// absFSAdapter exposes a CompositeStorage as a read-only absfs.Filer
type absFSAdapter struct {
	c *CompositeStorage
}

// Ensure absFSAdapter implements absfs.Filer interface at compile time
var _ absfs.Filer = (*absFSAdapter)(nil)

// FileSystem returns a read-only absfs.FileSystem view of the composite
// tree. Directories list the merged view including mount points; regular
// files can be read if their backend implements Opener. Every mutation
// fails with ErrReadOnly.
//
// Example:
//
//	cs := compositefs.New()
//	cs.Mount("/music", music)
//
//	fs := cs.FileSystem()
//	fs.Chdir("/music")
//	f, err := fs.Open("song.mp3")
func (c *CompositeStorage) FileSystem() absfs.FileSystem {
	return absfs.ExtendFiler(&absFSAdapter{c: c})
}

func readOnly(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: ErrReadOnly}
}

// OpenFile implements absfs.Filer
func (a *absFSAdapter) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, readOnly("open", name)
	}

	uri := CleanURI(name)
	info, err := a.c.GetInfo(uri, true)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &dirFile{c: a.c, uri: uri}, nil
	}

	f, err := a.c.Open(uri)
	if err != nil {
		return nil, err
	}
	return &readOnlyFile{File: f, name: "/" + uri}, nil
}

// Mkdir implements absfs.Filer
func (a *absFSAdapter) Mkdir(name string, perm os.FileMode) error {
	return readOnly("mkdir", name)
}

// Remove implements absfs.Filer
func (a *absFSAdapter) Remove(name string) error {
	return readOnly("remove", name)
}

// Rename implements absfs.Filer
func (a *absFSAdapter) Rename(oldpath, newpath string) error {
	return readOnly("rename", oldpath)
}

// Stat implements absfs.Filer
func (a *absFSAdapter) Stat(name string) (os.FileInfo, error) {
	uri := CleanURI(name)
	info, err := a.c.GetInfo(uri, true)
	if err != nil {
		return nil, err
	}
	return newOSFileInfo(path.Base("/"+uri), info), nil
}

// Chmod implements absfs.Filer
func (a *absFSAdapter) Chmod(name string, mode os.FileMode) error {
	return readOnly("chmod", name)
}

// Chtimes implements absfs.Filer
func (a *absFSAdapter) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return readOnly("chtimes", name)
}

// Chown implements absfs.Filer
func (a *absFSAdapter) Chown(name string, uid, gid int) error {
	return readOnly("chown", name)
}

// Truncate implements absfs.Filer
func (a *absFSAdapter) Truncate(name string, size int64) error {
	return readOnly("truncate", name)
}

// Separator returns the path separator (always forward slash for virtual paths)
func (a *absFSAdapter) Separator() uint8 {
	return '/'
}

// ListSeparator returns the path list separator (always colon for virtual paths)
func (a *absFSAdapter) ListSeparator() uint8 {
	return ':'
}

// osFileInfo presents a FileInfo as os.FileInfo
type osFileInfo struct {
	name string
	info FileInfo
}

func newOSFileInfo(name string, info FileInfo) *osFileInfo {
	return &osFileInfo{name: name, info: info}
}

func (fi *osFileInfo) Name() string       { return fi.name }
func (fi *osFileInfo) Size() int64        { return int64(fi.info.Size) }
func (fi *osFileInfo) ModTime() time.Time { return fi.info.MTime }
func (fi *osFileInfo) IsDir() bool        { return fi.info.IsDir() }
func (fi *osFileInfo) Sys() any           { return fi.info }

func (fi *osFileInfo) Mode() os.FileMode {
	switch fi.info.Type {
	case TypeDirectory:
		return os.ModeDir | 0555
	case TypeRegular:
		return 0444
	default:
		return os.ModeIrregular | 0444
	}
}

// readOnlyFile wraps a regular file opened through a backend
type readOnlyFile struct {
	File
	name string
}

func (f *readOnlyFile) Name() string { return f.name }

func (f *readOnlyFile) Write(p []byte) (int, error) {
	return 0, readOnly("write", f.name)
}

func (f *readOnlyFile) WriteAt(p []byte, off int64) (int, error) {
	return 0, readOnly("write", f.name)
}

func (f *readOnlyFile) WriteString(s string) (int, error) {
	return 0, readOnly("write", f.name)
}

func (f *readOnlyFile) Truncate(size int64) error {
	return readOnly("truncate", f.name)
}

func (f *readOnlyFile) Sync() error { return nil }

func (f *readOnlyFile) Readdir(count int) ([]os.FileInfo, error) {
	return nil, &os.PathError{Op: "readdir", Path: f.name, Err: ErrNotDirectory}
}

func (f *readOnlyFile) Readdirnames(count int) ([]string, error) {
	return nil, &os.PathError{Op: "readdir", Path: f.name, Err: ErrNotDirectory}
}

func (f *readOnlyFile) ReadDir(count int) ([]fs.DirEntry, error) {
	return nil, &os.PathError{Op: "readdir", Path: f.name, Err: ErrNotDirectory}
}

// dirFile is a directory of the composite tree opened through the absfs view
type dirFile struct {
	c       *CompositeStorage
	uri     string
	entries []os.FileInfo
	offset  int
	closed  bool
}

func (d *dirFile) Name() string {
	return path.Base("/" + d.uri)
}

// Close closes the directory
func (d *dirFile) Close() error {
	d.closed = true
	return nil
}

func (d *dirFile) Read(p []byte) (n int, err error) {
	return 0, os.ErrInvalid
}

func (d *dirFile) ReadAt(p []byte, off int64) (n int, err error) {
	return 0, os.ErrInvalid
}

func (d *dirFile) Write(p []byte) (n int, err error) {
	return 0, readOnly("write", d.Name())
}

func (d *dirFile) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, readOnly("write", d.Name())
}

func (d *dirFile) WriteString(s string) (ret int, err error) {
	return 0, readOnly("write", d.Name())
}

func (d *dirFile) Truncate(size int64) error {
	return readOnly("truncate", d.Name())
}

// Sync is a no-op for directories
func (d *dirFile) Sync() error {
	return nil
}

// Seek seeks to an offset in the directory listing
func (d *dirFile) Seek(offset int64, whence int) (int64, error) {
	if d.closed {
		return 0, os.ErrClosed
	}

	switch whence {
	case io.SeekStart:
		d.offset = int(offset)
	case io.SeekCurrent:
		d.offset += int(offset)
	case io.SeekEnd:
		if err := d.loadEntries(); err != nil {
			return 0, err
		}
		d.offset = len(d.entries) + int(offset)
	}

	if d.offset < 0 {
		d.offset = 0
	}

	return int64(d.offset), nil
}

// Stat returns the FileInfo for the directory
func (d *dirFile) Stat() (os.FileInfo, error) {
	if d.closed {
		return nil, os.ErrClosed
	}
	info, err := d.c.GetInfo(d.uri, true)
	if err != nil {
		return nil, err
	}
	return newOSFileInfo(d.Name(), info), nil
}

// Readdir reads directory entries
func (d *dirFile) Readdir(count int) ([]os.FileInfo, error) {
	if d.closed {
		return nil, os.ErrClosed
	}
	if err := d.loadEntries(); err != nil {
		return nil, err
	}

	if d.offset >= len(d.entries) {
		if count > 0 {
			return nil, io.EOF
		}
		return nil, nil
	}

	end := len(d.entries)
	if count > 0 && d.offset+count < end {
		end = d.offset + count
	}

	result := d.entries[d.offset:end]
	d.offset = end
	return result, nil
}

// Readdirnames reads directory entry names
func (d *dirFile) Readdirnames(count int) ([]string, error) {
	infos, err := d.Readdir(count)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

// ReadDir reads directory entries as fs.DirEntry
func (d *dirFile) ReadDir(count int) ([]fs.DirEntry, error) {
	infos, err := d.Readdir(count)
	if err != nil {
		return nil, err
	}

	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, nil
}

// loadEntries drains the merged listing once
func (d *dirFile) loadEntries() error {
	if d.entries != nil {
		return nil
	}

	r, err := d.c.OpenDirectory(d.uri)
	if err != nil {
		return err
	}
	list, err := ReadDirectory(r)
	if err != nil {
		return err
	}

	d.entries = make([]os.FileInfo, 0, len(list))
	for _, e := range list {
		d.entries = append(d.entries, newOSFileInfo(e.Name, e.Info))
	}
	return nil
}
