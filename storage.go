package compositefs

import (
	"errors"
	"io"
	"os"
	"time"
)

var (
	// ErrNotMounted is returned when no mounted backend covers a virtual path.
	// It matches fs.ErrNotExist with errors.Is.
	ErrNotMounted = &notMountedError{}
	// ErrReadOnly is returned by mutating operations of the absfs view
	ErrReadOnly = errors.New("composite storage is read-only")
	// ErrNotDirectory is returned when a directory listing is requested for a file
	ErrNotDirectory = errors.New("not a directory")
)

type notMountedError struct{}

func (e *notMountedError) Error() string { return "no storage mounted" }

func (e *notMountedError) Is(target error) bool { return target == os.ErrNotExist }

// FileType classifies an entry returned by a Storage
type FileType uint8

const (
	TypeOther FileType = iota
	TypeRegular
	TypeDirectory
)

func (t FileType) String() string {
	switch t {
	case TypeRegular:
		return "regular"
	case TypeDirectory:
		return "directory"
	default:
		return "other"
	}
}

// FileInfo describes a file or directory inside a Storage
type FileInfo struct {
	Type   FileType
	Size   uint64
	MTime  time.Time
	Device uint64
	Inode  uint64
}

// IsDir reports whether the entry is a directory
func (fi FileInfo) IsDir() bool { return fi.Type == TypeDirectory }

// IsRegular reports whether the entry is a regular file
func (fi FileInfo) IsRegular() bool { return fi.Type == TypeRegular }

// directoryInfo is reported for virtual directories that exist only as mount points
func directoryInfo() FileInfo {
	return FileInfo{Type: TypeDirectory}
}

// FileInfoFromOS converts an os.FileInfo. Device and inode numbers are
// filled in when the platform exposes them.
func FileInfoFromOS(info os.FileInfo) FileInfo {
	fi := FileInfo{MTime: info.ModTime()}
	switch {
	case info.IsDir():
		fi.Type = TypeDirectory
	case info.Mode().IsRegular():
		fi.Type = TypeRegular
		fi.Size = uint64(info.Size())
	default:
		fi.Type = TypeOther
	}
	fi.Device, fi.Inode = deviceInode(info)
	return fi
}

// Storage is a backend that can be mounted into a CompositeStorage.
// All uri arguments are relative virtual paths without a leading slash;
// the empty string denotes the storage root.
type Storage interface {
	// GetInfo returns metadata for uri. If follow is false, symbolic
	// links are not followed.
	GetInfo(uri string, follow bool) (FileInfo, error)

	// OpenDirectory opens a lazy listing of the directory at uri.
	OpenDirectory(uri string) (DirectoryReader, error)

	// MapUTF8 maps uri to a backend specific string, such as an absolute
	// path or URL. It may return the empty string.
	MapUTF8(uri string) string

	// MapFS maps uri to a native filesystem path, if the backend has one.
	MapFS(uri string) (string, bool)

	// MapToRelativeUTF8 is the inverse of MapUTF8 and MapFS: it converts a
	// native path to a uri relative to the storage root.
	MapToRelativeUTF8(native string) (string, bool)
}

// Opener is implemented by backends that can open regular files for reading.
type Opener interface {
	Open(uri string) (File, error)
}

// File is a readable regular file returned by an Opener
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
	Stat() (os.FileInfo, error)
}

// DirectoryReader is a forward-only listing of one directory. It cannot be
// restarted; open a new reader to list again.
type DirectoryReader interface {
	// Read returns the name of the next entry, or io.EOF when the
	// listing is exhausted.
	Read() (string, error)

	// GetInfo returns metadata of the entry last returned by Read.
	GetInfo(follow bool) (FileInfo, error)

	Close() error
}

// DirEntry is one entry of a drained DirectoryReader
type DirEntry struct {
	Name string
	Info FileInfo
}

// ReadDirectory drains r and closes it. Entries whose metadata cannot be
// loaded are reported with TypeOther.
func ReadDirectory(r DirectoryReader) ([]DirEntry, error) {
	defer r.Close()

	var entries []DirEntry
	for {
		name, err := r.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}

		info, err := r.GetInfo(true)
		if err != nil {
			info = FileInfo{Type: TypeOther}
		}
		entries = append(entries, DirEntry{Name: name, Info: info})
	}
}
