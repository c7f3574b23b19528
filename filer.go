package compositefs

import (
	"os"

	"github.com/absfs/absfs"
)

// FilerStorage is a Storage backed by an absfs.Filer, such as an
// in-memory absfs filesystem. It has no native paths.
type FilerStorage struct {
	fs absfs.Filer
}

var (
	_ Storage = (*FilerStorage)(nil)
	_ Opener  = (*FilerStorage)(nil)
)

// NewFilerStorage serves the root of fs
func NewFilerStorage(fs absfs.Filer) *FilerStorage {
	return &FilerStorage{fs: fs}
}

// GetInfo implements Storage
func (s *FilerStorage) GetInfo(uri string, follow bool) (FileInfo, error) {
	name := "/" + uri

	if !follow {
		if lstater, ok := s.fs.(interface {
			Lstat(string) (os.FileInfo, error)
		}); ok {
			info, err := lstater.Lstat(name)
			if err != nil {
				return FileInfo{}, err
			}
			return FileInfoFromOS(info), nil
		}
	}

	info, err := s.fs.Stat(name)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfoFromOS(info), nil
}

// OpenDirectory implements Storage
func (s *FilerStorage) OpenDirectory(uri string) (DirectoryReader, error) {
	name := "/" + uri

	info, err := s.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "opendir", Path: name, Err: ErrNotDirectory}
	}

	f, err := s.fs.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return newFileDirReader(name, f, s.fs.Stat), nil
}

// MapUTF8 implements Storage
func (s *FilerStorage) MapUTF8(uri string) string {
	return uri
}

// MapFS implements Storage
func (s *FilerStorage) MapFS(uri string) (string, bool) {
	return "", false
}

// MapToRelativeUTF8 implements Storage
func (s *FilerStorage) MapToRelativeUTF8(native string) (string, bool) {
	return "", false
}

// Open implements Opener
func (s *FilerStorage) Open(uri string) (File, error) {
	return s.fs.OpenFile("/"+uri, os.O_RDONLY, 0)
}
