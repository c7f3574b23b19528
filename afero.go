package compositefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// AferoStorage is a Storage backed by an afero.Fs. Storages created by
// NewLocalStorage know the native directory they serve and translate
// paths in both directions; others have no native paths.
type AferoStorage struct {
	fs   afero.Fs
	base string
}

var (
	_ Storage = (*AferoStorage)(nil)
	_ Opener  = (*AferoStorage)(nil)
)

// NewAferoStorage serves the root of fs
func NewAferoStorage(fs afero.Fs) *AferoStorage {
	return &AferoStorage{fs: fs}
}

// NewLocalStorage serves the local directory root
func NewLocalStorage(root string) (*AferoStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", abs)
	}

	return &AferoStorage{
		fs:   afero.NewBasePathFs(afero.NewOsFs(), abs),
		base: abs,
	}, nil
}

// Fs returns the underlying filesystem
func (s *AferoStorage) Fs() afero.Fs {
	return s.fs
}

func aferoPath(uri string) string {
	return "/" + uri
}

// GetInfo implements Storage. Links are only left unresolved if the
// filesystem supports Lstat.
func (s *AferoStorage) GetInfo(uri string, follow bool) (FileInfo, error) {
	name := aferoPath(uri)

	if !follow {
		if lstater, ok := s.fs.(afero.Lstater); ok {
			info, _, err := lstater.LstatIfPossible(name)
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
func (s *AferoStorage) OpenDirectory(uri string) (DirectoryReader, error) {
	name := aferoPath(uri)

	f, err := s.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.IsDir() {
		f.Close()
		return nil, &os.PathError{Op: "opendir", Path: name, Err: ErrNotDirectory}
	}

	return newFileDirReader(name, f, s.fs.Stat), nil
}

// MapUTF8 implements Storage. Local storages return the absolute native
// path, others the uri itself.
func (s *AferoStorage) MapUTF8(uri string) string {
	if native, ok := s.MapFS(uri); ok {
		return filepath.ToSlash(native)
	}
	return uri
}

// MapFS implements Storage
func (s *AferoStorage) MapFS(uri string) (string, bool) {
	if s.base == "" {
		return "", false
	}
	if uri == "" {
		return s.base, true
	}

	// segments are names, never steps out of the root
	for _, seg := range strings.Split(uri, "/") {
		if seg == ".." {
			return "", false
		}
	}
	native := filepath.Join(s.base, filepath.FromSlash(uri))
	if _, ok := RelativeURI(filepath.ToSlash(s.base), filepath.ToSlash(native)); !ok {
		return "", false
	}
	return native, true
}

// MapToRelativeUTF8 implements Storage
func (s *AferoStorage) MapToRelativeUTF8(native string) (string, bool) {
	if s.base == "" || native == "" {
		return "", false
	}
	return RelativeURI(filepath.ToSlash(s.base), filepath.ToSlash(filepath.Clean(native)))
}

// Open implements Opener
func (s *AferoStorage) Open(uri string) (File, error) {
	return s.fs.Open(aferoPath(uri))
}
