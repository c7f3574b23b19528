package compositefs

import (
	"io"
	"os"
	"path"
)

const readdirBatch = 64

// readdirFile is satisfied by afero.File and absfs.File
type readdirFile interface {
	Readdir(count int) ([]os.FileInfo, error)
	Close() error
}

// fileDirReader lists an open directory lazily, a batch at a time.
// Entries are described as returned by Readdir, which does not follow
// symbolic links; stat is used when the caller asks to follow them.
type fileDirReader struct {
	dir     string
	f       readdirFile
	stat    func(name string) (os.FileInfo, error)
	batch   []os.FileInfo
	current os.FileInfo
	eof     bool
	closed  bool
}

func newFileDirReader(dir string, f readdirFile, stat func(string) (os.FileInfo, error)) *fileDirReader {
	return &fileDirReader{dir: dir, f: f, stat: stat}
}

func (d *fileDirReader) Read() (string, error) {
	if d.closed {
		return "", os.ErrClosed
	}
	d.current = nil

	for {
		for len(d.batch) == 0 {
			if d.eof {
				return "", io.EOF
			}
			batch, err := d.f.Readdir(readdirBatch)
			if err == io.EOF || (err == nil && len(batch) < readdirBatch) {
				d.eof = true
			} else if err != nil {
				return "", err
			}
			d.batch = batch
		}

		d.current, d.batch = d.batch[0], d.batch[1:]
		// some absfs filesystems list the dot entries
		if name := d.current.Name(); name != "." && name != ".." {
			return name, nil
		}
		d.current = nil
	}
}

func (d *fileDirReader) GetInfo(follow bool) (FileInfo, error) {
	if d.closed {
		return FileInfo{}, os.ErrClosed
	}
	if d.current == nil {
		return FileInfo{}, os.ErrInvalid
	}

	info := d.current
	if follow && info.Mode()&os.ModeSymlink != 0 {
		target, err := d.stat(path.Join(d.dir, info.Name()))
		if err != nil {
			return FileInfo{}, err
		}
		info = target
	}
	return FileInfoFromOS(info), nil
}

func (d *fileDirReader) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.f.Close()
}
