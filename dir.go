package compositefs

import (
	"io"
	"os"
)

// compositeDirReader lists a backend directory followed by the mount
// points below it. Mount names the backend already returned are skipped.
type compositeDirReader struct {
	other  DirectoryReader
	mount  *mount
	mounts []string
	seen   map[string]struct{}
	next   int

	// current is set while an entry returned by Read can be described;
	// fromOther tells whether it came from the backend
	current   bool
	fromOther bool
	closed    bool
}

// newCompositeDirReader takes over the lease m, which may be nil together
// with other.
func newCompositeDirReader(other DirectoryReader, m *mount, mounts []string) *compositeDirReader {
	return &compositeDirReader{
		other:  other,
		mount:  m,
		mounts: mounts,
		seen:   make(map[string]struct{}),
	}
}

// Read returns the next entry name
func (d *compositeDirReader) Read() (string, error) {
	if d.closed {
		return "", os.ErrClosed
	}
	d.current = false

	if d.other != nil {
		name, err := d.other.Read()
		if err == nil {
			if len(d.mounts) > 0 {
				d.seen[name] = struct{}{}
			}
			d.current, d.fromOther = true, true
			return name, nil
		}
		if err != io.EOF {
			return "", err
		}
		d.closeOther()
	}

	d.fromOther = false
	for d.next < len(d.mounts) {
		name := d.mounts[d.next]
		d.next++
		if _, dup := d.seen[name]; dup {
			continue
		}
		d.current = true
		return name, nil
	}
	return "", io.EOF
}

// GetInfo describes the entry last returned by Read. Mount points are
// always directories.
func (d *compositeDirReader) GetInfo(follow bool) (FileInfo, error) {
	if d.closed {
		return FileInfo{}, os.ErrClosed
	}
	if !d.current {
		return FileInfo{}, os.ErrInvalid
	}
	if d.fromOther {
		return d.other.GetInfo(follow)
	}
	return directoryInfo(), nil
}

// Close releases the backend listing
func (d *compositeDirReader) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.closeOther()
}

func (d *compositeDirReader) closeOther() error {
	var err error
	if d.other != nil {
		err = d.other.Close()
		d.other = nil
	}
	if d.mount != nil {
		d.mount.release()
		d.mount = nil
	}
	return err
}
