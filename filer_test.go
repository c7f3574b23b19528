package compositefs

import (
	"io"
	"os"
	"path"
	"testing"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustNewMemFS creates a new memfs or panics
func mustNewMemFS() absfs.FileSystem {
	mfs, err := memfs.NewFS()
	if err != nil {
		panic(err)
	}
	return mfs
}

// writeFile writes data to a file in a filesystem
func writeFile(fs interface {
	OpenFile(string, int, os.FileMode) (absfs.File, error)
	MkdirAll(string, os.FileMode) error
}, name string, data []byte, perm os.FileMode) error {
	if dir := path.Dir(name); dir != "/" {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func TestFilerStorage(t *testing.T) {
	mfs := mustNewMemFS()
	require.NoError(t, writeFile(mfs, "/albums/one/01.flac", []byte("flac"), 0644))
	require.NoError(t, writeFile(mfs, "/albums/two.m3u", []byte("m3u"), 0644))

	s := NewFilerStorage(mfs)

	info, err := s.GetInfo("albums/one/01.flac", true)
	require.NoError(t, err)
	assert.True(t, info.IsRegular())
	assert.EqualValues(t, 4, info.Size)

	info, err = s.GetInfo("albums", false)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = s.GetInfo("missing", true)
	assert.True(t, os.IsNotExist(err))

	r, err := s.OpenDirectory("albums")
	require.NoError(t, err)
	entries, err := ReadDirectory(r)
	require.NoError(t, err)

	names := map[string]FileType{}
	for _, e := range entries {
		names[e.Name] = e.Info.Type
	}
	assert.Equal(t, map[string]FileType{"one": TypeDirectory, "two.m3u": TypeRegular}, names)

	_, err = s.OpenDirectory("albums/two.m3u")
	assert.ErrorIs(t, err, ErrNotDirectory)

	f, err := s.Open("albums/two.m3u")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "m3u", string(data))

	_, ok := s.MapFS("albums")
	assert.False(t, ok)
	_, ok = s.MapToRelativeUTF8("/albums")
	assert.False(t, ok)
	assert.Equal(t, "albums", s.MapUTF8("albums"))
}

func TestFilerStorageMounted(t *testing.T) {
	mfs := mustNewMemFS()
	require.NoError(t, writeFile(mfs, "/song.mp3", []byte("mp3"), 0644))

	c := New()
	c.Mount("/music", NewFilerStorage(mfs))
	c.Mount("/music/usb", newMemStorage(t, map[string]string{"/x": "x"}))

	assert.Equal(t, []string{"song.mp3", "usb"}, listNames(t, c, "/music"))
	assert.Equal(t, []string{"x"}, listNames(t, c, "/music/usb"))
}
