package compositefs

import (
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func newBenchComposite(b *testing.B, opts ...Option) *CompositeStorage {
	fs := afero.NewMemMapFs()
	for i := 0; i < 100; i++ {
		afero.WriteFile(fs, fmt.Sprintf("/file%d.txt", i), []byte("content"), 0644)
	}

	c := New(opts...)
	c.Mount("/", NewAferoStorage(afero.NewMemMapFs()))
	c.Mount("/a/b/c", NewAferoStorage(fs))
	for i := 0; i < 20; i++ {
		c.Mount(fmt.Sprintf("/a/b/c/mnt%d", i), NewAferoStorage(afero.NewMemMapFs()))
	}
	return c
}

// BenchmarkGetInfoWithoutCache benchmarks routed GetInfo without caching
func BenchmarkGetInfoWithoutCache(b *testing.B) {
	c := newBenchComposite(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.GetInfo("/a/b/c/file50.txt", true); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkGetInfoWithCache benchmarks routed GetInfo with caching enabled
func BenchmarkGetInfoWithCache(b *testing.B) {
	c := newBenchComposite(b, WithStatCache(true, 5*time.Minute))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.GetInfo("/a/b/c/file50.txt", true); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkNegativeLookup benchmarks lookups that no mount covers
func BenchmarkNegativeLookup(b *testing.B) {
	c := New()
	c.Mount("/a", NewAferoStorage(afero.NewMemMapFs()))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.GetInfo("/b/nonexistent.txt", true); err == nil {
			b.Fatal("expected error for unmounted path")
		}
	}
}

// BenchmarkOpenDirectoryMixed benchmarks listing a node with many mount points
func BenchmarkOpenDirectoryMixed(b *testing.B) {
	c := newBenchComposite(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := c.OpenDirectory("/a/b/c")
		if err != nil {
			b.Fatal(err)
		}
		if _, err := ReadDirectory(r); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMountUnmount benchmarks mount table churn
func BenchmarkMountUnmount(b *testing.B) {
	c := newBenchComposite(b)
	s := NewAferoStorage(afero.NewMemMapFs())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Mount("/x/y/z", s)
		c.Unmount("/x/y/z")
	}
}

// BenchmarkConcurrentGetInfo benchmarks lookups from parallel goroutines
func BenchmarkConcurrentGetInfo(b *testing.B) {
	c := newBenchComposite(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.GetInfo("/a/b/c/file10.txt", true)
		}
	})
}
