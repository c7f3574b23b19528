package compositefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// CompositeStorage is a Storage that routes every request to the backend
// mounted at the longest matching prefix of the requested uri. Mounts may
// be added and removed at any time from any goroutine.
type CompositeStorage struct {
	// mu guards the whole tree. Backend calls are made after releasing
	// it; the resolved backend is kept alive by a lease.
	mu   sync.Mutex
	root *mountNode

	cache   *Cache
	metrics *metrics
	logger  zerolog.Logger
}

var (
	_ Storage = (*CompositeStorage)(nil)
	_ Opener  = (*CompositeStorage)(nil)
)

// Option is a functional option for configuring CompositeStorage
type Option func(*CompositeStorage)

// WithLogger sets the logger used for mount table changes
func WithLogger(logger zerolog.Logger) Option {
	return func(c *CompositeStorage) {
		c.logger = logger
	}
}

// WithStatCache enables caching of GetInfo results with the specified TTL
func WithStatCache(enabled bool, ttl time.Duration) Option {
	return func(c *CompositeStorage) {
		negativeTTL := ttl / 2 // Negative cache expires faster
		maxEntries := 1000
		c.cache = newCache(enabled, ttl, negativeTTL, maxEntries)
	}
}

// WithCacheConfig enables caching with custom configuration
func WithCacheConfig(enabled bool, statTTL, negativeTTL time.Duration, maxEntries int) Option {
	return func(c *CompositeStorage) {
		c.cache = newCache(enabled, statTTL, negativeTTL, maxEntries)
	}
}

// WithMetrics registers the mount and operation metrics with reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *CompositeStorage) {
		c.metrics = newMetrics(reg)
	}
}

// New creates an empty CompositeStorage. Nothing is mounted, so every
// lookup fails until the first Mount.
func New(opts ...Option) *CompositeStorage {
	c := &CompositeStorage{
		root:   newMountNode(),
		cache:  newCache(false, 0, 0, 0), // disabled by default
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func notMounted(op, uri string) error {
	return &os.PathError{Op: op, Path: "/" + uri, Err: ErrNotMounted}
}

// Mount attaches s at uri and takes ownership of it. A storage already
// mounted at exactly uri is replaced and destroyed once no call is using
// it anymore. Mounting the storage that is already there does nothing.
func (c *CompositeStorage) Mount(uri string, s Storage) {
	uri = CleanURI(uri)

	c.mu.Lock()
	node := c.root.make(uri)
	old := node.mount
	if old != nil && old.storage == s {
		c.mu.Unlock()
		c.logger.Debug().Str("uri", "/"+uri).Msg("storage already mounted")
		return
	}
	m := newMount(s, c.storageClosed)
	node.mount = m
	mixed := len(node.children) > 0
	c.cache.invalidateMount(uri)
	c.mu.Unlock()

	c.logger.Debug().
		Str("uri", "/"+uri).
		Str("storage", fmt.Sprintf("%T", s)).
		Bool("mixed", mixed).
		Bool("replaced", old != nil).
		Msg("mounted storage")

	if old != nil {
		old.release()
		return
	}
	c.metrics.addMounts(1)
}

// Unmount detaches the storage mounted at exactly uri. It returns false if
// nothing was mounted there.
func (c *CompositeStorage) Unmount(uri string) bool {
	uri = CleanURI(uri)

	c.mu.Lock()
	m, ok := c.root.unmount(uri)
	if ok {
		c.cache.invalidateMount(uri)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug().Str("uri", "/"+uri).Msg("nothing mounted")
		return false
	}

	c.logger.Debug().Str("uri", "/"+uri).Msg("unmounted storage")
	c.metrics.addMounts(-1)
	m.release()
	return true
}

// GetMount returns the storage mounted at exactly uri
func (c *CompositeStorage) GetMount(uri string) (Storage, bool) {
	uri = CleanURI(uri)

	c.mu.Lock()
	defer c.mu.Unlock()

	node := c.root.find(uri)
	if node == nil || node.mount == nil {
		return nil, false
	}
	return node.mount.storage, true
}

// VisitMounts calls fn for every mounted storage, parents before children
// and siblings sorted by name. fn may mount and unmount.
func (c *CompositeStorage) VisitMounts(fn func(uri string, s Storage)) {
	mounts := c.leaseAll()
	defer releaseAll(mounts)

	for _, lm := range mounts {
		fn(lm.uri, lm.mount.storage)
	}
}

type leasedMount struct {
	uri   string
	mount *mount
}

func (c *CompositeStorage) leaseAll() []leasedMount {
	c.mu.Lock()
	defer c.mu.Unlock()

	var mounts []leasedMount
	c.root.visit("", func(uri string, m *mount) {
		mounts = append(mounts, leasedMount{uri: uri, mount: m.acquire()})
	})
	return mounts
}

func releaseAll(mounts []leasedMount) {
	for _, lm := range mounts {
		lm.mount.release()
	}
}

// resolution is the outcome of routing one uri through the tree
type resolution struct {
	// mount is leased and must be released; nil if no storage covers uri
	mount    *mount
	residual string
	// virtual is set if uri itself is a node of the mount tree
	virtual bool
	// children holds the sorted child mount names of that node
	children []string
}

func (c *CompositeStorage) resolve(uri string, withChildren bool) resolution {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, residual := c.root.findStorage(uri)
	r := resolution{residual: residual}
	if node.mount != nil {
		r.mount = node.mount.acquire()
	}
	if exact := node.find(residual); exact != nil {
		r.virtual = true
		if withChildren {
			r.children = exact.sortedChildren()
		}
	}
	return r
}

// GetInfo implements Storage. Mount points and the directories leading to
// them are reported as directories even if no backend describes them.
func (c *CompositeStorage) GetInfo(uri string, follow bool) (FileInfo, error) {
	uri = CleanURI(uri)

	if follow {
		if cached, ok := c.cache.get(uri); ok {
			c.metrics.observe("get_info", resultOf(cached.err))
			return cached.info, cached.err
		}
	}
	generation := c.cache.snapshot()

	info, err := c.getInfo(uri, follow)
	c.metrics.observe("get_info", resultOf(err))

	if follow {
		switch {
		case err == nil:
			c.cache.putStat(uri, info, generation)
		case errors.Is(err, fs.ErrNotExist):
			c.cache.putNegative(uri, err, generation)
		}
	}
	return info, err
}

func (c *CompositeStorage) getInfo(uri string, follow bool) (FileInfo, error) {
	r := c.resolve(uri, false)
	m, residual := r.mount, r.residual

	var err error
	if m != nil {
		var info FileInfo
		info, err = m.storage.GetInfo(residual, follow)
		m.release()
		if err == nil {
			return info, nil
		}
	}

	if r.virtual {
		return directoryInfo(), nil
	}
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{}, notMounted("stat", uri)
}

// OpenDirectory implements Storage. When uri names a node of the mount
// tree, the names of its child mounts are appended to the backend's own
// listing unless the backend already listed them.
func (c *CompositeStorage) OpenDirectory(uri string) (DirectoryReader, error) {
	uri = CleanURI(uri)

	res := c.resolve(uri, true)
	m, residual, children := res.mount, res.residual, res.children

	if len(children) == 0 {
		if m == nil {
			err := notMounted("opendir", uri)
			c.metrics.observe("open_directory", resultOf(err))
			return nil, err
		}

		r, err := m.storage.OpenDirectory(residual)
		c.metrics.observe("open_directory", resultOf(err))
		if err != nil {
			m.release()
			return nil, err
		}
		return newCompositeDirReader(r, m, nil), nil
	}

	// a failing backend listing at a mixed node still shows the mounts
	var other DirectoryReader
	if m != nil {
		r, err := m.storage.OpenDirectory(residual)
		if err != nil {
			c.logger.Debug().Err(err).Str("uri", "/"+uri).Msg("listing mixed directory without backend entries")
			m.release()
			m = nil
		} else {
			other = r
		}
	}
	c.metrics.observe("open_directory", resultOK)
	return newCompositeDirReader(other, m, children), nil
}

// MapUTF8 implements Storage. It returns the empty string if no storage
// covers uri.
func (c *CompositeStorage) MapUTF8(uri string) string {
	uri = CleanURI(uri)

	r := c.resolve(uri, false)
	m, residual := r.mount, r.residual
	if m == nil {
		c.metrics.observe("map_utf8", resultNotFound)
		return ""
	}
	defer m.release()

	c.metrics.observe("map_utf8", resultOK)
	return m.storage.MapUTF8(residual)
}

// MapFS implements Storage
func (c *CompositeStorage) MapFS(uri string) (string, bool) {
	uri = CleanURI(uri)

	r := c.resolve(uri, false)
	m, residual := r.mount, r.residual
	if m == nil {
		c.metrics.observe("map_fs", resultNotFound)
		return "", false
	}
	defer m.release()

	native, ok := m.storage.MapFS(residual)
	if !ok {
		c.metrics.observe("map_fs", resultMiss)
		return "", false
	}
	c.metrics.observe("map_fs", resultOK)
	return native, true
}

// MapToRelativeUTF8 implements Storage. Every mounted storage is asked in
// turn, parents before children, and the first one that recognizes native
// determines the virtual path.
func (c *CompositeStorage) MapToRelativeUTF8(native string) (string, bool) {
	mounts := c.leaseAll()
	defer releaseAll(mounts)

	for _, lm := range mounts {
		if rel, ok := lm.mount.storage.MapToRelativeUTF8(native); ok {
			c.metrics.observe("map_to_relative", resultOK)
			return JoinURI(lm.uri, rel), true
		}
	}
	c.metrics.observe("map_to_relative", resultMiss)
	return "", false
}

// Open implements Opener for backends that support it
func (c *CompositeStorage) Open(uri string) (File, error) {
	uri = CleanURI(uri)

	r := c.resolve(uri, false)
	m, residual := r.mount, r.residual
	if m == nil {
		err := notMounted("open", uri)
		c.metrics.observe("open", resultOf(err))
		return nil, err
	}

	opener, ok := m.storage.(Opener)
	if !ok {
		m.release()
		err := &os.PathError{Op: "open", Path: "/" + uri, Err: errors.ErrUnsupported}
		c.metrics.observe("open", resultOf(err))
		return nil, err
	}

	f, err := opener.Open(residual)
	c.metrics.observe("open", resultOf(err))
	if err != nil {
		m.release()
		return nil, err
	}
	return &leasedFile{File: f, mount: m}, nil
}

// Close unmounts everything. Backends still in use are destroyed when the
// last call using them returns.
func (c *CompositeStorage) Close() error {
	c.mu.Lock()
	var detached []*mount
	c.root.visit("", func(_ string, m *mount) {
		detached = append(detached, m)
	})
	c.root = newMountNode()
	c.cache.clear()
	c.mu.Unlock()

	var result *multierror.Error
	for _, m := range detached {
		c.metrics.addMounts(-1)
		if err := m.release(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// CacheStats returns cache statistics
func (c *CompositeStorage) CacheStats() CacheStats {
	return c.cache.Stats()
}

// ClearCache removes all cache entries
func (c *CompositeStorage) ClearCache() {
	c.cache.clear()
}

func (c *CompositeStorage) storageClosed(s Storage, err error) {
	if err != nil {
		c.logger.Warn().Err(err).Str("storage", fmt.Sprintf("%T", s)).Msg("failed to close storage")
		return
	}
	c.logger.Debug().Str("storage", fmt.Sprintf("%T", s)).Msg("closed storage")
}

// leasedFile keeps the backend alive while a file opened through it is open
type leasedFile struct {
	File
	mount *mount
	once  sync.Once
}

func (f *leasedFile) Close() error {
	err := f.File.Close()
	f.once.Do(func() { f.mount.release() })
	return err
}
