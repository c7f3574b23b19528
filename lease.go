package compositefs

import (
	"io"
	"sync/atomic"
)

// mount wraps a Storage owned by the tree. The tree holds one reference;
// every delegated call holds another for its duration. The backend is
// closed when the last reference is released, so unmounting never pulls a
// backend out from under a running call.
type mount struct {
	storage Storage
	refs    atomic.Int64
	onClose func(Storage, error)
}

func newMount(s Storage, onClose func(Storage, error)) *mount {
	m := &mount{storage: s, onClose: onClose}
	m.refs.Store(1)
	return m
}

// acquire must be called with the tree lock held, which guarantees the
// tree reference is still alive.
func (m *mount) acquire() *mount {
	m.refs.Add(1)
	return m
}

// release drops one reference and destroys the backend on the last one.
func (m *mount) release() error {
	n := m.refs.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		panic("compositefs: mount released too often")
	}

	var err error
	if c, ok := m.storage.(io.Closer); ok {
		err = c.Close()
	}
	if m.onClose != nil {
		m.onClose(m.storage, err)
	}
	return err
}
