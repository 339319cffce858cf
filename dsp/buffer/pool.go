package buffer

import "sync"

// Pool provides sync.Pool-based Frame reuse to reduce GC pressure in
// frame-by-frame analysis loops.
type Pool struct {
	pool sync.Pool
}

// NewPool returns a Pool ready for use.
func NewPool() *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return &Frame{}
			},
		},
	}
}

// Get returns a zeroed Frame with the requested length.
// Callers must return it via Put when done.
func (p *Pool) Get(length int) *Frame {
	f := p.pool.Get().(*Frame)
	f.Resize(length)
	f.Zero()
	return f
}

// Put returns a Frame to the pool for reuse.
// The caller must not use the frame after calling Put.
func (p *Pool) Put(f *Frame) {
	if f == nil {
		return
	}
	p.pool.Put(f)
}
