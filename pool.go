package rowan

import (
	"reflect"
	"sync"
)

// BufferPool recycles the argument slices used to stage resolved parameter
// values before a constructor or injection method is invoked, keeping the
// hot construction path free of per-call allocations.
//
// Buffers are never shared: each call rents its own slice and must release
// exactly the slice it rented, exactly once, on every exit path — the
// injectors guarantee this with deferred releases. A released buffer is
// zeroed so pooled slots never pin resolved values.
type BufferPool struct {
	mu   sync.Mutex
	free map[int][][]reflect.Value
}

// NewBufferPool creates an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{free: make(map[int][][]reflect.Value)}
}

// Rent returns a buffer of length n. Renting length zero yields nil, which
// Release accepts back.
func (p *BufferPool) Rent(n int) []reflect.Value {
	if n == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bufs := p.free[n]
	if len(bufs) == 0 {
		return make([]reflect.Value, n)
	}
	buf := bufs[len(bufs)-1]
	p.free[n] = bufs[:len(bufs)-1]
	return buf
}

// Release returns a rented buffer to the pool.
func (p *BufferPool) Release(buf []reflect.Value) {
	if buf == nil {
		return
	}
	for i := range buf {
		buf[i] = reflect.Value{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.free[len(buf)] = append(p.free[len(buf)], buf)
}

// Idle reports how many buffers of length n are currently pooled.
func (p *BufferPool) Idle(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free[n])
}
