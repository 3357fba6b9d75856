package inference

import (
	"sync"
	"sync/atomic"
)

// Tensor is a pooled float32 buffer with a fixed shape. Release returns it to
// its pool; further calls are no-ops.
type Tensor struct {
	Shape []int64
	Data  []float32

	pool     *TensorPool
	buf      *[]float32
	released atomic.Bool
}

func (t *Tensor) Release() {
	if t == nil || !t.released.CompareAndSwap(false, true) {
		return
	}
	t.Data = nil
	if t.pool != nil {
		t.pool.put(t.buf)
	}
}

func (t *Tensor) Released() bool {
	return t.released.Load()
}

// TensorPool hands out tensors of a single shape and counts those not yet
// released.
type TensorPool struct {
	shape   []int64
	size    int
	buffers sync.Pool
	live    atomic.Int64
}

func NewTensorPool(shape ...int64) *TensorPool {
	size := 1
	for _, dim := range shape {
		size *= int(dim)
	}
	p := &TensorPool{
		shape: append([]int64(nil), shape...),
		size:  size,
	}
	p.buffers.New = func() any {
		buf := make([]float32, size)

		return &buf
	}

	return p
}

func (p *TensorPool) Get() *Tensor {
	buf := p.buffers.Get().(*[]float32)
	p.live.Add(1)

	return &Tensor{
		Shape: append([]int64(nil), p.shape...),
		Data:  (*buf)[:p.size],
		pool:  p,
		buf:   buf,
	}
}

func (p *TensorPool) put(buf *[]float32) {
	clear(*buf)
	p.buffers.Put(buf)
	p.live.Add(-1)
}

// Live reports how many tensors are currently checked out.
func (p *TensorPool) Live() int64 {
	return p.live.Load()
}

// Size is the element count of every tensor in the pool.
func (p *TensorPool) Size() int {
	return p.size
}
