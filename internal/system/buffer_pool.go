package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// FramePool recycles *image.RGBA frame buffers of one size, so a render of
// thousands of frames allocates roughly as many buffers as are in flight.
type FramePool struct {
	rect      image.Rectangle
	pool      sync.Pool
	allocated atomic.Int64
}

func NewFramePool(rect image.Rectangle) *FramePool {
	p := &FramePool{rect: rect}
	p.pool.New = func() interface{} {
		p.allocated.Add(1)
		return image.NewRGBA(rect)
	}
	return p
}

// Get returns a buffer of the pool's size. Its contents are undefined.
func (p *FramePool) Get() *image.RGBA {
	return p.pool.Get().(*image.RGBA)
}

// Put hands img back. Buffers of another size are left to the GC.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil || img.Rect != p.rect {
		return
	}
	p.pool.Put(img)
}

// Allocated is the number of buffers the pool has created so far.
func (p *FramePool) Allocated() int {
	return int(p.allocated.Load())
}
