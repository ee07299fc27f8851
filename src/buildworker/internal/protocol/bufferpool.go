package protocol

import (
	"sync"
)

const (
	_initialBufferSize = 256
	_bufferSizeCount   = 12
)

// SyncPool is an interface compatible with sync.Pool.
type SyncPool interface {
	Get() any
	Put(any)
}

// BufferPool buckets reusable frame buffers by size. Each bucket doubles the size of the previous one.
// Requests beyond the largest bucket are one-off allocations.
type BufferPool struct {
	pools []SyncPool
	sizes []int
}

// NewBufferPool creates a new BufferPool with sizeCnt buckets starting at startSize.
func NewBufferPool(startSize, sizeCnt int) *BufferPool {
	sizes := make([]int, sizeCnt)
	pools := make([]SyncPool, sizeCnt)
	for i := 0; i < sizeCnt; i++ {
		sizes[i] = startSize << i
		size := sizes[i]
		pools[i] = &sync.Pool{
			New: func() interface{} {
				return make([]byte, size)
			},
		}
	}

	return &BufferPool{
		pools: pools,
		sizes: sizes,
	}
}

// Get returns a buffer of length size.
func (bp *BufferPool) Get(size int) []byte {
	for i, bucketSize := range bp.sizes {
		if size <= bucketSize {
			return bp.pools[i].Get().([]byte)[:size]
		}
	}
	return make([]byte, size)
}

// Put returns a buffer obtained from Get. Buffers not matching a bucket are dropped.
func (bp *BufferPool) Put(buf []byte) {
	for i, bucketSize := range bp.sizes {
		if cap(buf) == bucketSize {
			bp.pools[i].Put(buf[:cap(buf)])
			return
		}
	}
}
