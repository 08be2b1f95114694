// Package mempool recycles the float32 buffers used for model input and
// output tensors. A board sweep runs the classifier once per clip value, so
// the same tensor sizes are requested repeatedly.
package mempool

import (
	"sync"
	"sync/atomic"
)

const step = 1024

var (
	pools sync.Map // size class -> *sync.Pool

	gets   atomic.Int64
	misses atomic.Int64
)

// sizeClass rounds n up to a multiple of 1024, with 1024 as the minimum.
func sizeClass(n int) int {
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func pool(cls int) *sync.Pool {
	if p, ok := pools.Load(cls); ok {
		return p.(*sync.Pool)
	}
	p, _ := pools.LoadOrStore(cls, &sync.Pool{})
	return p.(*sync.Pool)
}

// GetFloat32 returns a buffer of length n. Its contents are unspecified;
// callers overwrite every element. Return it with PutFloat32.
func GetFloat32(n int) []float32 {
	gets.Add(1)
	cls := sizeClass(n)
	if buf, ok := pool(cls).Get().([]float32); ok && cap(buf) >= n {
		return buf[:n]
	}
	misses.Add(1)
	return make([]float32, n, cls)
}

// PutFloat32 recycles buf. Nil and foreign-sized buffers are dropped.
func PutFloat32(buf []float32) {
	if cap(buf) == 0 || cap(buf)%step != 0 {
		return
	}
	pool(cap(buf)).Put(buf[:cap(buf)]) //nolint:staticcheck // SA6002
}

// Stats reports how many buffers were requested and how many had to be
// allocated.
func Stats() (requested, allocated int64) {
	return gets.Load(), misses.Load()
}
