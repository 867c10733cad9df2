package packets

import "sync"

// readBufferPool hands out the fixed-size scratch buffers the incremental
// decoder uses to accumulate a packet's remaining-length region. 4KB
// covers the overwhelming majority of control packets and small PUBLISH
// payloads; larger packets fall back to a one-off allocation.
var readBufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 4096)
		return &buf
	},
}

// getBuffer returns a buffer of at least size bytes, pooled when it fits.
func getBuffer(size int) *[]byte {
	if size > 4096 {
		buf := make([]byte, size)
		return &buf
	}
	bufPtr := readBufferPool.Get().(*[]byte)
	*bufPtr = (*bufPtr)[:size]
	return bufPtr
}

// putBuffer returns a buffer to the pool. Buffers that didn't come from
// the pool (oversized allocations) are simply dropped.
func putBuffer(bufPtr *[]byte) {
	if cap(*bufPtr) != 4096 {
		return
	}
	*bufPtr = (*bufPtr)[:4096]
	readBufferPool.Put(bufPtr)
}
