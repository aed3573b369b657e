package utils

import "github.com/valyala/bytebufferpool"

// Shared buffer pool for prompt assembly and other hot-path string
// building. bytebufferpool handles size classes internally.
var bufPool bytebufferpool.Pool

// GetBuffer retrieves a pooled buffer.
func GetBuffer() *bytebufferpool.ByteBuffer {
	return bufPool.Get()
}

// PutBuffer returns a buffer to the pool.
func PutBuffer(buf *bytebufferpool.ByteBuffer) {
	bufPool.Put(buf)
}
