package download

import (
	"bytes"
	"sync"
)

// maxPooledBuffer caps the capacity of buffers returned to the pool so one
// large video does not pin its memory for the life of the process.
const maxPooledBuffer = 32 << 20

var bodyPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 1<<20))
	},
}

func getBuffer() *bytes.Buffer {
	buf := bodyPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	bodyPool.Put(buf)
}
