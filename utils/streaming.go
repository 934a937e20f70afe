package utils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// ErrTooLarge is returned by LimitedReader once more than Max bytes are read.
var ErrTooLarge = errors.New("input exceeds size limit")

// bufPool reuses byte buffers to reduce GC pressure.
var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// AcquireBuffer returns a reset buffer from the pool.
func AcquireBuffer() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// ReleaseBuffer returns b to the pool.  Callers must not use b after this call.
func ReleaseBuffer(b *bytes.Buffer) {
	// Cap large buffers to avoid pinning excessive memory.
	if b.Cap() > 8*1024*1024 {
		return
	}
	bufPool.Put(b)
}

// DrainReader reads all bytes from r into a pooled buffer and returns them.
// The caller owns the returned buffer; pass it back with ReleaseBuffer.
func DrainReader(ctx context.Context, r io.Reader, chunkSize int) (*bytes.Buffer, error) {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	buf := AcquireBuffer()
	chunk := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			ReleaseBuffer(buf)
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			ReleaseBuffer(buf)
			return nil, err
		}
	}
	return buf, nil
}

// LimitedReader wraps R and fails with ErrTooLarge when the stream holds
// more than Max bytes.  A Max of zero disables the limit.
type LimitedReader struct {
	R   io.Reader
	Max int64
	n   int64
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.Max <= 0 {
		return l.R.Read(p)
	}
	if l.n > l.Max {
		return 0, ErrTooLarge
	}
	// Allow one byte past the limit so an exact-size input still reaches EOF.
	if remain := l.Max - l.n + 1; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := l.R.Read(p)
	l.n += int64(n)
	if l.n > l.Max {
		return n, ErrTooLarge
	}
	return n, err
}
