package serialization

import (
	"fmt"
	"io"

	"github.com/spaghettifunk/epoch/engine/core"
)

// BufferStreamWriter writes into a growable in-memory buffer. Writing past the end,
// including after seeking beyond it, grows the buffer and zero-fills any gap.
type BufferStreamWriter struct {
	buf []byte
	pos uint64
	err error
}

func NewBufferStreamWriter(capacity int) *BufferStreamWriter {
	return &BufferStreamWriter{buf: make([]byte, 0, capacity)}
}

func (bw *BufferStreamWriter) Write(p []byte) (int, error) {
	if bw.err != nil {
		return 0, bw.err
	}
	end := bw.pos + uint64(len(p))
	if end > uint64(len(bw.buf)) {
		bw.buf = append(bw.buf, make([]byte, end-uint64(len(bw.buf)))...)
	}
	copy(bw.buf[bw.pos:end], p)
	bw.pos = end
	return len(p), nil
}

func (bw *BufferStreamWriter) Position() uint64 {
	return bw.pos
}

func (bw *BufferStreamWriter) SetPosition(pos uint64) error {
	if bw.err != nil {
		return bw.err
	}
	bw.pos = pos
	return nil
}

func (bw *BufferStreamWriter) Good() bool {
	return bw.err == nil
}

func (bw *BufferStreamWriter) Err() error {
	return bw.err
}

// Bytes returns the written buffer. It aliases the writer's storage.
func (bw *BufferStreamWriter) Bytes() []byte {
	return bw.buf
}

// BufferStreamReader reads from a fixed in-memory buffer.
type BufferStreamReader struct {
	data []byte
	pos  uint64
	err  error
}

func NewBufferStreamReader(data []byte) *BufferStreamReader {
	return &BufferStreamReader{data: data}
}

func (br *BufferStreamReader) Read(p []byte) (int, error) {
	if br.err != nil {
		return 0, br.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if br.pos >= uint64(len(br.data)) {
		br.fail(fmt.Errorf("%w: read past end of buffer", core.ErrStream))
		return 0, io.EOF
	}
	n := copy(p, br.data[br.pos:])
	br.pos += uint64(n)
	if n < len(p) {
		br.fail(fmt.Errorf("%w: short read of %d/%d bytes", core.ErrStream, n, len(p)))
		return n, io.EOF
	}
	return n, nil
}

func (br *BufferStreamReader) Position() uint64 {
	return br.pos
}

func (br *BufferStreamReader) SetPosition(pos uint64) error {
	if br.err != nil {
		return br.err
	}
	if pos > uint64(len(br.data)) {
		br.fail(fmt.Errorf("%w: seek to %d past end of buffer (%d bytes)", core.ErrStream, pos, len(br.data)))
		return br.err
	}
	br.pos = pos
	return nil
}

func (br *BufferStreamReader) Size() uint64 {
	return uint64(len(br.data))
}

func (br *BufferStreamReader) Good() bool {
	return br.err == nil
}

func (br *BufferStreamReader) Err() error {
	return br.err
}

func (br *BufferStreamReader) Reset() {
	br.err = nil
}

func (br *BufferStreamReader) fail(err error) {
	if br.err == nil {
		br.err = err
	}
}
