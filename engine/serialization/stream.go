// Package serialization provides seekable binary streams and the shared
// encoding helpers every asset serializer is built on.
//
// All fixed-width values are little-endian. Length prefixes are uint32 for
// buffers, arrays and maps, and uint64 for strings.
package serialization

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"

	"github.com/spaghettifunk/epoch/engine/core"
)

// ByteOrder is the byte order of every fixed-width value in a stream.
var ByteOrder = binary.LittleEndian

// Writer is a sequential byte sink with an absolute, movable cursor.
// Once a write fails the writer stays bad and Err reports why.
type Writer interface {
	io.Writer
	Position() uint64
	SetPosition(pos uint64) error
	Good() bool
	Err() error
}

// Reader is a sequential byte source with an absolute, movable cursor.
// A read or seek past Size leaves the reader bad.
type Reader interface {
	io.Reader
	Position() uint64
	SetPosition(pos uint64) error
	Size() uint64
	Good() bool
	Err() error
}

// Serializable is implemented by composite values written element by element.
type Serializable interface {
	Serialize(w Writer) error
}

// Deserializable is the reading side of Serializable. It is implemented on the pointer.
type Deserializable interface {
	Deserialize(r Reader) error
}

// failer lets helpers poison the stream after a failed bounds pre-check.
type failer interface {
	fail(err error)
}

func streamError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrStream, fmt.Sprintf(format, args...))
}

func poison(r Reader, err error) error {
	if f, ok := r.(failer); ok {
		f.fail(err)
	}
	return err
}

func remaining(r Reader) uint64 {
	if r.Position() >= r.Size() {
		return 0
	}
	return r.Size() - r.Position()
}

// WriteRaw writes a fixed-size value (or a pointer/slice of fixed-size values).
func WriteRaw(w Writer, v any) error {
	return binary.Write(w, ByteOrder, v)
}

// ReadRaw reads a fixed-size value into the pointer v.
func ReadRaw(r Reader, v any) error {
	if n := binary.Size(v); n > 0 && uint64(n) > remaining(r) {
		return poison(r, streamError("raw read of %d bytes past end (%d left)", n, remaining(r)))
	}
	return binary.Read(r, ByteOrder, v)
}

var zeroes [4096]byte

// WriteZero reserves size bytes at the cursor. Used for regions that are patched later.
func WriteZero(w Writer, size uint64) error {
	for size > 0 {
		n := min(size, uint64(len(zeroes)))
		if _, err := w.Write(zeroes[:n]); err != nil {
			return err
		}
		size -= n
	}
	return nil
}

// WriteBuffer writes data prefixed with its uint32 length.
func WriteBuffer(w Writer, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return streamError("buffer of %d bytes exceeds the uint32 length prefix", len(data))
	}
	if err := WriteRaw(w, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadBuffer reads a uint32 length-prefixed buffer.
func ReadBuffer(r Reader) ([]byte, error) {
	var size uint32
	if err := ReadRaw(r, &size); err != nil {
		return nil, err
	}
	return ReadBytes(r, uint64(size))
}

// ReadBytes reads exactly size bytes.
func ReadBytes(r Reader, size uint64) ([]byte, error) {
	if size > remaining(r) {
		return nil, poison(r, streamError("read of %d bytes past end (%d left)", size, remaining(r)))
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func WriteString(w Writer, s string) error {
	if err := WriteRaw(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func ReadString(r Reader) (string, error) {
	var size uint64
	if err := ReadRaw(r, &size); err != nil {
		return "", err
	}
	data, err := ReadBytes(r, size)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeElem[T any](w Writer, v *T) error {
	if s, ok := any(v).(Serializable); ok {
		return s.Serialize(w)
	}
	return WriteRaw(w, v)
}

func readElem[T any](r Reader, v *T) error {
	if d, ok := any(v).(Deserializable); ok {
		return d.Deserialize(r)
	}
	return ReadRaw(r, v)
}

// WriteArray writes a uint32 count followed by every element. Elements are either
// fixed-size values or implement Serializable.
func WriteArray[T any](w Writer, items []T) error {
	if uint64(len(items)) > math.MaxUint32 {
		return streamError("array of %d elements exceeds the uint32 count prefix", len(items))
	}
	if err := WriteRaw(w, uint32(len(items))); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	if _, ok := any(&items[0]).(Serializable); !ok {
		return WriteRaw(w, items)
	}
	for i := range items {
		if err := writeElem(w, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadArray reads what WriteArray wrote.
func ReadArray[T any](r Reader) ([]T, error) {
	var count uint32
	if err := ReadRaw(r, &count); err != nil {
		return nil, err
	}
	var zero T
	elemSize := uint64(1)
	_, composite := any(&zero).(Deserializable)
	if !composite {
		if n := binary.Size(zero); n > 0 {
			elemSize = uint64(n)
		}
	}
	if uint64(count)*elemSize > remaining(r) {
		return nil, poison(r, streamError("array of %d elements does not fit in %d bytes", count, remaining(r)))
	}
	items := make([]T, count)
	if count == 0 {
		return items, nil
	}
	if !composite {
		if err := ReadRaw(r, items); err != nil {
			return nil, err
		}
		return items, nil
	}
	for i := range items {
		if err := readElem(r, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// WriteMap writes a uint32 count followed by key/value pairs in ascending key order,
// so equal maps always produce equal bytes.
func WriteMap[K cmp.Ordered, V any](w Writer, m map[K]V) error {
	if uint64(len(m)) > math.MaxUint32 {
		return streamError("map of %d entries exceeds the uint32 count prefix", len(m))
	}
	if err := WriteRaw(w, uint32(len(m))); err != nil {
		return err
	}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v := m[k]
		if err := writeElem(w, &k); err != nil {
			return err
		}
		if err := writeElem(w, &v); err != nil {
			return err
		}
	}
	return nil
}

// ReadMap reads what WriteMap wrote. A repeated key is a format error.
func ReadMap[K cmp.Ordered, V any](r Reader) (map[K]V, error) {
	var count uint32
	if err := ReadRaw(r, &count); err != nil {
		return nil, err
	}
	if uint64(count) > remaining(r) {
		return nil, poison(r, streamError("map of %d entries does not fit in %d bytes", count, remaining(r)))
	}
	m := make(map[K]V, count)
	for i := uint32(0); i < count; i++ {
		var k K
		var v V
		if err := readElem(r, &k); err != nil {
			return nil, err
		}
		if err := readElem(r, &v); err != nil {
			return nil, err
		}
		if _, dup := m[k]; dup {
			return nil, fmt.Errorf("%w: duplicate map key %v", core.ErrFormat, k)
		}
		m[k] = v
	}
	return m, nil
}
