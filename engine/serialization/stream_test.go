package serialization

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/epoch/engine/core"
)

type pair struct {
	Name  string
	Value uint32
}

func (p *pair) Serialize(w Writer) error {
	if err := WriteString(w, p.Name); err != nil {
		return err
	}
	return WriteRaw(w, p.Value)
}

func (p *pair) Deserialize(r Reader) error {
	name, err := ReadString(r)
	if err != nil {
		return err
	}
	p.Name = name
	return ReadRaw(r, &p.Value)
}

type fixed struct {
	A uint64
	B uint16
}

func TestBufferStreamPrimitives(t *testing.T) {
	w := NewBufferStreamWriter(0)
	require.NoError(t, WriteRaw(w, uint32(0xCAFEBABE)))
	require.NoError(t, WriteBuffer(w, []byte("hello")))
	require.NoError(t, WriteString(w, "epoch"))
	require.NoError(t, WriteArray(w, []uint16{1, 2, 3}))
	require.NoError(t, WriteArray(w, []fixed{{A: 7, B: 9}}))
	require.NoError(t, WriteArray(w, []pair{{"a", 1}, {"b", 2}}))
	require.NoError(t, WriteMap(w, map[uint64]fixed{3: {A: 3}, 1: {A: 1}}))
	assert.True(t, w.Good())

	r := NewBufferStreamReader(w.Bytes())
	var magic uint32
	require.NoError(t, ReadRaw(r, &magic))
	assert.Equal(t, uint32(0xCAFEBABE), magic)

	buf, err := ReadBuffer(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), buf)

	s, err := ReadString(r)
	require.NoError(t, err)
	assert.Equal(t, "epoch", s)

	u16, err := ReadArray[uint16](r)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2, 3}, u16)

	fx, err := ReadArray[fixed](r)
	require.NoError(t, err)
	assert.Equal(t, []fixed{{A: 7, B: 9}}, fx)

	pairs, err := ReadArray[pair](r)
	require.NoError(t, err)
	assert.Equal(t, []pair{{"a", 1}, {"b", 2}}, pairs)

	m, err := ReadMap[uint64, fixed](r)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]fixed{1: {A: 1}, 3: {A: 3}}, m)

	assert.Equal(t, r.Size(), r.Position())
	assert.True(t, r.Good())
}

func TestWriteMapIsOrdered(t *testing.T) {
	a := NewBufferStreamWriter(0)
	b := NewBufferStreamWriter(0)
	m := map[uint64]uint16{}
	for i := uint64(100); i > 0; i-- {
		m[i*7919] = uint16(i)
	}
	require.NoError(t, WriteMap(a, m))
	require.NoError(t, WriteMap(b, m))
	assert.Equal(t, a.Bytes(), b.Bytes())

	// first key after the count must be the smallest
	r := NewBufferStreamReader(a.Bytes())
	require.NoError(t, r.SetPosition(4))
	var first uint64
	require.NoError(t, ReadRaw(r, &first))
	assert.Equal(t, uint64(7919), first)
}

func TestBufferWriterSeekAndPatch(t *testing.T) {
	w := NewBufferStreamWriter(0)
	require.NoError(t, WriteZero(w, 8))
	require.NoError(t, WriteRaw(w, uint32(5)))
	end := w.Position()
	require.NoError(t, w.SetPosition(0))
	require.NoError(t, WriteRaw(w, uint64(42)))
	require.NoError(t, w.SetPosition(end))
	assert.Len(t, w.Bytes(), 12)

	r := NewBufferStreamReader(w.Bytes())
	var v uint64
	require.NoError(t, ReadRaw(r, &v))
	assert.Equal(t, uint64(42), v)
}

func TestBufferReaderBounds(t *testing.T) {
	r := NewBufferStreamReader([]byte{1, 2})
	var v uint32
	err := ReadRaw(r, &v)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStream)
	assert.False(t, r.Good())

	// sticky until reset
	var b uint8
	assert.Error(t, ReadRaw(r, &b))
	r.Reset()
	require.NoError(t, r.SetPosition(0))
	require.NoError(t, ReadRaw(r, &b))
	assert.Equal(t, uint8(1), b)

	assert.Error(t, r.SetPosition(3))
	assert.False(t, r.Good())
}

func TestReadBufferRejectsOversizedPrefix(t *testing.T) {
	w := NewBufferStreamWriter(0)
	require.NoError(t, WriteRaw(w, uint32(1<<30)))
	require.NoError(t, WriteRaw(w, uint32(0)))

	r := NewBufferStreamReader(w.Bytes())
	_, err := ReadBuffer(r)
	assert.ErrorIs(t, err, core.ErrStream)
	assert.False(t, r.Good())
}

func TestReadArrayRejectsOversizedCount(t *testing.T) {
	w := NewBufferStreamWriter(0)
	require.NoError(t, WriteRaw(w, uint32(1000)))
	require.NoError(t, WriteRaw(w, uint64(1)))

	_, err := ReadArray[uint64](NewBufferStreamReader(w.Bytes()))
	assert.ErrorIs(t, err, core.ErrStream)
}

func TestEmptyContainers(t *testing.T) {
	w := NewBufferStreamWriter(0)
	require.NoError(t, WriteArray[uint32](w, nil))
	require.NoError(t, WriteMap[uint64, uint64](w, nil))
	require.NoError(t, WriteBuffer(w, nil))
	assert.Len(t, w.Bytes(), 12)

	r := NewBufferStreamReader(w.Bytes())
	arr, err := ReadArray[uint32](r)
	require.NoError(t, err)
	assert.Empty(t, arr)
	m, err := ReadMap[uint64, uint64](r)
	require.NoError(t, err)
	assert.Empty(t, m)
	buf, err := ReadBuffer(r)
	require.NoError(t, err)
	assert.Empty(t, buf)
}

func TestFileStreamRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.bin")

	w, err := NewFileStreamWriter(path)
	require.NoError(t, err)
	require.NoError(t, WriteZero(w, 4))
	require.NoError(t, WriteString(w, "file"))
	require.NoError(t, w.SetPosition(0))
	require.NoError(t, WriteRaw(w, uint32(99)))
	require.NoError(t, w.Close())

	r, err := NewFileStreamReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, uint64(4+8+4), r.Size())

	var head uint32
	require.NoError(t, ReadRaw(r, &head))
	assert.Equal(t, uint32(99), head)
	s, err := ReadString(r)
	require.NoError(t, err)
	assert.Equal(t, "file", s)

	var extra uint8
	assert.ErrorIs(t, ReadRaw(r, &extra), core.ErrStream)
	assert.False(t, r.Good())
}

func TestFileStreamReaderMissingFile(t *testing.T) {
	_, err := NewFileStreamReader(filepath.Join(t.TempDir(), "nope.bin"))
	assert.ErrorIs(t, err, core.ErrStream)
}
