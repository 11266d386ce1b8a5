package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_AppendAt(t *testing.T) {
	a := NewArena(5, 2)

	id0, err := a.Append([]byte{1, 2, 3, 4, 5})
	require.NoError(t, err)
	id1, err := a.Append([]byte{6, 7, 8, 9, 10})
	require.NoError(t, err)

	assert.Equal(t, uint32(0), id0)
	assert.Equal(t, uint32(1), id1)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, a.At(0))
	assert.Equal(t, []byte{6, 7, 8, 9, 10}, a.At(1))
}

func TestArena_AppendWrongSize(t *testing.T) {
	a := NewArena(4, 0)
	_, err := a.Append([]byte{1, 2})
	assert.ErrorIs(t, err, ErrRecordSize)
}

func TestArena_Extend(t *testing.T) {
	a := NewArena(3, 0)

	slot, id := a.Extend()
	require.Equal(t, uint32(0), id)
	copy(slot, []byte{9, 8, 7})

	assert.Equal(t, []byte{9, 8, 7}, a.At(0))
	assert.Equal(t, 1, a.Len())
}

func TestArena_GrowBeyondHint(t *testing.T) {
	a := NewArena(2, 1)
	for i := 0; i < 100; i++ {
		_, err := a.Append([]byte{byte(i), byte(i + 1)})
		require.NoError(t, err)
	}
	assert.Equal(t, 100, a.Len())
	assert.Equal(t, []byte{99, 100}, a.At(99))
	assert.Len(t, a.Bytes(), 200)
}

func TestArena_FromBytes(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6}

	a, err := NewArenaFromBytes(buf, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []byte{4, 5, 6}, a.At(1))

	_, err = NewArenaFromBytes(buf, 3, 3)
	assert.Error(t, err)
}

func TestOpenMmap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.bin")

	// 4-byte header followed by 3 records of stride 3.
	content := append([]byte{0xde, 0xad, 0xbe, 0xef}, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}...)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	r, err := OpenMmap(path, 4, 3, 3)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []byte{1, 2, 3}, r.At(0))
	assert.Equal(t, []byte{7, 8, 9}, r.At(2))
}

func TestOpenMmap_SectionOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0o644))

	_, err := OpenMmap(path, 0, 3, 2)
	assert.Error(t, err)
}
