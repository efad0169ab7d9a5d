package region

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocZeroes(t *testing.T) {
	r := &Region{}
	a := r.Alloc(8)
	require.Len(t, a, 8)
	for _, b := range a {
		require.Equal(t, byte(0), b)
	}
	copy(a, "12345678")

	// A later allocation must not alias or clobber the first.
	b := r.Alloc(8)
	require.Equal(t, []byte("12345678"), a)
	require.Equal(t, make([]byte, 8), b)
	require.Equal(t, 16, r.Used())
}

func TestCopy(t *testing.T) {
	r := &Region{}
	src := []byte("hello")
	dst := r.Copy(src)
	require.Equal(t, src, dst)
	src[0] = 'H'
	require.Equal(t, []byte("hello"), dst)
}

func TestFreeResets(t *testing.T) {
	r := &Region{}
	r.Alloc(100)
	r.Free()
	require.Equal(t, 0, r.Used())
	r.Alloc(10)
	require.Equal(t, 10, r.Used())
}

func TestLargeAllocGetsOwnChunk(t *testing.T) {
	r := &Region{}
	big := r.Alloc(defaultChunkSize * 3)
	require.Len(t, big, defaultChunkSize*3)
	small := r.Alloc(16)
	require.Len(t, small, 16)
	require.Len(t, r.chunks, 2)
	require.Equal(t, defaultChunkSize*3+16, r.Used())
}

func TestFreeAfter(t *testing.T) {
	r := &Region{}
	r.Alloc(100)
	r.FreeAfter(1000)
	require.Equal(t, 100, r.Used())
	r.FreeAfter(50)
	require.Equal(t, 0, r.Used())
}
