package tuple

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefCounting(t *testing.T) {
	tup := New([]byte("abc"))
	require.Equal(t, int32(0), tup.Refs())
	tup.Ref(1)
	tup.Ref(1)
	require.Equal(t, int32(2), tup.Refs())
	tup.Ref(-1)
	require.Equal(t, int32(1), tup.Refs())
	require.Equal(t, []byte("abc"), tup.Data())
}

func TestNilTupleIsSafe(t *testing.T) {
	var tup *Tuple
	tup.Ref(1)
	tup.Ref(-1)
	require.Equal(t, int32(0), tup.Refs())
}

func TestNegativeRefPanics(t *testing.T) {
	tup := New(nil)
	require.Panics(t, func() { tup.Ref(-1) })
}
