package xlog

import (
	"encoding/binary"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinybox/box/region"
)

// writeRaw builds a file by hand: header, then frames and raw byte runs.
func writeRaw(t *testing.T, path string, chunks ...[]byte) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0660)
	require.Nil(t, err)
	_, err = f.WriteString("XLOG\n0.11\n\n")
	require.Nil(t, err)
	for _, c := range chunks {
		_, err = f.Write(c)
		require.Nil(t, err)
	}
	require.Nil(t, f.Close())
}

func frame(lsn int64, payload []byte) []byte {
	row := &Row{LSN: lsn, Tm: 1.0, Type: 13, Body: [][]byte{payload}}
	return row.encodeFrame(nil)
}

func eofMarker() []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], EOFMarker)
	return b[:]
}

func TestCursorResyncsOverCorruptRecord(t *testing.T) {
	path := tempFile(t)
	payload := make([]byte, 32)
	rec2 := frame(2, payload)
	// Smash 17 bytes in the middle of record 2's body.
	for i := 40; i < 57; i++ {
		rec2[i] ^= 0xff
	}
	writeRaw(t, path, frame(1, payload), rec2, frame(3, payload), eofMarker())

	l, cur := openCursor(t, path, KindXlog)
	defer l.Close()

	row, err := cur.Next()
	require.Nil(t, err)
	require.Equal(t, int64(1), row.LSN)

	row, err = cur.Next()
	require.Nil(t, err)
	require.Equal(t, int64(3), row.LSN)
	require.True(t, cur.SkippedBytes() >= 17)

	_, err = cur.Next()
	require.Equal(t, io.EOF, err)
	require.True(t, cur.EOFRead())
	require.Equal(t, int64(2), cur.RowCount())
}

func TestCursorSkipsExactGarbageRun(t *testing.T) {
	path := tempFile(t)
	garbage := make([]byte, 13) // zeroes contain no marker
	writeRaw(t, path, frame(1, []byte("aaaa")), garbage, frame(2, []byte("bbbb")))

	l, cur := openCursor(t, path, KindXlog)
	defer l.Close()

	row, err := cur.Next()
	require.Nil(t, err)
	require.Equal(t, int64(1), row.LSN)

	row, err = cur.Next()
	require.Nil(t, err)
	require.Equal(t, int64(2), row.LSN)
	require.Equal(t, int64(13), cur.SkippedBytes())
}

func TestCursorTruncatedTail(t *testing.T) {
	path := tempFile(t)
	rec1 := frame(1, []byte("aaaa"))
	rec2 := frame(2, []byte("bbbb"))
	writeRaw(t, path, rec1, rec2, make([]byte, 12))

	l, cur := openCursor(t, path, KindXlog)
	defer l.Close()

	row, err := cur.Next()
	require.Nil(t, err)
	require.Equal(t, int64(1), row.LSN)
	row, err = cur.Next()
	require.Nil(t, err)
	require.Equal(t, int64(2), row.LSN)

	_, err = cur.Next()
	require.Equal(t, io.EOF, err)
	require.False(t, cur.EOFRead())
	headerLen := int64(len("XLOG\n0.11\n\n"))
	require.Equal(t, headerLen+int64(len(rec1)+len(rec2)), cur.GoodOffset())
}

func TestCursorStillBeingWritten(t *testing.T) {
	path := tempFile(t)
	var marker [4]byte
	binary.LittleEndian.PutUint32(marker[:], RowMarker)
	writeRaw(t, path, frame(1, []byte("aaaa")), marker[:])

	l, cur := openCursor(t, path, KindXlog)
	defer l.Close()

	_, err := cur.Next()
	require.Nil(t, err)
	_, err = cur.Next()
	require.Equal(t, io.EOF, err)
	// A bare row marker at the tail means a writer is mid-append, not a
	// sealed file.
	require.False(t, cur.EOFRead())
}

func TestCursorCorruptEOFMarker(t *testing.T) {
	path := tempFile(t)
	writeRaw(t, path, frame(1, []byte("aaaa")), []byte{1, 2, 3, 4})

	l, cur := openCursor(t, path, KindXlog)
	defer l.Close()

	_, err := cur.Next()
	require.Nil(t, err)
	_, err = cur.Next()
	require.Equal(t, io.EOF, err)
	require.False(t, cur.EOFRead())
}

func TestCursorPicksUpWhereItLeftOff(t *testing.T) {
	path := tempFile(t)
	writeRaw(t, path, frame(1, []byte("aaaa")), frame(2, []byte("bbbb")))

	l, err := Open(path, KindXlog)
	require.Nil(t, err)
	defer l.Close()

	cur, err := NewCursor(l, &region.Region{})
	require.Nil(t, err)
	row, err := cur.Next()
	require.Nil(t, err)
	require.Equal(t, int64(1), row.LSN)
	require.Nil(t, cur.Close())

	// A second cursor on the same xlog continues at record 2.
	cur, err = NewCursor(l, &region.Region{})
	require.Nil(t, err)
	row, err = cur.Next()
	require.Nil(t, err)
	require.Equal(t, int64(2), row.LSN)
	require.Nil(t, cur.Close())
	require.Equal(t, int64(2), l.Rows())
}
