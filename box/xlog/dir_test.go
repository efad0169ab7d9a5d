package xlog

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	require.Nil(t, ioutil.WriteFile(filepath.Join(dir, name), nil, 0660))
}

func TestDirScanIgnoresJunk(t *testing.T) {
	dirname, err := ioutil.TempDir("", "xdir")
	require.Nil(t, err)
	touch(t, dirname, "00000000000000000001.xlog")
	touch(t, dirname, "00000000000000000005.xlog")
	touch(t, dirname, "not-a-log.txt")
	touch(t, dirname, "abc.xlog")
	touch(t, dirname, "noextension")
	touch(t, dirname, "00000000000000000009.snap")

	d := NewDir(dirname, KindXlog)
	require.Nil(t, d.Scan())
	require.Equal(t, []int64{1, 5}, d.Signatures())
}

func TestDirScanSortsSignatures(t *testing.T) {
	dirname, err := ioutil.TempDir("", "xdir")
	require.Nil(t, err)
	for _, sig := range []int64{42, 7, 100, -3} {
		d := NewDir(dirname, KindXlog)
		touch(t, dirname, filepath.Base(d.Format(sig)))
	}

	d := NewDir(dirname, KindXlog)
	require.Nil(t, d.Scan())
	require.Equal(t, []int64{-3, 7, 42, 100}, d.Signatures())
}

func TestDirRescanReplacesIndex(t *testing.T) {
	dirname, err := ioutil.TempDir("", "xdir")
	require.Nil(t, err)
	d := NewDir(dirname, KindXlog)

	touch(t, dirname, "00000000000000000001.xlog")
	require.Nil(t, d.Scan())
	require.Equal(t, []int64{1}, d.Signatures())

	touch(t, dirname, "00000000000000000002.xlog")
	require.Nil(t, d.Scan())
	require.Equal(t, []int64{1, 2}, d.Signatures())
}

func TestDirScanFailsOnMissingDir(t *testing.T) {
	d := NewDir("/nonexistent/tinybox-test", KindXlog)
	require.NotNil(t, d.Scan())
}

func TestFormatParseRoundTrip(t *testing.T) {
	d := NewDir("/var/lib/tinybox", KindSnap)
	for _, sig := range []int64{1, 999, 1 << 40, -17} {
		name := filepath.Base(d.Format(sig))
		require.True(t, strings.HasSuffix(name, ".snap"))
		parsed, err := strconv.ParseInt(strings.TrimSuffix(name, ".snap"), 10, 64)
		require.Nil(t, err)
		require.Equal(t, sig, parsed)
	}
}

func TestDirOpenForRead(t *testing.T) {
	dirname, err := ioutil.TempDir("", "xdir")
	require.Nil(t, err)
	d := NewDir(dirname, KindXlog)

	app, err := d.CreateAppender(3, nil, 3)
	require.Nil(t, err)
	_, err = app.Append(&Row{Body: [][]byte{[]byte("x")}})
	require.Nil(t, err)
	require.Nil(t, app.Close())

	l, err := d.OpenForRead(3)
	require.Nil(t, err)
	require.Nil(t, l.Close())

	_, err = d.OpenForRead(4)
	require.True(t, os.IsNotExist(errCause(err)))
}
