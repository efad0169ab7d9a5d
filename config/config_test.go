package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.Nil(t, NewDefaultConfig().Validate())
	require.Nil(t, NewTestConfig().Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	c := NewDefaultConfig()
	c.RowsPerWal = 0
	require.NotNil(t, c.Validate())

	c = NewDefaultConfig()
	c.WalMode = "maybe"
	require.NotNil(t, c.Validate())
}

func TestFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.Nil(t, err)
	path := filepath.Join(dir, "tinybox.toml")
	body := `
wal-dir = "/data/wal"
wal-mode = "write"
rows-per-wal = 1000
`
	require.Nil(t, ioutil.WriteFile(path, []byte(body), 0660))

	conf, err := FromFile(path)
	require.Nil(t, err)
	require.Equal(t, "/data/wal", conf.WalDir)
	require.Equal(t, "write", conf.WalMode)
	require.Equal(t, int64(1000), conf.RowsPerWal)
	// Unset keys keep their defaults.
	require.Equal(t, NewDefaultConfig().SnapDir, conf.SnapDir)
}

func TestFromFileRejectsInvalid(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.Nil(t, err)
	path := filepath.Join(dir, "tinybox.toml")
	require.Nil(t, ioutil.WriteFile(path, []byte(`wal-mode = "maybe"`), 0660))
	_, err = FromFile(path)
	require.NotNil(t, err)
}
