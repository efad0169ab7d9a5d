package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
)

// Config carries the durability settings of a tinybox process.
type Config struct {
	LogLevel string `toml:"log-level"`

	// WalDir and SnapDir should exist and be writable.
	WalDir  string `toml:"wal-dir"`
	SnapDir string `toml:"snap-dir"`

	// WalMode is one of none, write, fsync.
	WalMode string `toml:"wal-mode"`

	// RowsPerWal bounds how many rows go into one log file before the
	// writer rotates.
	RowsPerWal int64 `toml:"rows-per-wal"`

	// TooLongThreshold is how long a commit's log write may take before
	// a warning is logged.
	TooLongThreshold time.Duration `toml:"too-long-threshold"`
}

func (c *Config) Validate() error {
	if c.RowsPerWal <= 0 {
		return errors.New("rows-per-wal must be greater than 0")
	}
	switch c.WalMode {
	case "none", "write", "fsync":
	default:
		return errors.Errorf("unknown wal-mode %q", c.WalMode)
	}
	return nil
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:         getLogLevel(),
		WalDir:           "/tmp/tinybox/wal",
		SnapDir:          "/tmp/tinybox/snap",
		WalMode:          "fsync",
		RowsPerWal:       500000,
		TooLongThreshold: 500 * time.Millisecond,
	}
}

func NewTestConfig() *Config {
	return &Config{
		LogLevel:         getLogLevel(),
		WalMode:          "write",
		RowsPerWal:       64,
		TooLongThreshold: 500 * time.Millisecond,
	}
}

// FromFile overlays the TOML file at path on top of the defaults.
func FromFile(path string) (*Config, error) {
	conf := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
