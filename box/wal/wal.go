// Package wal owns the write side of durability: the process-wide log
// mode, the open appender, monotonic LSN handoff across file rotations,
// and cold-start recovery from a snapshot plus log directory.
package wal

import (
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinybox/box/metrics"
	"github.com/pingcap-incubator/tinybox/box/xlog"
)

// Mode selects whether commits write the log and how hard they flush.
type Mode int

const (
	// ModeNone short-circuits logging entirely.
	ModeNone Mode = iota
	// ModeWrite hands records to the OS without waiting for stable
	// storage.
	ModeWrite
	// ModeFsync syncs after every append.
	ModeFsync
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeWrite:
		return "write"
	case ModeFsync:
		return "fsync"
	}
	return "unknown"
}

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "none":
		return ModeNone, nil
	case "write":
		return ModeWrite, nil
	case "fsync":
		return ModeFsync, nil
	}
	return ModeNone, errors.Errorf("unknown wal mode %q", s)
}

// Writer is the single log writer. Appends are serialized by the caller
// (the commit path runs one at a time per process); the writer rotates
// to a new signature-named file every rowsPerFile rows.
type Writer struct {
	dir         *xlog.Dir
	mode        Mode
	rowsPerFile int64
	meta        map[string]string

	lsn atomic.Int64 // last written
	app *xlog.Appender
}

// NewWriter creates a writer that continues from lastLSN. No file is
// created until the first row is written.
func NewWriter(dir *xlog.Dir, mode Mode, rowsPerFile int64, lastLSN int64, meta map[string]string) *Writer {
	w := &Writer{
		dir:         dir,
		mode:        mode,
		rowsPerFile: rowsPerFile,
		meta:        meta,
	}
	w.lsn.Store(lastLSN)
	return w
}

// Mode returns the configured log mode.
func (w *Writer) Mode() Mode { return w.mode }

// LSN returns the LSN of the last written row.
func (w *Writer) LSN() int64 { return w.lsn.Load() }

// Write appends row to the log and returns its LSN. In mode none, or
// for a nil row, it is a no-op. The call returns only after the record
// has reached the OS (mode write) or stable storage (mode fsync); a nil
// error is the durability acknowledgement the commit path waits for.
func (w *Writer) Write(row *xlog.Row) (int64, error) {
	if w.mode == ModeNone || row == nil {
		return 0, nil
	}
	if err := w.ensureAppender(); err != nil {
		return 0, err
	}

	start := time.Now()
	before := w.app.Bytes()
	lsn, err := w.app.Append(row)
	if err == nil && w.mode == ModeFsync {
		err = w.app.Sync()
	}
	metrics.WalWriteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, err
	}
	metrics.WalBytesWritten.Add(float64(w.app.Bytes() - before))
	w.lsn.Store(lsn)
	return lsn, nil
}

// ensureAppender opens the first file or rotates a full one. The new
// file's signature is the LSN after the last one written, which is the
// LSN its first row gets unless that row carries its own.
func (w *Writer) ensureAppender() error {
	if w.app != nil && w.app.Rows() < w.rowsPerFile {
		return nil
	}
	next := w.lsn.Load() + 1
	if w.app != nil {
		if err := w.app.Close(); err != nil {
			return err
		}
		metrics.WalRotations.Inc()
		log.Info("rotating wal", zap.Int64("signature", next))
	}
	app, err := w.dir.CreateAppender(next, w.meta, next)
	if err != nil {
		w.app = nil
		return err
	}
	w.app = app
	return nil
}

// Close seals the current file. The writer may be reused; the next
// write opens a fresh one.
func (w *Writer) Close() error {
	if w.app == nil {
		return nil
	}
	err := w.app.Close()
	w.app = nil
	return err
}
