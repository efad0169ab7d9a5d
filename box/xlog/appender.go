package xlog

import (
	"encoding/binary"
	"os"
	"sort"
	"time"

	"github.com/pingcap/errors"
	"go.uber.org/atomic"
)

// Appender is the framed record writer. It owns monotonic LSN
// assignment: rows appended with a zero LSN are stamped from the
// appender's counter, rows that carry one (replication, replay) advance
// the counter past it. A single appender writes a file; concurrent
// Append calls are not allowed.
type Appender struct {
	f        *os.File
	filename string

	lsn    atomic.Int64 // last assigned
	rows   atomic.Int64
	bytes  atomic.Int64
	sealed bool

	buf []byte
}

// Create creates filename exclusively, writes the v11 header and returns
// an appender whose first assigned LSN is nextLSN.
func Create(filename string, kind Kind, meta map[string]string, nextLSN int64) (*Appender, error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0660)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	header := kind.Tag() + "\n" + Version + "\n"
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		header += k + ": " + meta[k] + "\n"
	}
	header += "\n"

	if _, err := f.WriteString(header); err != nil {
		f.Close()
		os.Remove(filename)
		return nil, errors.WithStack(err)
	}

	a := &Appender{f: f, filename: filename}
	a.lsn.Store(nextLSN - 1)
	a.bytes.Store(int64(len(header)))
	return a, nil
}

// Filename returns the path the appender writes to.
func (a *Appender) Filename() string { return a.filename }

// Rows returns the number of records appended so far.
func (a *Appender) Rows() int64 { return a.rows.Load() }

// Bytes returns the number of bytes written so far, header included.
func (a *Appender) Bytes() int64 { return a.bytes.Load() }

// LSN returns the last assigned log sequence number.
func (a *Appender) LSN() int64 { return a.lsn.Load() }

// Append frames and writes row, returning its LSN. The write goes
// straight to the OS; when it returns nil the record is in the page
// cache, and callers that need it on stable storage follow up with Sync.
// A zero row.Tm is stamped with the current wall clock.
func (a *Appender) Append(row *Row) (int64, error) {
	if a.sealed {
		return 0, errors.Errorf("%s: append to a sealed file", a.filename)
	}
	if row.LSN == 0 {
		row.LSN = a.lsn.Inc()
	} else if row.LSN > a.lsn.Load() {
		a.lsn.Store(row.LSN)
	}
	if row.Tm == 0 {
		row.Tm = float64(time.Now().UnixNano()) / 1e9
	}

	a.buf = row.encodeFrame(a.buf[:0])
	if _, err := a.f.Write(a.buf); err != nil {
		return 0, errors.WithStack(err)
	}
	a.rows.Inc()
	a.bytes.Add(int64(len(a.buf)))
	return row.LSN, nil
}

// Sync flushes written records to stable storage.
func (a *Appender) Sync() error {
	return errors.WithStack(a.f.Sync())
}

// Close seals the file with the EOF marker, syncs and closes it.
func (a *Appender) Close() error {
	if a.sealed {
		return nil
	}
	a.sealed = true
	var eof [4]byte
	binary.LittleEndian.PutUint32(eof[:], EOFMarker)
	if _, err := a.f.Write(eof[:]); err != nil {
		a.f.Close()
		return errors.WithStack(err)
	}
	a.bytes.Add(4)
	if err := a.f.Sync(); err != nil {
		a.f.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(a.f.Close())
}
