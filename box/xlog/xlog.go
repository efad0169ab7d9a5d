// Package xlog implements the v11 on-disk format shared by snapshot and
// write ahead log files: a three-line text header followed by a stream of
// CRC32-Castagnoli protected records, terminated by an EOF marker when
// the file is cleanly sealed.
package xlog

import (
	"bufio"
	"hash/crc32"
	"io"
	"os"
	"strings"

	"github.com/pingcap/errors"
)

// Every record starts with RowMarker; a sealed file ends with EOFMarker.
// Both are little-endian and byte-aligned search needles: the cursor may
// find them at any offset while resynchronizing.
const (
	RowMarker uint32 = 0xba0babed
	EOFMarker uint32 = 0x10adab1e
)

// Version is the only format version this package reads and writes.
const Version = "0.11"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func crc32c(b []byte) uint32 {
	return crc32.Checksum(b, castagnoli)
}

// Kind tells snapshot files from log files.
type Kind int

const (
	KindSnap Kind = iota
	KindXlog
)

// Tag is the filetype line written in the file header.
func (k Kind) Tag() string {
	if k == KindSnap {
		return "SNAP"
	}
	return "XLOG"
}

// Ext is the filename extension for files of this kind.
func (k Kind) Ext() string {
	if k == KindSnap {
		return ".snap"
	}
	return ".xlog"
}

func (k Kind) String() string { return k.Tag() }

// Xlog is an open snapshot or log file positioned at the start of its
// record stream.
type Xlog struct {
	f        *os.File
	Filename string
	Kind     Kind

	// Meta holds the free-form key/value lines of the header.
	Meta map[string]string

	headerEnd int64
	rows      int64
}

// Open opens the file for reading and validates its header against the
// expected kind.
func Open(filename string, kind Kind) (*Xlog, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return OpenStream(f, filename, kind)
}

// OpenStream wraps an already open file. On header validation failure the
// file is closed.
func OpenStream(f *os.File, filename string, kind Kind) (*Xlog, error) {
	l := &Xlog{f: f, Filename: filename, Kind: kind}
	if err := l.readMeta(); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// readMeta consumes the header: the filetype line, the version line, and
// zero or more key/value lines up to and including the blank line. The
// underlying file is left positioned at the first record.
func (l *Xlog) readMeta() error {
	r := bufio.NewReader(l.f)
	var consumed int64

	readLine := func() (string, error) {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", &ErrInvalidHeader{Filename: l.Filename, Reason: "truncated header"}
		}
		consumed += int64(len(line))
		return line, nil
	}

	filetype, err := readLine()
	if err != nil {
		return err
	}
	if strings.TrimRight(filetype, "\n") != l.Kind.Tag() {
		return &ErrInvalidHeader{
			Filename: l.Filename,
			Reason:   "unknown filetype " + strings.TrimSpace(filetype),
		}
	}

	version, err := readLine()
	if err != nil {
		return err
	}
	if strings.TrimRight(version, "\n") != Version {
		return &ErrInvalidHeader{
			Filename: l.Filename,
			Reason:   "unknown version " + strings.TrimSpace(version),
		}
	}

	l.Meta = make(map[string]string)
	for {
		line, err := readLine()
		if err != nil {
			return err
		}
		if line == "\n" || line == "\r\n" {
			break
		}
		kv := strings.SplitN(strings.TrimRight(line, "\r\n"), ": ", 2)
		if len(kv) == 2 {
			l.Meta[kv[0]] = kv[1]
		}
	}

	// The bufio reader read ahead; put the file back at the first record.
	if _, err := l.f.Seek(consumed, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	l.headerEnd = consumed
	return nil
}

// Rows returns the number of records read from this file across all
// cursors closed so far.
func (l *Xlog) Rows() int64 {
	return l.rows
}

// Close closes the underlying file.
func (l *Xlog) Close() error {
	return errors.WithStack(l.f.Close())
}
