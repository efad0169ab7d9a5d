package xlog

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinybox/box/metrics"
	"github.com/pingcap-incubator/tinybox/box/region"
)

// Cursor is the streaming record reader. It survives torn and corrupted
// records by scanning forward for the next row marker, and never trusts
// a record whose checksums do not match.
//
// good_offset points just past the last successfully decoded record (or
// past the header initially, or past the EOF marker once that has been
// read); a crash-truncated tail shows up
// as "no more rows" with good_offset marking the durable boundary.
type Cursor struct {
	log *Xlog
	gc  *region.Region

	goodOffset int64
	rowCount   int64
	eofRead    bool
	skipped    int64
}

// errBadRow marks a record that failed CRC or length validation; the
// cursor resyncs past it.
var errBadRow = errors.New("xlog: bad row")

const gcLimit = 128 * 1024

// NewCursor positions a cursor at the file's current offset. Decoded
// bodies are allocated from gc and stay valid until the region's next
// reset; callers keeping rows longer copy them out.
func NewCursor(l *Xlog, gc *region.Region) (*Cursor, error) {
	off, err := l.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Cursor{log: l, gc: gc, goodOffset: off}, nil
}

// RowCount returns the number of records decoded by this cursor.
func (c *Cursor) RowCount() int64 { return c.rowCount }

// EOFRead reports whether the file's EOF marker was seen: true means the
// file was cleanly sealed.
func (c *Cursor) EOFRead() bool { return c.eofRead }

// GoodOffset returns the byte offset just past the last good record, or
// past the EOF marker of a sealed file once it has been read.
func (c *Cursor) GoodOffset() int64 { return c.goodOffset }

// SkippedBytes returns the total number of bytes resynced over.
func (c *Cursor) SkippedBytes() int64 { return c.skipped }

// Next returns the next record, or io.EOF when there are none left.
// io.EOF does not imply the file is sealed; check EOFRead.
func (c *Cursor) Next() (*Row, error) {
	if c.eofRead {
		return nil, io.EOF
	}

	// Keep the scratch pool bounded on long scans. Rows returned by
	// earlier Next calls die here.
	c.gc.FreeAfter(gcLimit)

	f := c.log.f
	if _, err := f.Seek(c.goodOffset, io.SeekStart); err != nil {
		return nil, errors.WithStack(err)
	}

	scanFrom := c.goodOffset
	for {
		markerOffset, err := c.findMarker(scanFrom)
		if err == io.EOF {
			return nil, c.finishEOF()
		}
		if err != nil {
			return nil, err
		}
		if markerOffset != c.goodOffset {
			log.Warn("skipped bytes while looking for row marker",
				zap.String("file", c.log.Filename),
				zap.Int64("bytes", markerOffset-c.goodOffset),
				zap.Int64("offset", c.goodOffset))
		}

		row, err := c.readRow()
		if err == io.EOF {
			return nil, c.finishEOF()
		}
		if err == errBadRow {
			log.Warn("failed to read row, resyncing",
				zap.String("file", c.log.Filename),
				zap.Int64("offset", markerOffset))
			scanFrom = markerOffset + 1
			if _, err := f.Seek(scanFrom, io.SeekStart); err != nil {
				return nil, errors.WithStack(err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		if markerOffset != c.goodOffset {
			skipped := markerOffset - c.goodOffset
			c.skipped += skipped
			metrics.CursorSkippedBytes.Add(float64(skipped))
		}
		end, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		c.goodOffset = end
		c.rowCount++
		return row, nil
	}
}

// findMarker reads 4 bytes at from and, if they are not the row marker,
// slides a one-byte window forward until it is. Returns the marker's
// offset, leaving the file positioned just past it. io.EOF means the
// scan ran off the end of the file.
func (c *Cursor) findMarker(from int64) (int64, error) {
	f := c.log.f
	var buf [4]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return 0, io.EOF
	}
	magic := binary.LittleEndian.Uint32(buf[:])
	offset := from
	var one [1]byte
	for magic != RowMarker {
		if _, err := f.Read(one[:]); err != nil {
			log.Debug("eof while looking for row marker",
				zap.String("file", c.log.Filename))
			return 0, io.EOF
		}
		magic = magic>>8 | uint32(one[0])<<24
		offset++
	}
	return offset, nil
}

// readRow decodes the frame that follows a row marker. io.EOF reports a
// short read (torn tail), errBadRow a checksum or length mismatch.
func (c *Cursor) readRow() (*Row, error) {
	f := c.log.f

	var hdr [frameHeaderSize - 4]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return nil, io.EOF
	}

	headerCRC := binary.LittleEndian.Uint32(hdr[0:4])
	if crc32c(hdr[4:]) != headerCRC {
		log.Warn("header crc32c mismatch", zap.String("file", c.log.Filename))
		return nil, errBadRow
	}

	lsn := int64(binary.LittleEndian.Uint64(hdr[4:12]))
	tm := math.Float64frombits(binary.LittleEndian.Uint64(hdr[12:20]))
	bodyLen := binary.LittleEndian.Uint32(hdr[20:24])
	dataCRC := binary.LittleEndian.Uint32(hdr[24:28])

	if bodyLen < rowHeadSize {
		return nil, errBadRow
	}

	body := c.gc.Alloc(int(bodyLen))
	if _, err := io.ReadFull(f, body); err != nil {
		return nil, io.EOF
	}
	if crc32c(body) != dataCRC {
		log.Warn("data crc32c mismatch", zap.String("file", c.log.Filename),
			zap.Int64("lsn", lsn))
		return nil, errBadRow
	}

	return &Row{
		LSN:    lsn,
		Tm:     tm,
		Type:   binary.LittleEndian.Uint16(body[0:2]),
		Cookie: binary.LittleEndian.Uint64(body[2:10]),
		Body:   [][]byte{body[rowHeadSize:]},
	}, nil
}

// finishEOF decides what running out of bytes means. A file whose
// remaining tail is exactly one magic is either sealed (EOF marker, note
// it and stop) or still being written to (row marker, keep quiet); any
// other 4-byte tail is a corrupt seal. Always reports io.EOF to the
// caller: there are no more rows either way.
func (c *Cursor) finishEOF() error {
	f := c.log.f
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return errors.WithStack(err)
	}
	if size != c.goodOffset+4 {
		return io.EOF
	}
	if _, err := f.Seek(c.goodOffset, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	var buf [4]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		log.Error("can't read eof marker", zap.String("file", c.log.Filename))
		return io.EOF
	}
	switch magic := binary.LittleEndian.Uint32(buf[:]); magic {
	case EOFMarker:
		c.goodOffset += 4
		c.eofRead = true
	case RowMarker:
		// A bare row marker at the tail: the file is still being
		// written to. The caller decides whether that is acceptable.
	default:
		log.Error("eof marker is corrupt", zap.String("file", c.log.Filename),
			zap.Uint32("magic", magic))
	}
	return io.EOF
}

// Close rewinds the file to the last known good offset, so a later
// cursor picks up exactly where this one stopped, and resets the scratch
// region. The underlying file stays open.
func (c *Cursor) Close() error {
	c.log.rows += c.rowCount
	_, err := c.log.f.Seek(c.goodOffset, io.SeekStart)
	c.gc.Free()
	return errors.WithStack(err)
}
