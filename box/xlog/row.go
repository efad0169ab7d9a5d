package xlog

import (
	"encoding/binary"
	"math"
)

// Frame layout after the row marker:
//
//	header_crc32c  u32   over bytes [8, 32) of the frame
//	lsn            i64
//	tm             f64   seconds
//	len            u32   length of the body
//	data_crc32c    u32   over the body
//	body           len bytes: tag u16 | cookie u64 | payload
const (
	frameHeaderSize = 32
	rowHeadSize     = 2 + 8 // tag + cookie at the head of the body
)

// Row is a decoded redo record.
type Row struct {
	LSN    int64
	Tm     float64
	Type   uint16
	Cookie uint64

	// Body holds the payload as scatter segments; the appender
	// concatenates them on disk, the cursor returns a single segment.
	Body [][]byte
}

// BodyLen returns the total payload length.
func (r *Row) BodyLen() int {
	n := 0
	for _, seg := range r.Body {
		n += len(seg)
	}
	return n
}

// BodyBytes returns the payload as one contiguous slice.
func (r *Row) BodyBytes() []byte {
	if len(r.Body) == 1 {
		return r.Body[0]
	}
	buf := make([]byte, 0, r.BodyLen())
	for _, seg := range r.Body {
		buf = append(buf, seg...)
	}
	return buf
}

// encodeFrame appends the full on-disk frame (marker included) to buf.
func (r *Row) encodeFrame(buf []byte) []byte {
	bodyLen := rowHeadSize + r.BodyLen()

	body := make([]byte, rowHeadSize, bodyLen)
	binary.LittleEndian.PutUint16(body[0:2], r.Type)
	binary.LittleEndian.PutUint64(body[2:10], r.Cookie)
	for _, seg := range r.Body {
		body = append(body, seg...)
	}

	var frame [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(frame[0:4], RowMarker)
	binary.LittleEndian.PutUint64(frame[8:16], uint64(r.LSN))
	binary.LittleEndian.PutUint64(frame[16:24], math.Float64bits(r.Tm))
	binary.LittleEndian.PutUint32(frame[24:28], uint32(bodyLen))
	binary.LittleEndian.PutUint32(frame[28:32], crc32c(body))
	binary.LittleEndian.PutUint32(frame[4:8], crc32c(frame[8:32]))

	buf = append(buf, frame[:]...)
	return append(buf, body...)
}
