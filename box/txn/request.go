package txn

import (
	"fmt"

	"github.com/pingcap-incubator/tinybox/box/region"
	"github.com/pingcap-incubator/tinybox/box/xlog"
)

// Operation tags carried in redo records.
const (
	TypeInsert uint16 = 13
	TypeUpdate uint16 = 19
	TypeDelete uint16 = 21
)

// TypeName returns a printable name for an operation tag.
func TypeName(t uint16) string {
	switch t {
	case TypeInsert:
		return "INSERT"
	case TypeUpdate:
		return "UPDATE"
	case TypeDelete:
		return "DELETE"
	}
	return fmt.Sprintf("UNKNOWN(%d)", t)
}

// Request is an incoming mutation as the coordinator sees it. Header
// returns the caller's pre-built redo record, or nil when the request
// must be re-encoded; EncodeBody then renders the body segments, using
// gc for any buffers it needs.
type Request interface {
	Type() uint16
	Cookie() uint64
	Header() *xlog.Row
	EncodeBody(gc *region.Region) ([][]byte, error)
}

// BytesRequest is the trivial request: an operation tag over an opaque
// payload.
type BytesRequest struct {
	Op      uint16
	Tag     uint64
	Payload []byte
	Row     *xlog.Row
}

var _ Request = &BytesRequest{}

func (r *BytesRequest) Type() uint16 { return r.Op }

func (r *BytesRequest) Cookie() uint64 { return r.Tag }

func (r *BytesRequest) Header() *xlog.Row { return r.Row }

func (r *BytesRequest) EncodeBody(gc *region.Region) ([][]byte, error) {
	return [][]byte{gc.Copy(r.Payload)}, nil
}
