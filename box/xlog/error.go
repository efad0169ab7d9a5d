package xlog

import "fmt"

type ErrInvalidHeader struct {
	Filename string
	Reason   string
}

func (e *ErrInvalidHeader) Error() string {
	return fmt.Sprintf("%s: invalid header: %s", e.Filename, e.Reason)
}

type ErrCorruptRecord struct {
	Filename string
	Offset   int64
}

func (e *ErrCorruptRecord) Error() string {
	return fmt.Sprintf("%s: corrupt record stream after offset %d", e.Filename, e.Offset)
}
