package space

import "fmt"

type ErrDuplicateKey struct {
	Space string
	Key   []byte
}

func (e *ErrDuplicateKey) Error() string {
	return fmt.Sprintf("duplicate key %q in space %s", e.Key, e.Space)
}

type ErrTupleNotFound struct {
	Space string
	Key   []byte
}

func (e *ErrTupleNotFound) Error() string {
	return fmt.Sprintf("tuple with key %q not found in space %s", e.Key, e.Space)
}
