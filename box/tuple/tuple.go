package tuple

import (
	"go.uber.org/atomic"
)

// Tuple is a reference-counted immutable byte record. The transaction
// core never looks inside the data; engines interpret it through their
// own key functions.
type Tuple struct {
	refs atomic.Int32
	data []byte
}

// New wraps data in a tuple with a zero reference count. The first owner
// (an index, a transaction) takes its reference explicitly.
func New(data []byte) *Tuple {
	return &Tuple{data: data}
}

// Data returns the record bytes. Callers must not modify them.
func (t *Tuple) Data() []byte {
	return t.data
}

// Ref adjusts the reference count by delta.
func (t *Tuple) Ref(delta int32) {
	if t == nil {
		return
	}
	if n := t.refs.Add(delta); n < 0 {
		panic("tuple: reference count went negative")
	}
}

// Refs returns the current reference count.
func (t *Tuple) Refs() int32 {
	if t == nil {
		return 0
	}
	return t.refs.Load()
}
