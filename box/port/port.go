package port

import "github.com/pingcap-incubator/tinybox/box/tuple"

// Port receives the tuples a request makes visible. The commit path
// calls AddTuple exactly once per successful commit that produced one.
type Port interface {
	AddTuple(t *tuple.Tuple)
}

// Buffer is a Port that collects tuples in memory.
type Buffer struct {
	Tuples []*tuple.Tuple
}

func (b *Buffer) AddTuple(t *tuple.Tuple) {
	b.Tuples = append(b.Tuples, t)
}

// Null is a Port that drops everything.
type Null struct{}

func (Null) AddTuple(t *tuple.Tuple) {}
