package memtx

import (
	"bytes"

	"github.com/google/btree"

	"github.com/pingcap-incubator/tinybox/box/space"
	"github.com/pingcap-incubator/tinybox/box/tuple"
)

var _ btree.Item = &tupleItem{}

type tupleItem struct {
	key []byte
	tup *tuple.Tuple
}

// Less returns true if the item key is less than the other.
func (i *tupleItem) Less(other btree.Item) bool {
	return bytes.Compare(i.key, other.(*tupleItem).key) < 0
}

const btreeDegree = 32

// KeyFunc extracts the primary key from a tuple's data.
type KeyFunc func(data []byte) []byte

// Engine is the in-memory storage engine: a single ordered primary index
// over tuple keys. It does no reference counting; tuple lifetime is the
// transaction coordinator's job.
//
// Writes are expected to come from one task at a time; readers may
// iterate between writes.
type Engine struct {
	tree  *btree.BTree
	keyFn KeyFunc
}

var _ space.Engine = &Engine{}

// New creates an engine. keyFn may be nil, in which case the whole tuple
// data is the key.
func New(keyFn KeyFunc) *Engine {
	if keyFn == nil {
		keyFn = func(data []byte) []byte { return data }
	}
	return &Engine{
		tree:  btree.New(btreeDegree),
		keyFn: keyFn,
	}
}

// Replace swaps index state: it removes the resident tuple for the key
// (if any) and installs new in its place, or deletes the entry outright
// when new is nil. The displaced tuple is returned. mode constrains what
// counts as a legal collision; a resident tuple identical to old is
// always legal, so a rollback can force its tuple back in.
func (e *Engine) Replace(s *space.Space, old, new *tuple.Tuple, mode space.DupMode) (*tuple.Tuple, error) {
	var key []byte
	if new != nil {
		key = e.keyFn(new.Data())
	} else {
		key = e.keyFn(old.Data())
	}

	var dup *tuple.Tuple
	if it := e.tree.Get(&tupleItem{key: key}); it != nil {
		dup = it.(*tupleItem).tup
	}

	if dup == nil || dup != old {
		switch {
		case dup != nil && mode == space.DupInsert:
			return nil, &space.ErrDuplicateKey{Space: s.Name, Key: key}
		case dup == nil && mode == space.DupReplace:
			return nil, &space.ErrTupleNotFound{Space: s.Name, Key: key}
		}
	}

	if new != nil {
		e.tree.ReplaceOrInsert(&tupleItem{key: key, tup: new})
	} else if dup != nil {
		e.tree.Delete(&tupleItem{key: key})
	}
	return dup, nil
}

// TxnFinish is the per-commit finalization hook. The in-memory engine
// has nothing to flush.
func (e *Engine) TxnFinish(s *space.Space) {}

// Get returns the resident tuple for key, or nil.
func (e *Engine) Get(key []byte) *tuple.Tuple {
	if it := e.tree.Get(&tupleItem{key: key}); it != nil {
		return it.(*tupleItem).tup
	}
	return nil
}

// Len returns the number of resident tuples.
func (e *Engine) Len() int {
	return e.tree.Len()
}

// Ascend calls fn for every resident tuple in key order until fn
// returns false.
func (e *Engine) Ascend(fn func(t *tuple.Tuple) bool) {
	e.tree.Ascend(func(it btree.Item) bool {
		return fn(it.(*tupleItem).tup)
	})
}
