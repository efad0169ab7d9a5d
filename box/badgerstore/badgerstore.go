package badgerstore

import (
	"bytes"
	"os"

	"github.com/coocood/badger"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinybox/box/space"
	"github.com/pingcap-incubator/tinybox/box/tuple"
)

// KeyFunc extracts the primary key from a tuple's data.
type KeyFunc func(data []byte) []byte

// Engine is a durable storage engine over a badger key/value database.
// It satisfies the same capability interface as memtx, so a space can be
// moved between the two without touching the transaction coordinator.
type Engine struct {
	db    *badger.DB
	keyFn KeyFunc
}

var _ space.Engine = &Engine{}

// CreateDB opens (creating if needed) a badger database at path.
func CreateDB(path string, syncWrites bool) (*badger.DB, error) {
	opts := badger.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.SyncWrites = syncWrites
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, errors.WithStack(err)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return db, nil
}

// New wraps db in an engine. keyFn may be nil, in which case the whole
// tuple data is the key.
func New(db *badger.DB, keyFn KeyFunc) *Engine {
	if keyFn == nil {
		keyFn = func(data []byte) []byte { return data }
	}
	return &Engine{db: db, keyFn: keyFn}
}

// Replace swaps the stored value for the tuple key, or deletes it when
// new is nil, and returns the displaced tuple. The engine state reflects
// the change immediately; durability of the mutation itself is the write
// ahead log's job, so the badger write is not synced here.
func (e *Engine) Replace(s *space.Space, old, new *tuple.Tuple, mode space.DupMode) (*tuple.Tuple, error) {
	var key []byte
	if new != nil {
		key = e.keyFn(new.Data())
	} else {
		key = e.keyFn(old.Data())
	}

	var dup *tuple.Tuple
	err := e.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil && err != badger.ErrKeyNotFound {
			return errors.WithStack(err)
		}
		if err == nil {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return errors.WithStack(err)
			}
			// Pointer identity does not survive a round-trip through
			// badger; a resident value equal to old stands in for it.
			if old != nil && bytes.Equal(val, old.Data()) {
				dup = old
			} else {
				dup = tuple.New(val)
			}
		}

		if dup == nil || dup != old {
			switch {
			case dup != nil && mode == space.DupInsert:
				return &space.ErrDuplicateKey{Space: s.Name, Key: key}
			case dup == nil && mode == space.DupReplace:
				return &space.ErrTupleNotFound{Space: s.Name, Key: key}
			}
		}

		if new != nil {
			return errors.WithStack(txn.Set(key, new.Data()))
		}
		if dup != nil {
			return errors.WithStack(txn.Delete(key))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dup, nil
}

// TxnFinish is the per-commit finalization hook.
func (e *Engine) TxnFinish(s *space.Space) {}

// Get returns the resident tuple for key, or nil.
func (e *Engine) Get(key []byte) (*tuple.Tuple, error) {
	var t *tuple.Tuple
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return errors.WithStack(err)
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return errors.WithStack(err)
		}
		t = tuple.New(val)
		return nil
	})
	return t, err
}

// Ascend calls fn for every resident tuple in key order until fn
// returns false.
func (e *Engine) Ascend(fn func(t *tuple.Tuple) bool) error {
	return e.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return errors.WithStack(err)
			}
			if !fn(tuple.New(val)) {
				break
			}
		}
		return nil
	})
}
