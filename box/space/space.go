package space

import (
	"github.com/pingcap-incubator/tinybox/box/tuple"
)

// DupMode governs what an engine does when the new tuple's key collides
// with an existing one.
type DupMode int

const (
	// DupInsert treats a collision as an error, unless the resident
	// tuple is exactly the old tuple being replaced.
	DupInsert DupMode = iota
	// DupReplace requires a resident tuple to displace.
	DupReplace
	// DupReplaceOrInsert accepts either outcome.
	DupReplaceOrInsert
)

func (m DupMode) String() string {
	switch m {
	case DupInsert:
		return "insert"
	case DupReplace:
		return "replace"
	case DupReplaceOrInsert:
		return "replace_or_insert"
	}
	return "unknown"
}

// Engine is the storage capability a space is backed by. Replace
// atomically swaps index state and returns the tuple that was actually
// displaced; TxnFinish is the engine-side finalization hook, called
// exactly once per committed transaction that touched the space.
type Engine interface {
	Replace(s *Space, old, new *tuple.Tuple, mode DupMode) (*tuple.Tuple, error)
	TxnFinish(s *Space)
}

// ReplaceTrigger observes a successful replace. old is the displaced
// tuple, new the inserted one; either may be nil. Triggers must not
// retain or modify the tuples.
type ReplaceTrigger func(s *Space, old, new *tuple.Tuple)

// Space is a logical table. The transaction core treats it as opaque
// except for the engine handle, the trigger list and the two flags.
type Space struct {
	ID   uint32
	Name string

	Engine Engine

	// OnReplace triggers fire after each successful replace while
	// RunTriggers is set.
	OnReplace   []ReplaceTrigger
	RunTriggers bool

	// Temporary spaces are not durable; their mutations bypass the log.
	Temporary bool
}

// RunReplaceTriggers fires the on-replace list in insertion order.
func (s *Space) RunReplaceTriggers(old, new *tuple.Tuple) {
	if !s.RunTriggers {
		return
	}
	for _, tr := range s.OnReplace {
		tr(s, old, new)
	}
}
