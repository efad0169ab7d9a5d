// Package txn implements the single-row transaction coordinator: it
// couples an in-memory tuple replacement against the write ahead log and
// guarantees that, whenever the task's transaction slot is cleared, the
// engine state matches what the log recorded.
package txn

import (
	"time"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinybox/box/metrics"
	"github.com/pingcap-incubator/tinybox/box/port"
	"github.com/pingcap-incubator/tinybox/box/region"
	"github.com/pingcap-incubator/tinybox/box/space"
	"github.com/pingcap-incubator/tinybox/box/tuple"
	"github.com/pingcap-incubator/tinybox/box/wal"
	"github.com/pingcap-incubator/tinybox/box/xlog"
)

// Task is the cooperative unit transactions are scoped to. It owns the
// scratch region and the current-transaction slot; there is never more
// than one live transaction per task.
type Task struct {
	// Region is the task's scratch allocator, reset on every
	// transaction terminal transition.
	Region region.Region

	cur *Txn
}

// NewTask returns a fresh task with an empty transaction slot.
func NewTask() *Task {
	return &Task{}
}

// Txn returns the task's live transaction, or nil.
func (t *Task) Txn() *Txn {
	return t.cur
}

// Trigger observes a transaction's terminal transition. Commit and
// rollback triggers must not fail; there is deliberately no error
// return.
type Trigger func(*Txn)

// Txn is one single-row transaction.
type Txn struct {
	task *Task
	c    *Coordinator

	// OldTuple is the tuple the engine actually displaced; NewTuple the
	// one installed. Either may be nil for a pure insert or delete.
	OldTuple *tuple.Tuple
	NewTuple *tuple.Tuple

	// Space is set once the first (and only) replace runs.
	Space *space.Space

	// Row is the redo record slated for logging; injected by the caller
	// or synthesized by AddRedo.
	Row *xlog.Row

	onCommit   []Trigger
	onRollback []Trigger
}

// OnCommit appends a trigger fired after the log write succeeds.
func (txn *Txn) OnCommit(fn Trigger) {
	txn.onCommit = append(txn.onCommit, fn)
}

// OnRollback appends a trigger fired when the transaction rolls back.
func (txn *Txn) OnRollback(fn Trigger) {
	txn.onRollback = append(txn.onRollback, fn)
}

// Coordinator drives transactions against a WAL writer. One coordinator
// serves the whole process; per-task state lives in Task.
type Coordinator struct {
	wal *wal.Writer

	// TooLongThreshold bounds how long a log write may take before the
	// commit path complains. Observational only.
	TooLongThreshold time.Duration
}

// NewCoordinator wires a coordinator to its log writer.
func NewCoordinator(w *wal.Writer, tooLong time.Duration) *Coordinator {
	return &Coordinator{wal: w, TooLongThreshold: tooLong}
}

// Begin starts a transaction on task. Fails if one is already live
// there.
func (c *Coordinator) Begin(task *Task) (*Txn, error) {
	if task.cur != nil {
		return nil, &ErrTxnAlreadyActive{}
	}
	txn := &Txn{task: task, c: c}
	task.cur = txn
	return txn, nil
}

// Replace asks the space's engine to swap old for new. The tuple the
// engine actually displaced is remembered so rollback can reinstate it,
// and a reference is taken on new for the transaction's lifetime.
// On an engine error the engine has already restored its state; the
// caller should roll back.
func (txn *Txn) Replace(s *space.Space, old, new *tuple.Tuple, mode space.DupMode) error {
	if old == nil && new == nil {
		panic("txn: replace with neither old nor new tuple")
	}
	displaced, err := s.Engine.Replace(s, old, new, mode)
	if err != nil {
		return err
	}
	// Remember the tuple that was really displaced, not the one the
	// caller guessed, so rollback does not remove somebody else's
	// insert.
	txn.OldTuple = displaced
	if new != nil {
		txn.NewTuple = new
		txn.NewTuple.Ref(1)
	}
	txn.Space = s
	if len(s.OnReplace) > 0 {
		s.RunReplaceTriggers(txn.OldTuple, txn.NewTuple)
	}
	return nil
}

// AddRedo attaches the redo record for the mutation: the caller's
// pre-built header if it has one, otherwise a row synthesized from the
// request with its body encoded into the task's scratch region. With
// logging off and no pre-built header the transaction stays rowless.
func (txn *Txn) AddRedo(req Request) error {
	txn.Row = req.Header()
	if txn.c.wal.Mode() == wal.ModeNone || req.Header() != nil {
		return nil
	}
	body, err := req.EncodeBody(&txn.task.Region)
	if err != nil {
		return err
	}
	txn.Row = &xlog.Row{Type: req.Type(), Cookie: req.Cookie(), Body: body}
	return nil
}

// Commit writes the redo record through the log, fires commit triggers,
// delivers the visible tuple to p and finishes the transaction. On a
// log error the engine still holds the new state and the caller must
// roll back.
func (txn *Txn) Commit(p port.Port) error {
	if txn.task.cur != txn {
		panic("txn: commit of a transaction that is not current")
	}
	if (txn.OldTuple != nil || txn.NewTuple != nil) && !txn.Space.Temporary {
		// AddRedo must have run before Commit whenever logging is on.
		if txn.c.wal.Mode() != wal.ModeNone && txn.Row == nil {
			panic("txn: commit without a redo record")
		}
		start := time.Now()
		_, err := txn.c.wal.Write(txn.Row)
		elapsed := time.Since(start)
		if elapsed > txn.c.TooLongThreshold && txn.Row != nil {
			log.Warn("too long write",
				zap.String("request", TypeName(txn.Row.Type)),
				zap.Duration("elapsed", elapsed))
		}
		if err != nil {
			return &ErrWalIO{Err: err}
		}
	}
	for _, fn := range txn.onCommit {
		fn(txn)
	}
	if t := txn.visibleTuple(); t != nil {
		p.AddTuple(t)
	}
	txn.finish()
	metrics.TxnCommits.Inc()
	return nil
}

// visibleTuple is what the request made visible: the new tuple, or for
// a delete the one that was removed.
func (txn *Txn) visibleTuple() *tuple.Tuple {
	if txn.NewTuple != nil {
		return txn.NewTuple
	}
	return txn.OldTuple
}

// finish follows Commit on success. It is separate so the displaced
// tuple can be delivered to the port before its reference is dropped.
func (txn *Txn) finish() {
	txn.OldTuple.Ref(-1)
	if txn.Space != nil {
		txn.Space.Engine.TxnFinish(txn.Space)
	}
	txn.task.cur = nil
	txn.task.Region.Free()
}

// Rollback aborts the task's live transaction, if any: the engine is
// restored to its pre-transaction state by force-inserting the old
// tuple back over the new one, rollback triggers fire, and the
// reference taken on the new tuple is dropped.
func (c *Coordinator) Rollback(task *Task) {
	txn := task.cur
	if txn == nil {
		return
	}
	if txn.OldTuple != nil || txn.NewTuple != nil {
		if _, err := txn.Space.Engine.Replace(txn.Space, txn.NewTuple,
			txn.OldTuple, space.DupInsert); err != nil {
			panic("txn: engine failed to restore state on rollback: " + err.Error())
		}
		for _, fn := range txn.onRollback {
			fn(txn)
		}
		txn.NewTuple.Ref(-1)
	}
	task.cur = nil
	task.Region.Free()
	metrics.TxnRollbacks.Inc()
}
