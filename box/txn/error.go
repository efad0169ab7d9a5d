package txn

import "fmt"

type ErrTxnAlreadyActive struct{}

func (e *ErrTxnAlreadyActive) Error() string {
	return "a transaction is already active on this task"
}

type ErrWalIO struct {
	Err error
}

func (e *ErrWalIO) Error() string {
	return fmt.Sprintf("failed to write to wal: %v", e.Err)
}

func (e *ErrWalIO) Cause() error { return e.Err }
