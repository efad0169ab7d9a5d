package wal

import (
	"os"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinybox/box/xlog"
)

const inprogressSuffix = ".inprogress"

// RowSource streams the rows of a snapshot. emit must be called once
// per row; an error from emit aborts the stream.
type RowSource func(emit func(*xlog.Row) error) error

// SaveSnapshot streams source into <sig>.snap, writing through an
// in-progress file that is renamed into place only after it is sealed
// and synced. sig is the LSN the snapshot is consistent at.
func SaveSnapshot(dir *xlog.Dir, sig int64, meta map[string]string, source RowSource) error {
	final := dir.Format(sig)
	tmp := final + inprogressSuffix

	app, err := xlog.Create(tmp, dir.Kind, meta, 1)
	if err != nil {
		return err
	}

	err = source(func(row *xlog.Row) error {
		_, err := app.Append(row)
		return err
	})
	if err != nil {
		app.Close()
		os.Remove(tmp)
		return err
	}
	if err := app.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	log.Info("saved snapshot", zap.Int64("signature", sig),
		zap.Int64("rows", app.Rows()))
	return nil
}
