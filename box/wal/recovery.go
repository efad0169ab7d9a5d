package wal

import (
	"io"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinybox/box/region"
	"github.com/pingcap-incubator/tinybox/box/xlog"
)

// Recover replays the newest snapshot, then every log row with an LSN
// past the snapshot signature, into apply. It returns the last LSN seen,
// which is where a Writer should continue from.
//
// Rows handed to apply live in recovery's scratch region; apply copies
// out anything it keeps.
//
// A torn tail on the newest log file is the normal crash signature and
// only warrants a warning; an unsealed log file anywhere earlier means
// lost records and fails recovery.
func Recover(snapDir, logDir *xlog.Dir, apply func(*xlog.Row) error) (int64, error) {
	gc := &region.Region{}
	defer gc.Free()

	var lastLSN int64

	if err := snapDir.Scan(); err != nil {
		return 0, err
	}
	if snaps := snapDir.Signatures(); len(snaps) > 0 {
		sig := snaps[len(snaps)-1]
		sealed, _, err := replayFile(snapDir, sig, gc, 0, apply)
		if err != nil {
			return 0, err
		}
		if !sealed {
			return 0, &xlog.ErrCorruptRecord{Filename: snapDir.Format(sig), Offset: 0}
		}
		lastLSN = sig
		log.Info("recovered snapshot", zap.Int64("signature", sig))
	}

	if err := logDir.Scan(); err != nil {
		return 0, err
	}
	sigs := logDir.Signatures()
	for i, sig := range sigs {
		sealed, fileLast, err := replayFile(logDir, sig, gc, lastLSN, apply)
		if err != nil {
			return 0, err
		}
		if fileLast > lastLSN {
			lastLSN = fileLast
		}
		if !sealed {
			if i != len(sigs)-1 {
				return 0, errors.Errorf("%s: unsealed log is not the newest one",
					logDir.Format(sig))
			}
			log.Warn("last log file has no eof marker, assuming crash",
				zap.String("file", logDir.Format(sig)))
		}
	}
	return lastLSN, nil
}

// replayFile feeds every row with LSN > afterLSN to apply. Returns
// whether the file was sealed and the last LSN it contained.
func replayFile(dir *xlog.Dir, sig int64, gc *region.Region, afterLSN int64,
	apply func(*xlog.Row) error) (sealed bool, lastLSN int64, err error) {

	l, err := dir.OpenForRead(sig)
	if err != nil {
		return false, 0, err
	}
	defer l.Close()

	cur, err := xlog.NewCursor(l, gc)
	if err != nil {
		return false, 0, err
	}
	defer cur.Close()

	for {
		row, err := cur.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, lastLSN, err
		}
		if row.LSN > lastLSN {
			lastLSN = row.LSN
		}
		if row.LSN <= afterLSN {
			continue
		}
		if err := apply(row); err != nil {
			return false, lastLSN, errors.Annotatef(err, "applying lsn %d", row.LSN)
		}
	}
	return cur.EOFRead(), lastLSN, nil
}
