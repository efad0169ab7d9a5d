package xlog

import (
	"fmt"
	"io/ioutil"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Dir names and enumerates the files of one kind living in a directory.
// Filenames are the decimal signature (the file's first LSN) plus the
// kind's extension.
type Dir struct {
	Dirname string
	Kind    Kind

	sigs []int64
}

// NewDir wraps dirname without touching the filesystem; call Scan to
// populate the signature index.
func NewDir(dirname string, kind Kind) *Dir {
	return &Dir{Dirname: dirname, Kind: kind}
}

// Scan rebuilds the ordered signature index from the directory contents.
// Entries without the expected extension are skipped silently; entries
// with it whose signature does not parse are skipped with a warning.
// The stored index is replaced
// atomically: on error the previous index survives.
func (d *Dir) Scan() error {
	entries, err := ioutil.ReadDir(d.Dirname)
	if err != nil {
		return errors.Annotatef(err, "error reading directory %s", d.Dirname)
	}

	ext := d.Kind.Ext()
	sigs := make([]int64, 0, len(entries))
	for _, ent := range entries {
		name := ent.Name()
		dot := strings.Index(name, ".")
		if dot < 0 {
			continue
		}
		if name[dot:] != ext {
			continue
		}
		sig, err := strconv.ParseInt(name[:dot], 10, 64)
		if err != nil || sig == math.MaxInt64 || sig == math.MinInt64 {
			log.Warn("can't parse filename, skipping",
				zap.String("dir", d.Dirname), zap.String("name", name))
			continue
		}
		sigs = append(sigs, sig)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
	d.sigs = sigs
	return nil
}

// Signatures returns the index built by the last Scan, sorted ascending.
func (d *Dir) Signatures() []int64 {
	return d.sigs
}

// Format returns the full path of the file named by sig. The mapping is
// exact both ways: parsing the formatted name yields sig back.
func (d *Dir) Format(sig int64) string {
	return filepath.Join(d.Dirname, fmt.Sprintf("%020d%s", sig, d.Kind.Ext()))
}

// OpenForRead opens the file named by sig and validates its header.
func (d *Dir) OpenForRead(sig int64) (*Xlog, error) {
	return Open(d.Format(sig), d.Kind)
}

// CreateAppender creates the file named by sig for writing, with nextLSN
// as the first LSN the appender will assign.
func (d *Dir) CreateAppender(sig int64, meta map[string]string, nextLSN int64) (*Appender, error) {
	return Create(d.Format(sig), d.Kind, meta, nextLSN)
}
