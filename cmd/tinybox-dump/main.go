package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ngaut/log"
	"github.com/spf13/cobra"

	"github.com/pingcap-incubator/tinybox/box/region"
	"github.com/pingcap-incubator/tinybox/box/xlog"
)

var (
	showBody bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tinybox-dump",
		Short: "Inspect tinybox snapshot and write ahead log files",
	}

	dumpCmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print every record of a .snap or .xlog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dump(args[0])
		},
	}
	dumpCmd.Flags().BoolVar(&showBody, "body", false, "print record bodies as hex")

	var kindName string
	scanCmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "List the file signatures of a snapshot or log directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return scan(args[0], kindName)
		},
	}
	scanCmd.Flags().StringVar(&kindName, "kind", "xlog", "directory kind: xlog or snap")

	rootCmd.AddCommand(dumpCmd, scanCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func kindOf(path string) (xlog.Kind, error) {
	switch {
	case strings.HasSuffix(path, xlog.KindSnap.Ext()):
		return xlog.KindSnap, nil
	case strings.HasSuffix(path, xlog.KindXlog.Ext()):
		return xlog.KindXlog, nil
	}
	return 0, fmt.Errorf("%s: expected a %s or %s file",
		path, xlog.KindSnap.Ext(), xlog.KindXlog.Ext())
}

func dump(path string) error {
	kind, err := kindOf(path)
	if err != nil {
		return err
	}
	l, err := xlog.Open(path, kind)
	if err != nil {
		return err
	}
	defer l.Close()

	for k, v := range l.Meta {
		fmt.Printf("# %s: %s\n", k, v)
	}

	gc := &region.Region{}
	cur, err := xlog.NewCursor(l, gc)
	if err != nil {
		return err
	}
	defer cur.Close()

	for {
		row, err := cur.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		tm := time.Unix(0, int64(row.Tm*1e9)).UTC().Format(time.RFC3339Nano)
		fmt.Printf("lsn: %d tm: %s type: %d cookie: %d len: %d\n",
			row.LSN, tm, row.Type, row.Cookie, row.BodyLen())
		if showBody {
			fmt.Printf("  %x\n", row.BodyBytes())
		}
	}

	if cur.EOFRead() {
		fmt.Printf("# %d rows, sealed\n", cur.RowCount())
	} else {
		fmt.Printf("# %d rows, no eof marker\n", cur.RowCount())
	}
	if n := cur.SkippedBytes(); n > 0 {
		log.Warnf("%s: %d corrupt bytes skipped", path, n)
	}
	return nil
}

func scan(dirname, kindName string) error {
	var kind xlog.Kind
	switch kindName {
	case "xlog":
		kind = xlog.KindXlog
	case "snap":
		kind = xlog.KindSnap
	default:
		return fmt.Errorf("unknown kind %q", kindName)
	}
	dir := xlog.NewDir(dirname, kind)
	if err := dir.Scan(); err != nil {
		return err
	}
	for _, sig := range dir.Signatures() {
		fmt.Println(dir.Format(sig))
	}
	return nil
}
