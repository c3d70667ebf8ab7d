// Command ptsdump opens a pts store and streams its full history to stdout
// as tab-separated rows. It appends no rows, but pts.Open still holds an
// append handle on the data file and creates that file if it is missing.
// It exists to exercise the
// library end to end and to give operators a quick way to eyeball a
// store's contents; it is not part of the store's own surface.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/iot-alex/pts/internal/config"
	"github.com/iot-alex/pts/internal/logger"
	"github.com/iot-alex/pts/internal/pts"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ptsdump:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	log := logger.Get("ptsdump")

	columns, err := readHeaderColumns(cfg.Store.Directory, cfg.Store.Base)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	schema, err := pts.NewSchema(columns)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	store, err := pts.Open(pts.Options{
		Directory:     cfg.Store.Directory,
		Base:          cfg.Store.Base,
		Schema:        schema,
		CoarseFactor:  cfg.Store.CoarseFactor,
		FlushInterval: cfg.Store.FlushInterval,
		ForceOrdering: cfg.Store.ForceOrdering,
		Logger:        &log,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	fmt.Fprintf(out, "timestamp\t%s\n", strings.Join(columns, "\t"))

	err = store.Stream(pts.AllTime(), func(row *pts.Row) bool {
		fmt.Fprint(out, row.Timestamp)
		for i := range columns {
			out.WriteByte('\t')
			if row.IsSet(i) {
				out.WriteString(strconv.FormatFloat(row.Values[i], 'g', -1, 64))
			}
		}
		out.WriteByte('\n')
		return true
	})
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	return nil
}

// readHeaderColumns reads just the column list out of the store's header
// file, without validating or opening it for write.
func readHeaderColumns(dir, base string) ([]string, error) {
	path := dir + string(os.PathSeparator) + base + ".pts.hdr"
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	_, columns, err := pts.ReadHeader(f)
	return columns, err
}
