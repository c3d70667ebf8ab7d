package pts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerSuffix = ".pts.hdr"
	dataSuffix   = ".pts.data"
)

// Exists reports whether both the header and data file for base already
// exist inside the container directory dir.
func Exists(dir, base string) bool {
	_, herr := os.Stat(filepath.Join(dir, base+headerSuffix))
	_, derr := os.Stat(filepath.Join(dir, base+dataSuffix))
	return herr == nil && derr == nil
}

// Repository owns the pair of files backing one store: `<base>.pts.hdr`
// and `<base>.pts.data` inside a container directory.
type Repository struct {
	headerPath string
	dataPath   string
	dataFile   *os.File
	writer     *bufio.Writer
	logger     zerolog.Logger
}

// OpenRepository validates or creates the header against schema, creates
// the data file (with a leading open-timestamp comment) if absent, and
// opens an appending write handle. It fails fatally — without touching
// either file further — if the data file exists without a header, if the
// header's version exceeds supportedVersion, or if the header's columns
// are not a prefix of schema's.
func OpenRepository(dir, base string, schema *Schema, supportedVersion uint32, logger zerolog.Logger) (*Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pts: create container directory: %w", err)
	}

	headerPath := filepath.Join(dir, base+headerSuffix)
	dataPath := filepath.Join(dir, base+dataSuffix)

	_, headerErr := os.Stat(headerPath)
	_, dataErr := os.Stat(dataPath)
	headerExists := headerErr == nil
	dataExists := dataErr == nil

	if dataExists && !headerExists {
		return nil, ErrDataWithoutHeader
	}

	if headerExists {
		if err := validateOrGrowHeader(headerPath, schema, supportedVersion); err != nil {
			return nil, err
		}
	} else if err := createHeader(headerPath, schema, supportedVersion); err != nil {
		return nil, err
	}

	if !dataExists {
		if err := createDataFile(dataPath); err != nil {
			return nil, err
		}
	}

	dataFile, err := os.OpenFile(dataPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pts: open data file for append: %w", err)
	}

	return &Repository{
		headerPath: headerPath,
		dataPath:   dataPath,
		dataFile:   dataFile,
		writer:     bufio.NewWriter(dataFile),
		logger:     logger.With().Str("component", "pts-repository").Logger(),
	}, nil
}

func createHeader(headerPath string, schema *Schema, version uint32) error {
	f, err := os.OpenFile(headerPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("pts: create header: %w", err)
	}
	defer f.Close()
	if err := WriteHeader(f, version, schema.Columns()); err != nil {
		return fmt.Errorf("pts: write header: %w", err)
	}
	return nil
}

func createDataFile(dataPath string) error {
	f, err := os.OpenFile(dataPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("pts: create data file: %w", err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "# opened %s session=%s\n", time.Now().UTC().Format(time.RFC3339), uuid.NewString())
	if err != nil {
		return fmt.Errorf("pts: write open comment: %w", err)
	}
	return nil
}

func validateOrGrowHeader(headerPath string, schema *Schema, supportedVersion uint32) error {
	f, err := os.Open(headerPath)
	if err != nil {
		return fmt.Errorf("pts: open header: %w", err)
	}
	defer f.Close()

	hv, names, err := ReadHeader(f)
	if err != nil {
		return fmt.Errorf("pts: read header: %w", err)
	}
	if hv > supportedVersion {
		return fmt.Errorf("%w: header version %d, supported %d", ErrUnsupportedVersion, hv, supportedVersion)
	}

	want := schema.Columns()
	if len(names) > len(want) {
		return fmt.Errorf("%w: header has %d columns, schema has %d", ErrSchemaMismatch, len(names), len(want))
	}
	for i, n := range names {
		if n != want[i] {
			return fmt.Errorf("%w: header column %d is %q, schema has %q", ErrSchemaMismatch, i, n, want[i])
		}
	}
	if len(names) == len(want) {
		return nil
	}

	// Header is a strict, shorter prefix of the caller's schema: grow it.
	hf, err := os.OpenFile(headerPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("pts: rewrite header: %w", err)
	}
	defer hf.Close()
	if err := WriteHeader(hf, supportedVersion, want); err != nil {
		return fmt.Errorf("pts: rewrite header: %w", err)
	}
	return nil
}

// AppendWriter returns the live buffered writer new records are encoded
// into. Only the store's Writer may write to it.
func (r *Repository) AppendWriter() *bufio.Writer {
	return r.writer
}

// NewReader opens a fresh sequential handle onto the data file from its
// very beginning. Multiple readers may be open concurrently; each sees
// only bytes flushed to the operating system so far.
func (r *Repository) NewReader() (io.ReadCloser, error) {
	f, err := os.Open(r.dataPath)
	if err != nil {
		return nil, fmt.Errorf("pts: open reader: %w", err)
	}
	return f, nil
}

// Flush pushes the append handle's buffered bytes to the operating system.
func (r *Repository) Flush() error {
	if err := r.writer.Flush(); err != nil {
		return fmt.Errorf("pts: flush: %w", err)
	}
	return nil
}

// Close flushes and releases the append handle. Idempotent.
func (r *Repository) Close() error {
	if r.dataFile == nil {
		return nil
	}
	ferr := r.Flush()
	cerr := r.dataFile.Close()
	r.dataFile = nil
	if ferr != nil {
		return ferr
	}
	if cerr != nil {
		return fmt.Errorf("pts: close data file: %w", cerr)
	}
	return nil
}
