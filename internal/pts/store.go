package pts

import (
	"bufio"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/iot-alex/pts/internal/ptsflush"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// NoData is the sentinel FirstTime returns when the log holds no rows.
const NoData = int64(math.MaxInt64)

// DefaultCoarseFactor is the fixed factor timestamps are coarsened by for
// delta encoding and bucket merging.
const DefaultCoarseFactor = 100

// DefaultFlushInterval is how often the periodic-flush scheduler calls
// Flush when Options.FlushInterval is left zero.
const DefaultFlushInterval = 20 * time.Second

// Range is an inclusive time bound passed to Stream. Either end may be
// left unbounded via AllTime.
type Range struct {
	From int64
	To   int64
}

// AllTime returns an unbounded Range.
func AllTime() Range {
	return Range{From: math.MinInt64, To: math.MaxInt64}
}

// RowSink receives decoded rows during Stream. Returning false stops
// iteration immediately; the reader is released without reading further.
type RowSink func(row *Row) bool

// Options configures Open.
type Options struct {
	Directory     string
	Base          string
	Schema        *Schema
	CoarseFactor  int64
	FlushInterval time.Duration
	ForceOrdering bool
	Version       uint32
	Logger        *zerolog.Logger // nil defaults to a disabled (Nop) logger
	Scheduler     ptsflush.Scheduler
}

// Store is the public facade: it owns the repository, a single writer, the
// one-row pending slot, and the periodic-flush scheduler. Append, Flush,
// Close and the initial FirstTime scan are all serialized behind mu, as is
// Stream in this implementation (spec.md §5 permits concurrent readers,
// but they must see only flushed bytes and keep local decoder state —
// serializing here is simpler and still correct).
type Store struct {
	mu           sync.Mutex
	repo         *Repository
	writer       *Writer
	schema       *Schema
	coarseFactor int64
	scheduler    ptsflush.Scheduler
	logger       zerolog.Logger

	pending   *Row
	closed    bool
	firstTime int64

	flushGroup singleflight.Group
}

// Open opens (or creates) a store rooted at opts.Directory/opts.Base.
func Open(opts Options) (*Store, error) {
	if opts.Schema == nil {
		return nil, fmt.Errorf("pts: Options.Schema is required")
	}

	coarseFactor := opts.CoarseFactor
	if coarseFactor == 0 {
		coarseFactor = DefaultCoarseFactor
	}
	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = DefaultFlushInterval
	}
	version := opts.Version
	if version == 0 {
		version = CurrentVersion
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = ptsflush.NewCronScheduler(logger)
	}

	repo, err := OpenRepository(opts.Directory, opts.Base, opts.Schema, version, logger)
	if err != nil {
		return nil, err
	}

	writer := NewWriter(repo.AppendWriter(), opts.Schema.Len(), coarseFactor, opts.ForceOrdering, logger)

	st := &Store{
		repo:         repo,
		writer:       writer,
		schema:       opts.Schema,
		coarseFactor: coarseFactor,
		scheduler:    scheduler,
		logger:       logger.With().Str("component", "pts-store").Logger(),
	}
	st.firstTime = st.computeFirstTime()

	if err := scheduler.Start(flushInterval, func() {
		if ferr := st.Flush(); ferr != nil {
			st.logger.Error().Err(ferr).Msg("periodic flush failed")
		}
	}); err != nil {
		repo.Close()
		return nil, fmt.Errorf("pts: start periodic flush: %w", err)
	}

	return st, nil
}

// FirstTime returns the timestamp of the oldest row in the log, or NoData
// if the log is empty. It is computed once at Open.
func (s *Store) FirstTime() int64 {
	return s.firstTime
}

// Append buffers row in the pending slot. If the pending slot already
// holds a row in the same coarse time bucket, row is merged into it
// (spec.md §4.4); otherwise the pending row is emitted to the log and row
// becomes the new pending row. If emitting the outgoing pending row fails
// with ErrOutOfOrder, the pending slot is left untouched and the error is
// returned to the caller — the store remains usable.
func (s *Store) Append(row *Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("pts: append: store is closed")
	}

	if s.pending == nil {
		s.pending = row.Clone()
		return nil
	}

	if s.pending.Timestamp/s.coarseFactor == row.Timestamp/s.coarseFactor {
		mergeRows(s.pending, row)
		return nil
	}

	if err := s.writer.Emit(s.pending); err != nil {
		return err
	}
	s.pending = row.Clone()
	return nil
}

// mergeRows folds incoming into pending: every bit set in incoming is set
// in pending and overwrites pending's value for that column; bits only
// present in pending are kept. pending's timestamp (the earlier one of the
// bucket) is left unchanged.
func mergeRows(pending, incoming *Row) {
	n := len(pending.Values)
	if len(incoming.Values) < n {
		n = len(incoming.Values)
	}
	for i := 0; i < n; i++ {
		if incoming.Bits&(1<<uint(i)) != 0 {
			pending.Bits |= 1 << uint(i)
			pending.Values[i] = incoming.Values[i]
		}
	}
}

// Flush emits the pending row (if any) and pushes the repository's
// buffered bytes to the operating system. A Flush that arrives while
// another is already running joins that in-flight call's result instead
// of running a second, redundant emit-and-sync.
func (s *Store) Flush() error {
	_, err, _ := s.flushGroup.Do("flush", func() (interface{}, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return nil, s.flushLocked()
	})
	return err
}

func (s *Store) flushLocked() error {
	if s.pending != nil {
		if err := s.writer.Emit(s.pending); err != nil {
			return err
		}
		s.pending = nil
	}
	return s.repo.Flush()
}

// Close flushes, releases the repository handles, and cancels the
// periodic-flush scheduler. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ferr := s.flushLocked()
	s.mu.Unlock()

	s.scheduler.Stop()

	cerr := s.repo.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// Stream decodes the log sequentially and invokes sink once per row whose
// timestamp falls within rng. A false return from sink stops iteration
// immediately and releases the reader. Stream surfaces the underlying I/O
// error (if any) to the caller; a malformed record is logged and skipped,
// never aborting the stream.
func (s *Store) Stream(rng Range, sink RowSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamLocked(rng, sink)
}

func (s *Store) streamLocked(rng Range, sink RowSink) error {
	reader, err := s.repo.NewReader()
	if err != nil {
		return err
	}
	defer reader.Close()

	decoder := NewDecoder(s.schema.Len(), s.coarseFactor, rng.From, rng.To)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		row, ok, stop, derr := decoder.DecodeLine(scanner.Text())
		if derr != nil {
			s.logger.Warn().Err(derr).Msg("skipping malformed record")
			continue
		}
		if stop {
			break
		}
		if !ok {
			continue
		}
		if !sink(row) {
			break
		}
	}
	if serr := scanner.Err(); serr != nil {
		return fmt.Errorf("pts: stream: %w", serr)
	}
	return nil
}

func (s *Store) computeFirstTime() int64 {
	first := NoData
	_ = s.streamLocked(AllTime(), func(row *Row) bool {
		first = row.Timestamp
		return false
	})
	return first
}
