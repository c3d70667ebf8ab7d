package pts

import (
	"bufio"
	"fmt"

	"github.com/rs/zerolog"
)

// Writer (the "emitter" of spec.md §4.3) holds the state of the last
// successfully emitted row and turns a Row into one appended data-file
// line, enforcing ordering and delta-encoding the timestamp as it goes.
type Writer struct {
	out           *bufio.Writer
	coarseFactor  int64
	forceOrdering bool
	logger        zerolog.Logger

	hasEmitted bool
	lastCoarse int64
	lastValues []float64
	everSet    uint64
}

// NewWriter creates a Writer appending encoded records to out. n is the
// schema width at the time the writer is constructed.
func NewWriter(out *bufio.Writer, n int, coarseFactor int64, forceOrdering bool, logger zerolog.Logger) *Writer {
	return &Writer{
		out:           out,
		coarseFactor:  coarseFactor,
		forceOrdering: forceOrdering,
		logger:        logger.With().Str("component", "pts-writer").Logger(),
		lastValues:    make([]float64, n),
	}
}

// Emit writes row as the next record. The first row ever emitted is
// always written as an absolute reset; later rows are written as a delta
// from the last emitted row's coarsened timestamp. A negative delta fails
// with ErrOutOfOrder unless ForceOrdering is set, in which case it is
// clamped to reuse the previous coarsened timestamp.
func (w *Writer) Emit(row *Row) error {
	coarse := row.Timestamp / w.coarseFactor

	var tsField int64
	newCoarse := coarse
	if !w.hasEmitted {
		tsField = -coarse
	} else {
		delta := coarse - w.lastCoarse
		if delta < 0 {
			if !w.forceOrdering {
				return fmt.Errorf("%w: row coarse time %d precedes last emitted coarse time %d", ErrOutOfOrder, coarse, w.lastCoarse)
			}
			w.logger.Debug().
				Int64("timestamp", row.Timestamp).
				Int64("last_coarse", w.lastCoarse).
				Msg("clamping out-of-order row to previous coarsened time")
			tsField = 0
			newCoarse = w.lastCoarse
		} else {
			tsField = delta
		}
	}

	writtenBits, err := EncodeRow(w.out, tsField, row, w.lastValues, w.everSet)
	if err != nil {
		return fmt.Errorf("pts: emit: %w", err)
	}

	for i := 0; i < len(row.Values); i++ {
		if writtenBits&(1<<uint(i)) != 0 {
			w.lastValues[i] = row.Values[i]
		}
	}
	w.everSet |= writtenBits
	w.hasEmitted = true
	w.lastCoarse = newCoarse
	return nil
}
