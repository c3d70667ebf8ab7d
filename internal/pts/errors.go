// Package pts implements a persistent, append-only time-series store backed
// by a pair of text files: a header describing the schema and a data file
// holding one delta-encoded record per line.
package pts

import "errors"

// Sentinel errors for the store's failure modes. SchemaMismatch,
// DataWithoutHeader and UnsupportedVersion are fatal at Open: the store
// refuses to touch the files further. OutOfOrder is returned from Append
// and leaves the pending row and the on-disk log untouched.
var (
	// ErrSchemaMismatch is returned when the on-disk header has more
	// columns than the caller's schema, or its column prefix disagrees
	// with the caller's schema.
	ErrSchemaMismatch = errors.New("pts: header schema does not match caller schema")

	// ErrDataWithoutHeader is returned when the data file exists but the
	// header does not; the schema for the existing data cannot be assumed.
	ErrDataWithoutHeader = errors.New("pts: data file present without header")

	// ErrUnsupportedVersion is returned when the header's version exceeds
	// the version this implementation supports.
	ErrUnsupportedVersion = errors.New("pts: header version is newer than supported")

	// ErrOutOfOrder is returned from Append/Flush when a row's coarsened
	// timestamp precedes the last emitted row's and ForceOrdering is false.
	ErrOutOfOrder = errors.New("pts: timestamp precedes last emitted row")

	// ErrTooManyColumns is returned when a schema would exceed MaxColumns.
	ErrTooManyColumns = errors.New("pts: schema exceeds max column count")
)
