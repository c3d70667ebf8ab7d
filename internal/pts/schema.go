package pts

import "fmt"

// MaxColumns is the hard cap on schema width imposed by the 64-bit
// bitvector used to mark which columns are present in a row.
const MaxColumns = 64

// CurrentVersion is the header version this implementation writes and the
// highest version it can read.
const CurrentVersion = 1

// Schema is an ordered, immutable list of column names. Column order is
// fixed once written to a header; a schema may only grow by appending
// names to the end, never shrink or reorder.
type Schema struct {
	columns []string
}

// NewSchema builds a Schema from an ordered column-name list.
func NewSchema(columns []string) (*Schema, error) {
	if len(columns) > MaxColumns {
		return nil, fmt.Errorf("%w: %d columns (max %d)", ErrTooManyColumns, len(columns), MaxColumns)
	}
	cp := make([]string, len(columns))
	copy(cp, columns)
	return &Schema{columns: cp}, nil
}

// Len returns the number of columns in the schema.
func (s *Schema) Len() int {
	return len(s.columns)
}

// Columns returns a copy of the ordered column names.
func (s *Schema) Columns() []string {
	cp := make([]string, len(s.columns))
	copy(cp, s.columns)
	return cp
}

// Row is a single sample: a timestamp, a bitvector marking which columns
// carry a value, and one float64 slot per schema column. Values[i] is only
// meaningful when bit i of Bits is set, except after decoding, where every
// slot carries the column's most recently known value (forward fill).
type Row struct {
	Timestamp int64
	Bits      uint64
	Values    []float64
}

// NewRow allocates a Row with n value slots, all unset.
func NewRow(timestamp int64, n int) *Row {
	return &Row{Timestamp: timestamp, Values: make([]float64, n)}
}

// Set marks column i present with value v.
func (r *Row) Set(i int, v float64) {
	r.Bits |= 1 << uint(i)
	r.Values[i] = v
}

// IsSet reports whether column i is marked present.
func (r *Row) IsSet(i int) bool {
	return r.Bits&(1<<uint(i)) != 0
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	values := make([]float64, len(r.Values))
	copy(values, r.Values)
	return &Row{Timestamp: r.Timestamp, Bits: r.Bits, Values: values}
}
