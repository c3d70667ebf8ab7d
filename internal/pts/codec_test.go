package pts

import (
	"bufio"
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadHeader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, 1, []string{"temp", "humidity", "pressure"}))

	version, columns, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), version)
	assert.Equal(t, []string{"temp", "humidity", "pressure"}, columns)
}

func TestReadHeader_EmptyColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, 1, nil))

	_, columns, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Empty(t, columns)
}

func encodeOne(t *testing.T, tsField int64, row *Row, lastValues []float64, everSet uint64) (string, uint64) {
	t.Helper()
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	bits, err := EncodeRow(w, tsField, row, lastValues, everSet)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	return buf.String(), bits
}

func TestEncodeRow_AbsoluteFirstRow(t *testing.T) {
	row := NewRow(1000, 2)
	row.Set(0, 21.5)
	row.Set(1, 55.0)

	line, bits := encodeOne(t, -10, row, make([]float64, 2), 0)
	assert.Equal(t, uint64(0x3), bits)
	assert.Equal(t, "-10\t3\t21.5\t55\n", line)
}

func TestEncodeRow_UnchangedUsesStarToken(t *testing.T) {
	row := NewRow(2000, 2)
	row.Set(0, 21.5)
	row.Set(1, 60.0)

	lastValues := []float64{21.5, 55.0}
	line, bits := encodeOne(t, 1, row, lastValues, 0x3)
	assert.Equal(t, uint64(0x3), bits)
	assert.Equal(t, "1\t3\t*\t60\n", line)
}

func TestEncodeRow_ZeroIsNotStarBeforeEverSet(t *testing.T) {
	row := NewRow(1000, 1)
	row.Set(0, 0.0)

	// lastValues is zero-initialized, but everSet is 0 for column 0: a
	// literal 0 must not be mistaken for "*".
	line, bits := encodeOne(t, -10, row, make([]float64, 1), 0)
	assert.Equal(t, uint64(0x1), bits)
	assert.Equal(t, "-10\t1\t0\n", line)
}

func TestEncodeRow_DropsNonFinite(t *testing.T) {
	row := NewRow(1000, 2)
	row.Set(0, math.NaN())
	row.Set(1, 10.0)

	line, bits := encodeOne(t, -10, row, make([]float64, 2), 0)
	assert.Equal(t, uint64(0x2), bits, "column 0's bit must not be written")
	assert.Equal(t, "-10\t2\t10\n", line)
}

func TestDecodeLine_RoundTrip(t *testing.T) {
	d := NewDecoder(2, 100, math.MinInt64, math.MaxInt64)

	row, ok, stop, err := d.DecodeLine("-10\t3\t21.5\t55")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, stop)
	assert.Equal(t, int64(1000), row.Timestamp)
	assert.Equal(t, 21.5, row.Values[0])
	assert.Equal(t, 55.0, row.Values[1])

	row, ok, stop, err = d.DecodeLine("1\t3\t*\t60")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, stop)
	assert.Equal(t, int64(1100), row.Timestamp)
	assert.Equal(t, 21.5, row.Values[0], "unchanged column forward-fills")
	assert.Equal(t, 60.0, row.Values[1])
}

func TestDecodeLine_CommentsAndBlankLines(t *testing.T) {
	d := NewDecoder(1, 100, math.MinInt64, math.MaxInt64)

	_, ok, stop, err := d.DecodeLine("# opened 2024-01-01")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, stop)

	_, ok, stop, err = d.DecodeLine("")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, stop)
}

func TestDecodeLine_BangDropsValueButKeepsForwardFill(t *testing.T) {
	d := NewDecoder(1, 100, math.MinInt64, math.MaxInt64)

	row, ok, _, err := d.DecodeLine("-10\t1\t21.5")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, row.IsSet(0))

	row, ok, _, err = d.DecodeLine("1\t1\t!")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, row.IsSet(0), "bit must be cleared for a dropped column")
	assert.Equal(t, 21.5, row.Values[0], "forward-filled value is retained even when dropped")
}

func TestDecodeLine_RangeFiltering(t *testing.T) {
	d := NewDecoder(1, 100, 1050, 1150)

	_, ok, stop, err := d.DecodeLine("-10\t1\t1")
	require.NoError(t, err)
	assert.False(t, ok, "row at 1000 is before fromTime=1050")
	assert.False(t, stop)

	_, ok, stop, err = d.DecodeLine("1\t1\t2")
	require.NoError(t, err)
	assert.True(t, ok, "row at 1100 is within range")
	assert.False(t, stop)

	_, ok, stop, err = d.DecodeLine("1\t1\t3")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, stop, "row at 1200 is beyond toTime=1150")
}

func TestDecodeLine_MalformedRecordsReturnError(t *testing.T) {
	d := NewDecoder(2, 100, math.MinInt64, math.MaxInt64)

	testCases := map[string]string{
		"too few fields":          "10",
		"bad timestamp":           "abc\t1",
		"bad bitvector":           "10\tzz",
		"bitvector beyond schema": "10\t7\t1\t2\t3",
		"token count mismatch":    "10\t3\t1",
	}

	for name, line := range testCases {
		t.Run(name, func(t *testing.T) {
			_, ok, _, err := d.DecodeLine(line)
			assert.Error(t, err)
			assert.False(t, ok)
		})
	}
}
