package pts

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(buf *bytes.Buffer, n int, forceOrdering bool) *Writer {
	return NewWriter(bufio.NewWriter(buf), n, 100, forceOrdering, zerolog.Nop())
}

func TestWriter_FirstEmitIsAbsoluteReset(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf, 1, false)

	row := NewRow(1000, 1)
	row.Set(0, 5.0)
	require.NoError(t, w.Emit(row))
	require.NoError(t, w.out.Flush())

	assert.Equal(t, "-10\t1\t5\n", buf.String())
}

func TestWriter_SecondEmitIsDelta(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf, 1, false)

	first := NewRow(1000, 1)
	first.Set(0, 5.0)
	require.NoError(t, w.Emit(first))

	second := NewRow(1300, 1)
	second.Set(0, 5.0)
	require.NoError(t, w.Emit(second))
	require.NoError(t, w.out.Flush())

	assert.Equal(t, "-10\t1\t5\n3\t1\t*\n", buf.String())
}

func TestWriter_OutOfOrderStrictFails(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf, 1, false)

	first := NewRow(2000, 1)
	first.Set(0, 1.0)
	require.NoError(t, w.Emit(first))

	late := NewRow(1000, 1)
	late.Set(0, 2.0)
	err := w.Emit(late)
	require.ErrorIs(t, err, ErrOutOfOrder)
}

func TestWriter_OutOfOrderClampedWhenForceOrderingSet(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf, 1, true)

	first := NewRow(2000, 1)
	first.Set(0, 1.0)
	require.NoError(t, w.Emit(first))

	late := NewRow(1000, 1)
	late.Set(0, 2.0)
	require.NoError(t, w.Emit(late))
	require.NoError(t, w.out.Flush())

	assert.Equal(t, "-20\t1\t1\n0\t1\t2\n", buf.String(), "clamped row is written at delta 0")
	assert.Equal(t, int64(20), w.lastCoarse, "lastCoarse must stay at the previous value, not the clamped row's")
}
