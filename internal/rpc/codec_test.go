package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
)

type point struct {
	X, Y int
}

func TestRecordRoundTripKeepsOrder(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := record.Of("zeta", 1, "alpha", "x", "ok", true, "nothing", nil,
		"list", []any{1, "two"}, "when", when, "pt", point{1, 2})

	encoded, err := EncodeRecord(rec)
	require.NoError(t, err)
	back, err := DecodeRecord(encoded)
	require.NoError(t, err)

	assert.Equal(t, rec.Keys(), back.Keys())
	zeta, _ := back.Get("zeta")
	assert.Equal(t, 1.0, zeta, "numbers decode as float64")
	ts, _ := back.Get("when")
	assert.Equal(t, "2024-01-02T03:04:05Z", ts)
	pt, _ := back.Get("pt")
	assert.Equal(t, map[string]any{"X": 1.0, "Y": 2.0}, pt)
	nothing, ok := back.Get("nothing")
	assert.True(t, ok)
	assert.Nil(t, nothing)
}

func TestDecodeRecordRejectsMalformedPairs(t *testing.T) {
	bad, err := structpb.NewList([]any{[]any{"only-name"}})
	require.NoError(t, err)
	_, err = DecodeRecord(bad)
	assert.Error(t, err)

	badName, err := structpb.NewList([]any{[]any{1, 2}})
	require.NoError(t, err)
	_, err = DecodeRecord(badName)
	assert.Error(t, err)
}

func TestFrameRoundTrip(t *testing.T) {
	f := frame.FromRecords([]*record.Record{
		record.Of("id", 1, "a", 2.5),
		record.Of("id", 2, "b", "x"),
	})

	encoded, err := EncodeFrame(f)
	require.NoError(t, err)
	back, err := DecodeFrame(encoded)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "a", "b"}, back.Columns())
	require.Equal(t, 2, back.Len())
	b, _ := back.Row(0).Get("b")
	assert.Nil(t, b)
	a, _ := back.Row(0).Get("a")
	assert.Equal(t, 2.5, a)
}

func TestTableName(t *testing.T) {
	name, err := TableName(tableRequest("results"))
	require.NoError(t, err)
	assert.Equal(t, "results", name)

	_, err = TableName(&structpb.Struct{})
	assert.Error(t, err)
}
