package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBasic(t *testing.T) {
	// Header matching is case-insensitive; rows come back sorted and
	// aligned to the first sample as process zero.
	in := strings.NewReader(
		"Timestamp,Value\n" +
			"2026-03-01 08:02:00,30.2\n" +
			"2026-03-01 08:00:00,30.0\n" +
			"2026-03-01 08:01:00,30.1\n")
	s, err := Read(in, Options{}, nil)
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.Equal(t, 0.0, s[0].T)
	assert.Equal(t, 30.0, s[0].V)
	assert.Equal(t, 1.0, s[1].T)
	assert.Equal(t, 2.0, s[2].T)
	assert.Equal(t, 30.2, s[2].V)
}

func TestReadDropsBadRows(t *testing.T) {
	in := strings.NewReader(
		"timestamp,value\n" +
			"2026-03-01 08:00:00,30.0\n" +
			"not a time,30.5\n" +
			"2026-03-01 08:01:00,not a number\n" +
			"short\n" +
			"2026-03-01 08:02:00,30.2\n")
	s, err := Read(in, Options{}, nil)
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, 30.0, s[0].V)
	assert.Equal(t, 30.2, s[1].V)
}

func TestReadInoculationAlignment(t *testing.T) {
	inoc := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	in := strings.NewReader(
		"timestamp,value\n" +
			"2026-03-01T07:50:00Z,25.0\n" + // pre-inoculation: negative process time
			"2026-03-01T08:10:00Z,30.0\n")
	s, err := Read(in, Options{Inoculation: inoc}, nil)
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, -10.0, s[0].T)
	assert.Equal(t, 10.0, s[1].T)
}

func TestReadDuplicateTimestampsKeepFirst(t *testing.T) {
	in := strings.NewReader(
		"timestamp,value\n" +
			"2026-03-01 08:00:00,30.0\n" +
			"2026-03-01 08:00:00,99.0\n" +
			"2026-03-01 08:01:00,30.1\n")
	s, err := Read(in, Options{}, nil)
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, 30.0, s[0].V)
	require.NoError(t, s.Validate())
}

func TestReadCustomColumnsAndDelimiter(t *testing.T) {
	in := strings.NewReader(
		"logged_at\ttemp_sp\textra\n" +
			"2026-03-01 08:00:00\t30.0\tx\n" +
			"2026-03-01 08:05:00\t30.5\ty\n")
	s, err := Read(in, Options{
		TimestampColumn: "logged_at",
		ValueColumn:     "temp_sp",
		Comma:           '\t',
	}, nil)
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, 5.0, s[1].T)
	assert.Equal(t, 30.5, s[1].V)
}

func TestReadBareMinuteTimestamps(t *testing.T) {
	// Some exports carry process minutes instead of wall-clock stamps.
	in := strings.NewReader(
		"timestamp,value\n" +
			"0,30.0\n" +
			"5,30.5\n" +
			"12.5,31.0\n")
	s, err := Read(in, Options{}, nil)
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.Equal(t, 0.0, s[0].T)
	assert.Equal(t, 5.0, s[1].T)
	assert.InDelta(t, 12.5, s[2].T, 1e-9)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader("timestamp,value\n"), Options{}, nil)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = Read(strings.NewReader("time,reading\nx,y\n"), Options{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in header")
}
