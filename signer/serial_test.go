package signer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSerialCmpBasics(t *testing.T) {
	require.Equal(t, 0, SerialCmp(100, 100))
	require.Negative(t, SerialCmp(100, 150))
	require.Positive(t, SerialCmp(150, 100))
}

func TestSerialCmpWraparound(t *testing.T) {
	// a serial very close to the 32-bit boundary precedes a small one
	// once wraparound is taken into account.
	var max uint32 = 1<<32 - 1
	require.Negative(t, SerialCmp(max, 5))
	require.Positive(t, SerialCmp(5, max))
}

func TestSerialCmpSignMatchesIncrement(t *testing.T) {
	var a uint32 = 1000
	for k := int64(1); k < 1<<31; k += 104729 { // sparse sample across the range
		b := uint32(int64(a) + k)
		require.Negative(t, SerialCmp(a, b), "k=%d", k)
	}
}

func TestFindSerialKeepRequiresAdvance(t *testing.T) {
	_, err := FindSerial(SerialKeep, 100, 100, time.Now().UTC())
	require.ErrorIs(t, err, ErrSerialKeep)

	got, err := FindSerial(SerialKeep, 100, 150, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, uint32(150), got)
}

func TestFindSerialCounterAdvancesWhenNotAhead(t *testing.T) {
	got, err := FindSerial(SerialCounter, 100, 100, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, uint32(101), got)
}

func TestFindSerialDatecounter(t *testing.T) {
	now := time.Date(2009, time.November, 5, 12, 0, 0, 0, time.UTC)
	got, err := FindSerial(SerialDatecounter, 2009110400, 0, now)
	require.NoError(t, err)
	require.Equal(t, uint32(2009110500), got)
}

func TestFindSerialDatecounterSameDayBumps(t *testing.T) {
	now := time.Date(2009, time.November, 5, 12, 0, 0, 0, time.UTC)
	got, err := FindSerial(SerialDatecounter, 2009110500, 0, now)
	require.NoError(t, err)
	require.Equal(t, uint32(2009110501), got)
}

func TestFindSerialUnixtime(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	got, err := FindSerial(SerialUnixtime, 0, 0, now)
	require.NoError(t, err)
	require.Equal(t, uint32(1_700_000_000), got)
}
