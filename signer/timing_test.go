package signer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeSignatureTimesInvariants(t *testing.T) {
	zc := &ZoneConfig{
		SignaturesValidityDefault: 86400,
		SignaturesValidityDenial:  172800,
		SignaturesRefreshTime:     3600,
		SignaturesInceptionOffset: 600,
	}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	times := ComputeSignatureTimes(now, zc)

	require.True(t, times.Inception.Before(now))
	require.True(t, times.Inception.Equal(now.Add(-10*time.Minute)))
	require.True(t, times.Expiration.After(now))
	require.True(t, times.ExpirationDenial.After(now))
	require.True(t, times.Refresh.Before(times.Expiration))
	require.True(t, times.RefreshDenial.Before(times.ExpirationDenial))
}

func TestFormatSignerTime(t *testing.T) {
	ts := time.Date(2024, 3, 7, 9, 5, 3, 0, time.UTC)
	require.Equal(t, "20240307090503", formatSignerTime(ts))
}
