package signer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestZone(t *testing.T) *Zone {
	t.Helper()
	dir := t.TempDir()
	return &Zone{
		Name:       "example.com.",
		WorkDir:    dir,
		InputFile:  filepath.Join(dir, "example.com.unsigned"),
		OutputFile: filepath.Join(dir, "example.com.signed"),
		Config:     baseZoneConfig(),
		Action:     Resign,
	}
}

func TestZoneStatusReflectsState(t *testing.T) {
	zd := newTestZone(t)
	s := zd.Status()
	require.Contains(t, s, "example.com.")
	require.Contains(t, s, "never signed")

	zd.LastSigned = time.Now().Add(-time.Hour)
	s = zd.Status()
	require.Contains(t, s, "ago")
}

func TestZoneClearDatabaseLeavesOutputIntact(t *testing.T) {
	zd := newTestZone(t)

	for _, suffix := range []string{".unsorted", ".sorted", ".processed", ".nsecced", ".signed"} {
		require.NoError(t, os.WriteFile(zd.tmp(suffix), []byte("x"), 0644))
	}
	require.NoError(t, os.WriteFile(zd.OutputFile, []byte("published zone"), 0644))

	zd.ClearDatabase()

	for _, suffix := range []string{".unsorted", ".sorted", ".processed", ".nsecced", ".signed"} {
		_, err := os.Stat(zd.tmp(suffix))
		require.True(t, os.IsNotExist(err), "expected %s removed", suffix)
	}
	data, err := os.ReadFile(zd.OutputFile)
	require.NoError(t, err)
	require.Equal(t, "published zone", string(data))
}

func TestZoneFetchAXFRMovesStagedFileIntoPlace(t *testing.T) {
	zd := newTestZone(t)
	require.NoError(t, os.WriteFile(zd.axfrFile(), []byte("transferred zone data"), 0644))

	require.True(t, zd.fetchAXFR())

	data, err := os.ReadFile(zd.InputFile)
	require.NoError(t, err)
	require.Equal(t, "transferred zone data", string(data))
	_, err = os.Stat(zd.axfrFile())
	require.True(t, os.IsNotExist(err))
}

func TestZoneFetchAXFRNoopWithoutStagedFile(t *testing.T) {
	zd := newTestZone(t)
	require.False(t, zd.fetchAXFR())
}

func TestZonePublishedDNSKEYTexts(t *testing.T) {
	zd := newTestZone(t)
	zd.Config.Keys["key1"].DNSKEYText = "example.com. 3600 IN DNSKEY 257 3 8 AwEAA..."
	texts := zd.publishedDNSKEYTexts()
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "DNSKEY")
}
