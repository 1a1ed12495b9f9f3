package signer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseZoneConfig() *ZoneConfig {
	return &ZoneConfig{
		SignaturesResignTime:      3600,
		SignaturesRefreshTime:     600,
		SignaturesValidityDefault: 86400,
		SOATTL:                    3600,
		SOAMinimum:                3600,
		SOASerial:                 SerialUnixtime,
		DenialNSEC:                true,
		Keys: map[string]*SigningKey{
			"key1": {Locator: "key1", Algorithm: 8, IsZSK: true, Publish: true},
		},
	}
}

func TestZoneConfigCompareNoChange(t *testing.T) {
	a := baseZoneConfig()
	b := baseZoneConfig()
	require.Equal(t, NoChange, a.Compare(b))
	require.Equal(t, NoChange, b.Compare(a))
}

func TestZoneConfigCompareNilIsResort(t *testing.T) {
	a := baseZoneConfig()
	require.Equal(t, Resort, a.Compare(nil))
}

func TestZoneConfigCompareDenialChangeIsResort(t *testing.T) {
	a := baseZoneConfig()
	b := baseZoneConfig()
	b.DenialNSEC = false
	b.DenialNSEC3 = true
	b.NSEC3Algorithm = 1
	b.NSEC3Iterations = 5
	require.Equal(t, Resort, a.Compare(b))
	require.Equal(t, Resort, b.Compare(a))
}

func TestZoneConfigCompareOptoutIsRenesc(t *testing.T) {
	a := baseZoneConfig()
	a.DenialNSEC3 = true
	a.NSEC3Algorithm = 1
	a.NSEC3Iterations = 5
	b := baseZoneConfig()
	b.DenialNSEC3 = true
	b.NSEC3Algorithm = 1
	b.NSEC3Iterations = 5
	b.DenialNSEC3Optout = true
	require.Equal(t, Renesc, a.Compare(b))
}

func TestZoneConfigCompareSerialPolicyIsResign(t *testing.T) {
	a := baseZoneConfig()
	b := baseZoneConfig()
	b.SOASerial = SerialKeep
	require.Equal(t, Resign, a.Compare(b))
}

func TestZoneConfigCompareResignTimeIsReschedule(t *testing.T) {
	a := baseZoneConfig()
	b := baseZoneConfig()
	b.SignaturesResignTime = 7200
	require.Equal(t, Reschedule, a.Compare(b))
}

func TestZoneConfigCompareJitterIsNoSchedule(t *testing.T) {
	a := baseZoneConfig()
	b := baseZoneConfig()
	b.SignaturesJitter = 120
	require.Equal(t, NoSchedule, a.Compare(b))
}

func TestZoneConfigCompareOrderingIsMonotone(t *testing.T) {
	// The severity levels must be comparable as plain integers: a
	// config differing in more than one category still reports the
	// single highest-severity action.
	a := baseZoneConfig()
	b := baseZoneConfig()
	b.SOASerial = SerialKeep            // would be Resign on its own
	b.SignaturesResignTime = 7200       // would be Reschedule on its own
	b.DenialNSEC3 = true
	b.NSEC3Algorithm = 1
	b.NSEC3Iterations = 5 // would be Resort on its own -- the highest
	require.Equal(t, Resort, a.Compare(b))
}

func TestZoneConfigValidateRejectsUnknownSerialPolicy(t *testing.T) {
	zc := baseZoneConfig()
	zc.SOASerial = "bogus"
	require.ErrorIs(t, zc.Validate(), ErrConfigParse)
}

func TestZoneConfigValidateDefaultsValidityFromDefault(t *testing.T) {
	zc := baseZoneConfig()
	require.NoError(t, zc.Validate())
	require.Equal(t, zc.SignaturesValidityDefault, zc.SignaturesValidityDenial)
	require.Equal(t, zc.SignaturesValidityDefault, zc.SignaturesValidityKeys)
}
