/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import "time"

const signerTimestampLayout = "20060102150405" // YYYYMMDDhhmmss, UTC

// SignatureTimes are the absolute timestamps derived from a sign time
// and a zone's signature-timing policy, ready to be rendered into
// signer directive lines.
type SignatureTimes struct {
	Inception       time.Time
	Expiration      time.Time
	ExpirationDenial time.Time
	Refresh         time.Time
	RefreshDenial   time.Time
}

// ComputeSignatureTimes derives every signer timestamp from t (the
// moment signing is performed) and the zone's policy.
func ComputeSignatureTimes(t time.Time, zc *ZoneConfig) SignatureTimes {
	expiration := t.Add(time.Duration(zc.SignaturesValidityDefault) * time.Second)
	expirationDenial := t.Add(time.Duration(zc.SignaturesValidityDenial) * time.Second)
	refreshLead := time.Duration(zc.SignaturesRefreshTime) * time.Second
	return SignatureTimes{
		Inception:        t.Add(-time.Duration(zc.SignaturesInceptionOffset) * time.Second),
		Expiration:       expiration,
		ExpirationDenial: expirationDenial,
		Refresh:          expiration.Add(-refreshLead),
		RefreshDenial:    expirationDenial.Add(-refreshLead),
	}
}

// formatSignerTime renders a timestamp the way the signer tool expects it on its
// directive stream: YYYYMMDDhhmmss, UTC.
func formatSignerTime(t time.Time) string {
	return t.UTC().Format(signerTimestampLayout)
}
