/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import (
	"fmt"
	"os"
	"sort"
)

// SigningKey is one key entry in a zone's signing policy. Locator is
// opaque to the core; it is handed to the create_dnskey tool and to the
// signer tool's :add_zsk/:add_ksk directives.
type SigningKey struct {
	Locator   string `yaml:"locator" validate:"required"`
	TTL       uint32 `yaml:"ttl"`
	Flags     uint16 `yaml:"flags"`
	Algorithm uint8  `yaml:"algorithm" validate:"required"`
	IsZSK     bool   `yaml:"zsk"`
	IsKSK     bool   `yaml:"ksk"`
	Publish   bool   `yaml:"publish"`

	// populated at runtime by create_dnskey, not part of the on-disk policy
	DNSKEYText string `yaml:"-"`
	ToolKeyID  string `yaml:"-"`
}

// ZoneConfig is the parsed signing policy for one zone. It is the
// in-core representation that the (out of scope) schema reader
// produces; here it is loaded from a plain YAML document.
type ZoneConfig struct {
	SignaturesResignTime    int64  `yaml:"signatures_resign_time" validate:"required"`
	SignaturesRefreshTime   int64  `yaml:"signatures_refresh_time" validate:"required"`
	SignaturesValidityDefault int64 `yaml:"signatures_validity_default" validate:"required"`
	SignaturesValidityDenial  int64 `yaml:"signatures_validity_denial"`
	SignaturesValidityKeys    int64 `yaml:"signatures_validity_keys"`
	SignaturesJitter          int64 `yaml:"signatures_jitter"`
	SignaturesInceptionOffset int64 `yaml:"signatures_inception_offset"`

	DenialNSEC        bool   `yaml:"denial_nsec"`
	DenialNSEC3       bool   `yaml:"denial_nsec3"`
	DenialNSEC3Optout bool   `yaml:"denial_nsec3_optout"`
	NSEC3Algorithm    uint8  `yaml:"nsec3_algorithm"`
	NSEC3Iterations   uint16 `yaml:"nsec3_iterations"`
	NSEC3Salt         string `yaml:"nsec3_salt"`

	Keys map[string]*SigningKey `yaml:"keys"`

	SOATTL       uint32       `yaml:"soa_ttl" validate:"required"`
	SOAMinimum   uint32       `yaml:"soa_minimum" validate:"required"`
	SOASerial    SerialPolicy `yaml:"soa_serial" validate:"required"`

	Audit bool `yaml:"audit"`

	// runtime bookkeeping, not part of the on-disk document
	lastModified int64
}

// Validate checks the invariants that the (out of scope) schema reader
// would otherwise enforce: a recognised serial policy, and NSEC3 fields
// populated whenever NSEC3 denial is selected.
func (zc *ZoneConfig) Validate() error {
	if !ValidSerialPolicies[zc.SOASerial] {
		return fmt.Errorf("%w: invalid soa_serial policy %q", ErrConfigParse, zc.SOASerial)
	}
	if zc.DenialNSEC3 {
		if zc.NSEC3Algorithm == 0 || zc.NSEC3Iterations == 0 {
			return fmt.Errorf("%w: nsec3 denial selected but algorithm/iterations not set", ErrConfigParse)
		}
	}
	if zc.SignaturesValidityDenial == 0 {
		zc.SignaturesValidityDenial = zc.SignaturesValidityDefault
	}
	if zc.SignaturesValidityKeys == 0 {
		zc.SignaturesValidityKeys = zc.SignaturesValidityDefault
	}
	return nil
}

// SignatureKeys returns the keys flagged as ZSK or KSK, i.e. the keys
// that are actually used to sign, in a stable (locator-sorted) order.
func (zc *ZoneConfig) SignatureKeys() []*SigningKey {
	return zc.filterKeys(func(k *SigningKey) bool { return k.IsZSK || k.IsKSK })
}

// PublishKeys returns the keys flagged for publication as DNSKEY RRs.
func (zc *ZoneConfig) PublishKeys() []*SigningKey {
	return zc.filterKeys(func(k *SigningKey) bool { return k.Publish })
}

func (zc *ZoneConfig) filterKeys(pred func(*SigningKey) bool) []*SigningKey {
	out := []*SigningKey{}
	for _, k := range zc.Keys {
		if pred(k) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Locator < out[j].Locator })
	return out
}

// CheckFileUpdate reports whether path's mtime is newer than the mtime
// recorded the last time this policy was loaded (or true if it was
// never loaded from a file).
func (zc *ZoneConfig) CheckFileUpdate(path string) bool {
	if zc.lastModified == 0 {
		return true
	}
	fi, err := os.Stat(path)
	if err != nil {
		return true
	}
	return fi.ModTime().Unix() > zc.lastModified
}

// Compare returns the minimal Action that covers every difference
// between zc (the new policy) and old (the previously active policy).
// The checks are ordered from most to least severe; the first
// applicable rule wins, mirroring the source engine's single coarse
// severity level (deliberately not decomposed into independent flags,
// see the design notes on PerformAction's reliance on monotonicity).
func (zc *ZoneConfig) Compare(old *ZoneConfig) Action {
	if old == nil {
		return Resort
	}

	if !sameKeySet(zc.PublishKeys(), old.PublishKeys()) ||
		zc.DenialNSEC != old.DenialNSEC ||
		zc.DenialNSEC3 != old.DenialNSEC3 ||
		(zc.DenialNSEC3 && (zc.NSEC3Algorithm != old.NSEC3Algorithm ||
			zc.NSEC3Iterations != old.NSEC3Iterations ||
			zc.NSEC3Salt != old.NSEC3Salt)) {
		return Resort
	}

	if zc.DenialNSEC3Optout != old.DenialNSEC3Optout {
		return Renesc
	}

	if !sameKeySet(zc.SignatureKeys(), old.SignatureKeys()) ||
		zc.SOATTL != old.SOATTL ||
		zc.SOAMinimum != old.SOAMinimum ||
		zc.SOASerial != old.SOASerial {
		return Resign
	}

	if zc.SignaturesResignTime != old.SignaturesResignTime ||
		zc.SignaturesRefreshTime != old.SignaturesRefreshTime {
		return Reschedule
	}

	if zc.SignaturesValidityDefault != old.SignaturesValidityDefault ||
		zc.SignaturesValidityDenial != old.SignaturesValidityDenial ||
		zc.SignaturesValidityKeys != old.SignaturesValidityKeys ||
		zc.SignaturesJitter != old.SignaturesJitter ||
		zc.SignaturesInceptionOffset != old.SignaturesInceptionOffset ||
		!keysPolicyEqual(zc.Keys, old.Keys) {
		return NoSchedule
	}

	return NoChange
}

// keysPolicyEqual compares two key sets on their on-disk policy fields
// only, ignoring DNSKEYText/ToolKeyID (populated at runtime by
// resolveKeys well after the policy is loaded, so always absent on a
// freshly parsed ZoneConfig -- a plain reflect.DeepEqual would flag a
// spurious difference on every reload).
func keysPolicyEqual(a, b map[string]*SigningKey) bool {
	if len(a) != len(b) {
		return false
	}
	for name, ka := range a {
		kb, ok := b[name]
		if !ok {
			return false
		}
		if ka.Locator != kb.Locator || ka.TTL != kb.TTL || ka.Flags != kb.Flags ||
			ka.Algorithm != kb.Algorithm || ka.IsZSK != kb.IsZSK || ka.IsKSK != kb.IsKSK ||
			ka.Publish != kb.Publish {
			return false
		}
	}
	return true
}

func sameKeySet(a, b []*SigningKey) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, k := range a {
		seen[k.Locator] = true
	}
	for _, k := range b {
		if !seen[k.Locator] {
			return false
		}
	}
	return true
}
