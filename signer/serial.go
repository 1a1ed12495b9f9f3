/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import "time"

const maxSerialIncrement = 1<<31 - 1 // RFC 1982 half the serial space, minus 1

// SerialCmp implements RFC 1982 serial number arithmetic comparison.
// It returns 0 if a==b, a negative value if a is ordered before b, and
// a positive value if a is ordered after b. Wraparound is taken into
// account: a serial more than 2^31 apart from another is considered to
// have wrapped, so the "larger" raw value can compare as the earlier one.
func SerialCmp(a, b uint32) int {
	if a == b {
		return 0
	}
	diff := int64(b) - int64(a)
	if diff < 0 {
		diff += 1 << 32
	}
	if diff < 1<<31 {
		return -1 // a precedes b
	}
	return 1 // a follows b (b is "behind" a once wraparound is accounted for)
}

// FindSerial computes the next SOA serial to publish, given the
// previously-output serial, the serial read from the (possibly newly
// transferred) input zone, the configured policy, and the current time.
// now must be a UTC time; callers pass time.Now().UTC() in production
// and a fixed clock in tests.
func FindSerial(policy SerialPolicy, prevSerial, inputSerial uint32, now time.Time) (uint32, error) {
	var candidate uint32

	switch policy {
	case SerialUnixtime:
		candidate = uint32(now.Unix())
	case SerialCounter:
		candidate = inputSerial
	case SerialDatecounter:
		candidate = uint32(now.Year())*1000000 + uint32(now.Month())*10000 + uint32(now.Day())*100
	case SerialKeep:
		candidate = inputSerial
		if SerialCmp(prevSerial, candidate) >= 0 {
			return 0, ErrSerialKeep
		}
		return candidate, nil
	default:
		candidate = inputSerial
	}

	if SerialCmp(prevSerial, candidate) >= 0 {
		increment := uint32(1)
		candidate = prevSerial + increment
		if candidate-prevSerial > maxSerialIncrement {
			candidate = prevSerial + maxSerialIncrement
		}
	}

	return candidate, nil
}
