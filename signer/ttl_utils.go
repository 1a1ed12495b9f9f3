/*
 * Copyright (c) 2025 Johan Stenstam
 */
package signer

import (
	"fmt"
	"time"
)

// TtlPrint returns a human-friendly rendering of the duration until t.
// If t has already passed, it returns "expired".
func TtlPrint(t time.Time) string {
	d := time.Until(t)
	if d <= 0 {
		return "expired"
	}
	return durationPrint(d)
}

// ElapsedPrint returns a human-friendly rendering of how long ago t was.
func ElapsedPrint(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return durationPrint(time.Since(t))
}

func durationPrint(d time.Duration) string {
	d = d.Truncate(time.Second)
	total := int(d.Seconds())
	if total < 0 {
		total = -total
	}

	hours := total / 3600
	rem := total % 3600
	mins := rem / 60
	secs := rem % 60

	out := ""
	if hours > 0 {
		out += fmt.Sprintf("%dh", hours)
	}
	if mins > 0 {
		out += fmt.Sprintf("%dm", mins)
	}
	if secs > 0 || out == "" {
		out += fmt.Sprintf("%ds", secs)
	}
	return out
}
