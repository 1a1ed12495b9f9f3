/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import (
	"log"
	"os/exec"
	"strings"
)

// runNotify runs the operator-configured notify command after a zone's
// output file is replaced, substituting %zone and %zonefile. Failures
// are logged but never fail the pipeline: the zone has already been
// published by the time this runs.
func runNotify(command, zone, zonefile string) {
	cmdline := strings.NewReplacer("%zonefile", zonefile, "%zone", zone).Replace(command)
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return
	}
	cmd := exec.Command(fields[0], fields[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Printf("notify command for zone %s failed: %v (%s)", zone, err, strings.TrimSpace(string(out)))
	}
}
