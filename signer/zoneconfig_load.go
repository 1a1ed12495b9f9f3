/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadZoneConfig parses a zone's signing policy from a YAML document.
// This is the thin, in-scope stand-in for the (out of scope) schema
// reader: it only consumes an already-designed document shape, it does
// not interpret the richer XML policy language the original tool used.
func LoadZoneConfig(path string) (*ZoneConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	var zc ZoneConfig
	if err := yaml.Unmarshal(data, &zc); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	if err := zc.Validate(); err != nil {
		return nil, err
	}
	if fi, err := os.Stat(path); err == nil {
		zc.lastModified = fi.ModTime().Unix()
	} else {
		zc.lastModified = time.Now().Unix()
	}
	return &zc, nil
}
