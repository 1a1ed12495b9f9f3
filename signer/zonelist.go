/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ZoneListEntry names one zone and where its policy, input and output
// live. The only supported adapter today is "file"; the field is kept
// (rather than hard-coded) because the source zone-list format
// distinguishes adapters and a future adapter should not require a
// schema change here.
type ZoneListEntry struct {
	ZoneName         string `yaml:"zone"`
	ConfigurationFile string `yaml:"config"`
	InputAdapter     string `yaml:"input_adapter"`
	InputAdapterData string `yaml:"input"`
	OutputAdapter    string `yaml:"output_adapter"`
	OutputAdapterData string `yaml:"output"`
}

const AdapterFile = "file"

// Same reports whether two entries agree on every field.
func (e ZoneListEntry) Same(o ZoneListEntry) bool {
	return e.ZoneName == o.ZoneName &&
		e.ConfigurationFile == o.ConfigurationFile &&
		e.InputAdapter == o.InputAdapter &&
		e.InputAdapterData == o.InputAdapterData &&
		e.OutputAdapter == o.OutputAdapter &&
		e.OutputAdapterData == o.OutputAdapterData
}

// ZoneList is the authoritative set of known zones, as read from the
// (out of scope) zone-list document.
type ZoneList struct {
	Entries map[string]ZoneListEntry
}

type zoneListFile struct {
	Zones []ZoneListEntry `yaml:"zones"`
}

// ReadZoneListFile parses a YAML zone-list document.
func ReadZoneListFile(path string) (*ZoneList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading zone list %q: %v", ErrZoneList, path, err)
	}
	var f zoneListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing zone list %q: %v", ErrZoneList, path, err)
	}
	if len(f.Zones) == 0 {
		return nil, fmt.Errorf("%w: zone list %q names no zones", ErrZoneList, path)
	}
	zl := &ZoneList{Entries: make(map[string]ZoneListEntry, len(f.Zones))}
	for _, e := range f.Zones {
		if e.ZoneName == "" {
			return nil, fmt.Errorf("%w: zone list %q has an entry with no zone name", ErrZoneList, path)
		}
		if e.InputAdapter != "" && e.InputAdapter != AdapterFile {
			return nil, fmt.Errorf("%w: zone %q: unknown input adapter %q", ErrZoneList, e.ZoneName, e.InputAdapter)
		}
		if e.OutputAdapter != "" && e.OutputAdapter != AdapterFile {
			return nil, fmt.Errorf("%w: zone %q: unknown output adapter %q", ErrZoneList, e.ZoneName, e.OutputAdapter)
		}
		zl.Entries[e.ZoneName] = e
	}
	return zl, nil
}

// GetEntry returns the entry for name, if present.
func (zl *ZoneList) GetEntry(name string) (ZoneListEntry, bool) {
	e, ok := zl.Entries[name]
	return e, ok
}

// Names returns every known zone name.
func (zl *ZoneList) Names() []string {
	out := make([]string, 0, len(zl.Entries))
	for n := range zl.Entries {
		out = append(out, n)
	}
	return out
}

// Merge compares zl (the new list) against old (the previously active
// list) and returns the zones removed, added, and updated (present in
// both but with a changed entry).
func (zl *ZoneList) Merge(old *ZoneList) (removed, added, updated []string) {
	if old == nil {
		for name := range zl.Entries {
			added = append(added, name)
		}
		return
	}
	for name, e := range zl.Entries {
		oe, existed := old.Entries[name]
		if !existed {
			added = append(added, name)
		} else if !e.Same(oe) {
			updated = append(updated, name)
		}
	}
	for name := range old.Entries {
		if _, stillPresent := zl.Entries[name]; !stillPresent {
			removed = append(removed, name)
		}
	}
	return
}
