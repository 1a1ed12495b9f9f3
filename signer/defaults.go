/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package signer

const (
	DefaultCfgFile      = "/etc/signerd/signerd.yaml"
	DefaultZoneListFile = "/etc/signerd/zones.yaml"
	DefaultSocketPath   = "/var/run/signerd/signerd.sock"
	DefaultCliCfgFile   = "/etc/signerd/signerctl.yaml"
)
