/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package signer

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging directs the standard logger at a rotating log file. It
// is called once at daemon startup.
func SetupLogging(logfile string) error {
	log.SetFlags(log.Lshortfile | log.Ltime)

	if logfile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   logfile,
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
		})
	} else {
		log.Fatalf("Error: standard log (key log.file) not specified")
	}

	return nil
}

// SetupCliLogging sets up logging for signerctl: no timestamps by
// default, file/line info when -v/--debug is set.
func SetupCliLogging(verbose, debug bool) {
	if verbose || debug {
		log.SetFlags(log.Lshortfile | log.Ltime)
	} else {
		log.SetFlags(0)
	}
}
