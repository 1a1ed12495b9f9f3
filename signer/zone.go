/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// Zone is one managed zone: its identity, its on-disk pipeline
// artifacts, its active policy, and its pending re-work level. All
// pipeline-mutating methods take zd.mu for their duration, mirroring
// the source engine's per-zone spinlock (replaced here with a proper
// sync.Mutex per the design notes).
type Zone struct {
	Name       string // FQDN, normalized via dns.Fqdn
	WorkDir    string
	InputFile  string
	OutputFile string

	mu         sync.Mutex
	Config     *ZoneConfig
	ConfigFile string
	Action     Action
	LastSigned time.Time
	Scheduled  time.Time
	Expiration time.Time
}

// NewZone creates a Zone from a zone-list entry. workDir is where
// temporary pipeline artifacts are written.
func NewZone(entry ZoneListEntry, workDir string) *Zone {
	return &Zone{
		Name:       dns.Fqdn(entry.ZoneName),
		WorkDir:    workDir,
		InputFile:  entry.InputAdapterData,
		OutputFile: entry.OutputAdapterData,
		ConfigFile: entry.ConfigurationFile,
		Action:     Resign,
	}
}

func (zd *Zone) Lock()   { zd.mu.Lock() }
func (zd *Zone) Unlock() { zd.mu.Unlock() }

func (zd *Zone) tmp(suffix string) string {
	return fmt.Sprintf("%s/%s%s", zd.WorkDir, strings.TrimSuffix(zd.Name, "."), suffix)
}

func (zd *Zone) axfrFile() string { return zd.InputFile + ".axfr" }

// Status renders a one-line summary of the zone's state, used by the
// "zones" command and by signerctl.
func (zd *Zone) Status() string {
	zd.mu.Lock()
	defer zd.mu.Unlock()
	policy := "no policy loaded"
	if zd.Config != nil {
		policy = "policy loaded"
	}
	last := "never signed"
	if !zd.LastSigned.IsZero() {
		last = fmt.Sprintf("last signed %s (%s ago)", zd.LastSigned.Format(time.RFC3339), ElapsedPrint(zd.LastSigned))
	}
	expires := "no signatures"
	if !zd.Expiration.IsZero() {
		expires = fmt.Sprintf("expires in %s", TtlPrint(zd.Expiration))
	}
	return fmt.Sprintf("%-30s %-18s %-12s expires=%-14s pending=%-11s scheduled=%s",
		zd.Name, policy, last, expires, zd.Action, zd.Scheduled.Format(time.RFC3339))
}

// ReadConfig (re)loads the zone's policy from ConfigFile. On parse
// failure the previously active policy, if any, is left untouched.
func (zd *Zone) ReadConfig() error {
	zd.mu.Lock()
	defer zd.mu.Unlock()
	return zd.readConfigLocked()
}

func (zd *Zone) readConfigLocked() error {
	zc, err := LoadZoneConfig(zd.ConfigFile)
	if err != nil {
		return fmt.Errorf("%w: zone %s: %v", ErrConfigParse, zd.Name, err)
	}
	zd.Config = zc
	return nil
}

// CheckConfigFileUpdate reports whether the zone's policy file has
// changed on disk since it was last successfully read.
func (zd *Zone) CheckConfigFileUpdate() bool {
	zd.mu.Lock()
	defer zd.mu.Unlock()
	if zd.Config == nil {
		return true
	}
	return zd.Config.CheckFileUpdate(zd.ConfigFile)
}

// fetchAXFR atomically moves a staged AXFR file into place as the
// zone's input, if one is waiting. Returns true if the input file is
// now present (whether or not a transfer just happened).
func (zd *Zone) fetchAXFR() bool {
	if _, err := os.Stat(zd.axfrFile()); err == nil {
		if err := os.Rename(zd.axfrFile(), zd.InputFile); err != nil {
			log.Printf("zone %s: fetchAXFR: rename failed: %v", zd.Name, err)
		}
	}
	_, err := os.Stat(zd.InputFile)
	return err == nil
}

func (zd *Zone) sortInput() error {
	if err := copyFile(zd.InputFile, zd.tmp(".unsorted")); err != nil {
		return err
	}
	return RunSorter(zd.Name, zd.tmp(".unsorted"), zd.tmp(".sorted"), zd.Config.SOAMinimum)
}

func (zd *Zone) preprocess() error {
	class, err := GetClass(zd.tmp(".sorted"))
	if err != nil {
		return err
	}
	if err := zd.resolveKeys(class); err != nil {
		return err
	}
	sortedBody, err := os.Open(zd.tmp(".sorted"))
	if err != nil {
		return err
	}
	defer sortedBody.Close()

	dnskeys := zd.publishedDNSKEYTexts()
	omitNSEC3Param := len(zd.Config.SignatureKeys()) == 0
	return RunZoneReader(class, zd.Name, zd.tmp(".processed"), dnskeys, zd.Config, omitNSEC3Param, sortedBody)
}

// sortSignedAndPreprocessSigned re-runs sort+preprocess against the
// previously signed file using the NEW denial parameters, so that
// still-valid signatures over unchanged RRsets can be carried forward
// across a RESORT (denial re-parameterisation). No-op if there is no
// prior signed file.
func (zd *Zone) sortSignedAndPreprocessSigned() error {
	if _, err := os.Stat(zd.tmp(".signed")); err != nil {
		return nil
	}
	if err := RunSorter(zd.Name, zd.tmp(".signed"), zd.tmp(".signed.sorted"), zd.Config.SOAMinimum); err != nil {
		return err
	}
	class, err := GetClass(zd.tmp(".signed.sorted"))
	if err != nil {
		return err
	}
	if err := zd.resolveKeys(class); err != nil {
		return err
	}
	body, err := os.Open(zd.tmp(".signed.sorted"))
	if err != nil {
		return err
	}
	defer body.Close()
	dnskeys := zd.publishedDNSKEYTexts()
	omitNSEC3Param := len(zd.Config.SignatureKeys()) == 0
	if err := RunZoneReader(class, zd.Name, zd.tmp(".signed.processed"), dnskeys, zd.Config, omitNSEC3Param, body); err != nil {
		return err
	}
	return copyFile(zd.tmp(".signed.processed"), zd.tmp(".signed"))
}

func (zd *Zone) nsecify() error {
	if len(zd.Config.SignatureKeys()) == 0 {
		return copyFile(zd.tmp(".processed"), zd.tmp(".nsecced"))
	}
	if zd.Config.DenialNSEC3 {
		return RunNSEC3er(zd.Name, zd.tmp(".processed"), zd.tmp(".nsecced"), zd.Config)
	}
	return RunNSECer(zd.tmp(".processed"), zd.tmp(".nsecced"), zd.Config.SOAMinimum)
}

// resolveKeys mints the DNSKEY RR text and tool key id for every
// configured key that doesn't already have one. Idempotent: a key
// already resolved (from an earlier pipeline run against the same
// loaded policy) is left untouched. class comes from the zone body
// currently being processed, since create_dnskey needs it to build
// the RR.
func (zd *Zone) resolveKeys(class uint16) error {
	for _, k := range zd.Config.Keys {
		if k.DNSKEYText != "" {
			continue
		}
		if !k.Publish && !k.IsZSK && !k.IsKSK {
			continue
		}
		if err := CreateDNSKEY(EngineConfigFile, zd.Name, class, k); err != nil {
			return fmt.Errorf("zone %s: resolveKeys: %v", zd.Name, err)
		}
	}
	return nil
}

func (zd *Zone) publishedDNSKEYTexts() []string {
	out := []string{}
	for _, k := range zd.Config.PublishKeys() {
		if k.DNSKEYText != "" {
			out = append(out, k.DNSKEYText)
		}
	}
	return out
}

// sign invokes the external signer. force bypasses the "zero new
// signatures -> discard" rule, used after REREAD/RESORT/RENSEC where a
// full re-sign must be published regardless of signature count.
func (zd *Zone) sign(engineCfgFile string, force bool) (bool, error) {
	body, err := os.Open(zd.tmp(".nsecced"))
	if err != nil {
		return false, fmt.Errorf("%w: zone %s: %v", ErrInputMissing, zd.Name, err)
	}
	defer body.Close()

	prevSerial, _ := GetSerial(zd.tmp(".signed")) // zero if absent; FindSerial handles prevSerial=0 as "always advance"
	inputSerial, err := GetSerial(zd.tmp(".sorted"))
	if err != nil {
		inputSerial, _ = GetSerial(zd.InputFile)
	}

	now := time.Now().UTC()
	serial, err := FindSerial(zd.Config.SOASerial, prevSerial, inputSerial, now)
	if err != nil {
		return false, err
	}

	times := ComputeSignatureTimes(now, zd.Config)

	pr, pw := io.Pipe()
	directiveErrCh := make(chan error, 1)
	go func() {
		directiveErrCh <- zd.writeSignerDirectives(pw, serial, times)
	}()

	signedOut := zd.tmp(".signed2")
	args := []string{"-c", engineCfgFile, "-p", zd.tmp(".signed"), "-w", signedOut, "-r"}
	stdin := io.MultiReader(pr, body)
	res, err := runTool("signer", args, stdin)
	if derr := <-directiveErrCh; derr != nil && err == nil {
		err = derr
	}
	if err != nil {
		return false, err
	}

	sigCount := parseSignatureCount(res.Stderr)
	if force || sigCount > 0 || len(zd.Config.SignatureKeys()) == 0 {
		if err := os.Rename(signedOut, zd.tmp(".signed")); err != nil {
			return false, fmt.Errorf("promoting signed2 to signed: %v", err)
		}
		zd.LastSigned = now
		zd.Expiration = times.Expiration
		return true, nil
	}

	os.Remove(signedOut)
	return false, ErrNoSignatures
}

// writeSignerDirectives streams the ':'-prefixed directive lines the
// signer tool expects on stdin before the zone body.
func (zd *Zone) writeSignerDirectives(w io.WriteCloser, serial uint32, times SignatureTimes) error {
	defer w.Close()
	writeP := func(prefix string, val interface{}) {
		switch v := val.(type) {
		case string:
			if v != "" {
				fmt.Fprintf(w, "%s%s\n", prefix, v)
			}
		case int64:
			if v != 0 {
				fmt.Fprintf(w, "%s%d\n", prefix, v)
			}
		}
	}

	fmt.Fprintf(w, ":origin %s\n", zd.Name)
	fmt.Fprintf(w, ":soa_ttl %d\n", zd.Config.SOATTL)
	fmt.Fprintf(w, ":soa_minimum %d\n", zd.Config.SOAMinimum)
	fmt.Fprintf(w, ":soa_serial %d\n", serial)
	if zd.Config.SOASerial == SerialKeep {
		fmt.Fprintf(w, ":soa_serial_keep 1\n")
	}
	if zd.Config.DenialNSEC3 {
		fmt.Fprintf(w, ":nsec3_algorithm %d\n", zd.Config.NSEC3Algorithm)
		fmt.Fprintf(w, ":nsec3_iterations %d\n", zd.Config.NSEC3Iterations)
		if zd.Config.NSEC3Salt != "" && zd.Config.NSEC3Salt != "-" {
			writeP(":nsec3_salt ", zd.Config.NSEC3Salt)
		}
	}
	fmt.Fprintf(w, ":expiration %s\n", formatSignerTime(times.Expiration))
	fmt.Fprintf(w, ":expiration_denial %s\n", formatSignerTime(times.ExpirationDenial))
	writeP(":jitter ", zd.Config.SignaturesJitter)
	fmt.Fprintf(w, ":inception %s\n", formatSignerTime(times.Inception))
	fmt.Fprintf(w, ":refresh %s\n", formatSignerTime(times.Refresh))
	fmt.Fprintf(w, ":refresh_denial %s\n", formatSignerTime(times.RefreshDenial))

	for _, k := range zd.Config.SignatureKeys() {
		tag := "zsk"
		if k.IsKSK {
			tag = "ksk"
		}
		fmt.Fprintf(w, ":add_%s %s %d %d\n", tag, k.ToolKeyID, k.Algorithm, k.Flags)
	}
	return nil
}

func (zd *Zone) audit() (bool, error) {
	if !zd.Config.Audit {
		return true, nil
	}
	return RunAuditor(EngineConfigFile, zd.tmp(".finalized"), zd.Name)
}

func (zd *Zone) finalize() error {
	text, err := RunFinalizer(zd.tmp(".signed"))
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("finalize: zone %s: finalizer produced no records", zd.Name)
	}
	stamp := fmt.Sprintf("; Signed on %s\n", time.Now().UTC().Format(time.RFC1123))
	return os.WriteFile(zd.tmp(".finalized"), []byte(stamp+text), 0644)
}

func (zd *Zone) moveOutput() error {
	serial, err := GetSerial(zd.tmp(".finalized"))
	if err == nil {
		os.WriteFile(zd.tmp(".serial"), []byte(fmt.Sprintf("%d\n", serial)), 0644)
	}
	if err := os.Rename(zd.tmp(".finalized"), zd.OutputFile); err != nil {
		return fmt.Errorf("move_output: zone %s: %v", zd.Name, err)
	}
	if NotifyCommand != "" {
		runNotify(NotifyCommand, zd.Name, zd.OutputFile)
	}
	return nil
}

// ClearDatabase removes every temporary pipeline artifact but leaves
// the public output file untouched.
func (zd *Zone) ClearDatabase() {
	zd.mu.Lock()
	defer zd.mu.Unlock()
	for _, suffix := range []string{".unsorted", ".sorted", ".processed", ".nsecced",
		".signed", ".signed.sorted", ".signed.processed", ".signed2", ".finalized"} {
		os.Remove(zd.tmp(suffix))
	}
}

// PerformAction runs the contiguous tail of the sign pipeline that
// zd.Action's severity requires, per the action-to-entry mapping.
// EngineConfigFile must be set (by the engine, at startup) before any
// zone is ever signed.
func (zd *Zone) PerformAction() {
	zd.mu.Lock()
	defer zd.mu.Unlock()

	if zd.Config == nil {
		if err := zd.readConfigLocked(); err != nil {
			log.Printf("zone %s: cannot sign, no policy: %v", zd.Name, err)
			return
		}
	}

	action := zd.Action
	var err error

	switch {
	case action >= Resign && fileExists(zd.tmp(".signed")):
		err = zd.runFrom(stageSign)

	case action >= Renesc && fileExists(zd.tmp(".processed")):
		err = zd.runFromForced(stageNsecify, true)

	case action >= Reread && zd.fetchAXFR() && fileExists(zd.InputFile):
		err = zd.checkKeepThenRunFrom(stageSortInput, true)

	case action >= Resort && zd.fetchAXFR() && fileExists(zd.InputFile):
		err = zd.checkKeepThenRunFrom(stageSortSigned, true)

	default:
		log.Printf("zone %s: input file missing, skipping", zd.Name)
	}

	if err != nil {
		log.Printf("zone %s: pipeline error: %v", zd.Name, err)
	}
	zd.Action = Resign
}

type pipelineStage int

const (
	stageSortSigned pipelineStage = iota
	stageSortInput
	stagePreprocess
	stageNsecify
	stageSign
	stageFinalize
	stageAudit
	stageMoveOutput
)

// EngineConfigFile is the engine's own configuration file path, passed
// to the signer and auditor tools via -c. Set once at engine startup.
var EngineConfigFile string

// NotifyCommand is the operator-configured command run after a zone's
// output file is replaced, with %zone and %zonefile substituted.
var NotifyCommand string

// checkKeepThenRunFrom aborts the pipeline (without advancing any
// artifact) when the policy is soa_serial=keep and the input serial has
// not advanced, since in that case there is nothing legitimate to
// publish yet.
func (zd *Zone) checkKeepThenRunFrom(from pipelineStage, force bool) error {
	if zd.Config.SOASerial == SerialKeep {
		prevSerial, _ := GetSerial(zd.tmp(".signed"))
		inputSerial, err := GetSerial(zd.InputFile)
		if err == nil {
			if _, ferr := FindSerial(SerialKeep, prevSerial, inputSerial, time.Now().UTC()); ferr != nil {
				return fmt.Errorf("zone %s: %w", zd.Name, ferr)
			}
		}
	}
	return zd.runFromForced(from, force)
}

func (zd *Zone) runFrom(from pipelineStage) error {
	return zd.runFromForced(from, false)
}

// runFromForced executes stages from..stageMoveOutput in order, halting
// at the first failing stage. force is forwarded to sign() so that a
// REREAD/RESORT/RENSEC-triggered re-sign is always published even when
// the signer reports zero new signatures (every RRset was re-processed,
// so "zero new" would otherwise wrongly discard a legitimate re-sign).
func (zd *Zone) runFromForced(from pipelineStage, force bool) error {
	stages := []struct {
		stage pipelineStage
		run   func() error
	}{
		{stageSortSigned, zd.sortSignedAndPreprocessSigned},
		{stageSortInput, zd.sortInput},
		{stagePreprocess, zd.preprocess},
		{stageNsecify, zd.nsecify},
		{stageSign, func() error {
			_, err := zd.sign(EngineConfigFile, force)
			return err
		}},
		{stageFinalize, zd.finalize},
		{stageAudit, func() error {
			ok, err := zd.audit()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("zone %s: audit failed", zd.Name)
			}
			return nil
		}},
		{stageMoveOutput, zd.moveOutput},
	}

	for _, s := range stages {
		if s.stage < from {
			continue
		}
		if err := s.run(); err != nil {
			return err
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
