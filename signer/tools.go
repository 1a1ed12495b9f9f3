/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ToolDir is the directory external tools (sorter, zone_reader, nseccer,
// nsec3er, signer, finalizer, auditor, get_serial, get_class,
// create_dnskey) are found in. It is configured once at engine startup.
var ToolDir string

func toolPath(name string) string {
	if ToolDir == "" {
		return name
	}
	return filepath.Join(ToolDir, name)
}

// toolResult captures one external tool invocation's outcome.
type toolResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// runTool spawns name with args, feeding it stdin (if non-nil) and
// collecting stdout/stderr. It guarantees the child's stdin is closed
// and the child reaped on every exit path, per the scoped-process-handle
// discipline: every fan-out point must not leak pipes or zombies.
func runTool(name string, args []string, stdin io.Reader) (toolResult, error) {
	path := toolPath(name)
	cmd := exec.Command(path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if stdin != nil {
		cmd.Stdin = stdin
	}

	if err := cmd.Start(); err != nil {
		return toolResult{}, fmt.Errorf("%w: %s: %v", ErrToolSpawn, name, err)
	}

	err := cmd.Wait()
	res := toolResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
	}

	if err != nil {
		log.Printf("runTool: %s %v failed: %v (stderr: %s)", name, args, err, strings.TrimSpace(res.Stderr))
		return res, fmt.Errorf("%w: %s: %v", ErrToolExit, name, err)
	}
	return res, nil
}

// GetSerial invokes get_serial against a zone file and parses its SOA serial.
func GetSerial(file string) (uint32, error) {
	res, err := runTool("get_serial", []string{"-f", file}, nil)
	if err != nil {
		return 0, err
	}
	n, perr := strconv.ParseUint(strings.TrimSpace(res.Stdout), 10, 32)
	if perr != nil {
		return 0, fmt.Errorf("%w: get_serial: unparsable output %q: %v", ErrToolExit, res.Stdout, perr)
	}
	return uint32(n), nil
}

// GetClass invokes get_class against a zone file and parses the DNS class.
func GetClass(file string) (uint16, error) {
	res, err := runTool("get_class", []string{"-f", file}, nil)
	if err != nil {
		return 0, err
	}
	n, perr := strconv.ParseUint(strings.TrimSpace(res.Stdout), 10, 16)
	if perr != nil {
		return 0, fmt.Errorf("%w: get_class: unparsable output %q: %v", ErrToolExit, res.Stdout, perr)
	}
	return uint16(n), nil
}

// CreateDNSKEY invokes create_dnskey to mint the DNSKEY RR text for a key
// locator and reports it back on the key.
func CreateDNSKEY(engineCfgFile, zone string, class uint16, key *SigningKey) error {
	flags := key.Flags
	args := []string{
		"-c", engineCfgFile,
		"-k", strconv.FormatUint(uint64(class), 10),
		"-o", zone,
		"-a", strconv.FormatUint(uint64(key.Algorithm), 10),
		"-f", strconv.FormatUint(uint64(flags), 10),
		"-t", strconv.FormatUint(uint64(key.TTL), 10),
		key.Locator,
	}
	res, err := runTool("create_dnskey", args, nil)
	if err != nil {
		return err
	}
	key.DNSKEYText = strings.TrimSpace(res.Stdout)
	key.ToolKeyID = key.Locator
	return nil
}

// RunSorter canonically orders a zone file.
func RunSorter(zone, in, out string, soaMin uint32) error {
	args := []string{"-o", zone, "-f", in, "-w", out}
	if soaMin > 0 {
		args = append(args, "-m", strconv.FormatUint(uint64(soaMin), 10))
	}
	_, err := runTool("sorter", args, nil)
	return err
}

// RunZoneReader preprocesses a sorted zone, given the DNSKEY RR text
// block that must precede the zone body on stdin.
func RunZoneReader(class uint16, zone, out string, dnskeys []string, nsec3 *ZoneConfig, omitNSEC3Param bool, body io.Reader) error {
	args := []string{"-k", strconv.FormatUint(uint64(class), 10), "-o", zone, "-w", out}
	if nsec3 != nil && nsec3.DenialNSEC3 {
		args = append(args, "-n",
			"-t", strconv.FormatUint(uint64(nsec3.NSEC3Iterations), 10),
			"-a", strconv.FormatUint(uint64(nsec3.NSEC3Algorithm), 10))
		if nsec3.NSEC3Salt != "" && nsec3.NSEC3Salt != "-" {
			args = append(args, "-s", nsec3.NSEC3Salt)
		}
	}
	if omitNSEC3Param {
		args = append(args, "-p")
	}

	stdin := io.MultiReader(strings.NewReader(strings.Join(dnskeys, "\n")+"\n"), body)
	_, err := runTool("zone_reader", args, stdin)
	return err
}

// RunNSECer adds an NSEC denial chain.
func RunNSECer(in, out string, soaMin uint32) error {
	args := []string{"-f", in, "-w", out}
	if soaMin > 0 {
		args = append(args, "-m", strconv.FormatUint(uint64(soaMin), 10))
	}
	_, err := runTool("nseccer", args, nil)
	return err
}

// RunNSEC3er adds an NSEC3 denial chain.
func RunNSEC3er(zone, in, out string, zc *ZoneConfig) error {
	args := []string{
		"-o", zone,
		"-t", strconv.FormatUint(uint64(zc.NSEC3Iterations), 10),
		"-a", strconv.FormatUint(uint64(zc.NSEC3Algorithm), 10),
		"-i", in, "-w", out,
	}
	if zc.NSEC3Salt != "" && zc.NSEC3Salt != "-" {
		args = append(args, "-s", zc.NSEC3Salt)
	}
	if zc.SOAMinimum > 0 {
		args = append(args, "-m", strconv.FormatUint(uint64(zc.SOAMinimum), 10))
	}
	if zc.DenialNSEC3Optout {
		args = append(args, "-p")
	}
	_, err := runTool("nsec3er", args, nil)
	return err
}

// RunFinalizer strips internal markers off a signed zone and returns the
// deliverable zone text.
func RunFinalizer(signedFile string) (string, error) {
	res, err := runTool("finalizer", []string{"-f", signedFile}, nil)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// RunAuditor runs the audit tool and reports success.
func RunAuditor(engineCfgFile, finalizedFile, zone string) (bool, error) {
	_, err := runTool("auditor", []string{"-c", engineCfgFile, "-s", finalizedFile, "-z", zone}, nil)
	if err != nil {
		return false, err
	}
	return true, nil
}

// signatureCountPrefix starts the signer tool's stderr report of how many
// new signatures it created.
var signatureCountPrefix = "Number of signatures created:"

func parseSignatureCount(stderr string) int {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, signatureCountPrefix) {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, signatureCountPrefix)))
			if err == nil {
				return n
			}
		}
	}
	return 0
}
