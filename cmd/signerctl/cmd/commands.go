/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package cmd

import (
	"fmt"
	"strings"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
)

func sendAndPrint(line string) {
	resp, err := SendCommand(line)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(resp)
}

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Show status of all known zones",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := SendCommand("zones")
		if err != nil {
			fmt.Println(err)
			return
		}
		lines := strings.Split(strings.TrimRight(resp, "\n"), "\n")
		if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
			fmt.Println("No zones configured.")
			return
		}
		fmt.Println(columnize.SimpleFormat(lines))
	},
}

var signCmd = &cobra.Command{
	Use:   "sign <zone>|all",
	Short: "Schedule an immediate (re)sign",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sendAndPrint("sign " + args[0])
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <zone>",
	Short: "Remove all temporary pipeline files for a zone",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sendAndPrint("clear " + args[0])
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the pending task queue",
	Run: func(cmd *cobra.Command, args []string) {
		sendAndPrint("queue")
	},
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Schedule every pending task immediately",
	Run: func(cmd *cobra.Command, args []string) {
		sendAndPrint("flush")
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [<zone>|all]",
	Short: "Re-read the zone list and/or a zone's policy",
	Run: func(cmd *cobra.Command, args []string) {
		line := "update"
		if len(args) > 0 {
			line += " " + args[0]
		}
		sendAndPrint(line)
	},
}

var verbosityCmd = &cobra.Command{
	Use:   "verbosity [<n>]",
	Short: "Get or set the engine's verbosity level",
	Run: func(cmd *cobra.Command, args []string) {
		line := "verbosity"
		if len(args) > 0 {
			line += " " + args[0]
		}
		sendAndPrint(line)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the engine",
	Run: func(cmd *cobra.Command, args []string) {
		sendAndPrint("stop")
	},
}

var helpCmd = &cobra.Command{
	Use:   "engine-help",
	Short: "Show the engine's own command help text",
	Run: func(cmd *cobra.Command, args []string) {
		sendAndPrint("help")
	},
}
