/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/johanstenstam/signerd/signer"
)

var cfgFile string

var RootCmd = &cobra.Command{
	Use:   "signerctl",
	Short: "signerctl talks to the signerd zone-signing engine's command channel",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		debug, _ := cmd.Flags().GetBool("debug")
		signer.SetupCliLogging(verbose, debug)

		SocketPath = viper.GetString("signing.socketpath")
		if SocketPath == "" {
			SocketPath = signer.DefaultSocketPath
		}
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", signer.DefaultCliCfgFile, "configuration file")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().BoolP("debug", "", false, "debug output")
	RootCmd.PersistentFlags().String("socket", "", "override the command socket path")
	viper.BindPFlag("signing.socketpath", RootCmd.PersistentFlags().Lookup("socket"))

	RootCmd.AddCommand(zonesCmd, signCmd, clearCmd, queueCmd, flushCmd, updateCmd, verbosityCmd, stopCmd, helpCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.ReadInConfig() // best-effort: signerctl works fine against socket-only defaults
	}
}
