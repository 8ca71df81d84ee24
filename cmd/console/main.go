package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "SpaceAI admin console backend",
	Long: `Admin console backend: bots, agents, products, analytics snapshots
and backend integrations, each kept as a collection persisted through a
key-value store (memory, Redis or PostgreSQL).

Run "console serve" to start the Console API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config.yaml (default ./config.yaml or ./configs/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(keygenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
