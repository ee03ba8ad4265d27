// Package cmd provides the CLI commands for the GreenSteel gateway.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/greensteel/gateway/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "greensteel",
	Short: "GreenSteel - API gateway and auth service",
	Long: `GreenSteel is the API gateway for the GreenSteel platform.

It routes frontend requests to the backend microservices (auth, user,
cbam, chatbot, lca, report), applies the CORS policy, and runs the
session-based auth service.

Quick start:
  1. Create a config file: greensteel.yaml
  2. Run the gateway: greensteel gateway
  3. Run the auth service: greensteel auth

Configuration:
  Config is loaded from greensteel.yaml in the current directory,
  $HOME/.greensteel/, or /etc/greensteel/.

  Environment variables can override config values with the GREENSTEEL_ prefix.
  Example: GREENSTEEL_SERVER_HTTP_ADDR=0.0.0.0:9090

Commands:
  gateway        Start the gateway server
  auth           Start the auth service
  config         Print the effective configuration
  hash-password  Hash a password for seeding accounts
  version        Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./greensteel.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
