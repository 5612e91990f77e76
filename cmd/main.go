package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chat-playground",
	Short: "Chat playground API server",
	Long: `Chat playground API: JWT sign-in, a per-user per-minute call budget
and admin endpoints for adjusting it. Running without a subcommand serves HTTP.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default configs/config.yml)")
	rootCmd.AddCommand(serveCmd, seedAdminCmd, setLimitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
