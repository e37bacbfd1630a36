package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "coffeebot",
	Short:   "Conversation-partner matching bot for English learners",
	Version: version,
	Long: `coffeebot pairs English learners for weekly conversation practice.

It runs a Telegram bot that onboards learners through a short form,
matches people at the same level by shared interests, and broadcasts
fresh pairings on a schedule.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(broadcastCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
