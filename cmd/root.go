package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicesnap/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoicesnap",
	Short: "invoicesnap - capture and keep Taiwanese Uniform Invoices",
	Long: `invoicesnap turns photos of Taiwanese Uniform Invoices (統一發票) into
editable records, keeps them in a local database and summarizes them per
bimonthly tax period.

A typical session:
  invoicesnap capture receipt.jpg -o draft.json   # recognize into a draft
  invoicesnap item set draft.json 0 --price 120   # fix what was misread
  invoicesnap save draft.json                     # commit the draft
  invoicesnap stats                               # period summary

Configuration is read from the environment (and a .env file):
  INVOICESNAP_DB     - Database file (default: ~/.invoicesnap/invoicesnap.db)
  RECOGNIZER         - gemini (default), openai or documentai
  GEMINI_API_KEY     - Gemini API key (or store one with 'config set-key')
  OPENAI_API_KEY     - OpenAI API key for the openai recognizer
  LOG_LEVEL          - debug, info, warn (default), error`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Close()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database file (overrides INVOICESNAP_DB)")
}
