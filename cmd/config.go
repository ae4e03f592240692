package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"invoicesnap/internal/config"
	"invoicesnap/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration and manage stored API keys",
}

var configStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which recognizer is used and where its credential comes from",
	Args:  cobra.NoArgs,
	RunE:  runConfigStatus,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [gemini|openai] [key]",
	Short: "Store an API key in the local database",
	Long: `Store an API key for a recognizer. Without the key argument it is read
from stdin, which keeps it out of the shell history.

A key built into the binary takes precedence over a stored key, and a stored
key takes precedence over the environment.`,
	Example: `  invoicesnap config set-key gemini
  echo "$KEY" | invoicesnap config set-key openai`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSetKey,
}

var configClearKeyCmd = &cobra.Command{
	Use:   "clear-key [gemini|openai]",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigClearKey,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configStatusCmd, configSetKeyCmd, configClearKeyCmd)
}

func runConfigStatus(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("config")

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database:    %s (%d invoices)\n", a.cfg.DatabasePath, a.store.Len())
	fmt.Fprintf(out, "Recognizer:  %s\n", a.cfg.Recognizer)
	fmt.Fprintf(out, "Timeout:     %s\n", a.cfg.RecognitionTimeout)
	fmt.Fprintln(out)

	for _, provider := range []string{config.ProviderGemini, config.ProviderOpenAI, config.ProviderDocumentAI} {
		marker := " "
		if provider == a.cfg.Recognizer {
			marker = "*"
		}

		cred, err := a.resolver.Resolve(cmd.Context(), provider)
		switch {
		case errors.Is(err, config.ErrNotConfigured):
			fmt.Fprintf(out, "%s %-11s not configured\n", marker, provider)
		case err != nil:
			fmt.Fprintf(out, "%s %-11s error: %v\n", marker, provider, err)
		default:
			fmt.Fprintf(out, "%s %-11s %s (%s)\n", marker, provider, cred.Masked(), cred.Source)
		}
	}

	if a.cfg.GoogleSheetURL != "" {
		fmt.Fprintf(out, "\nGoogle Sheet: %s (worksheet %q)\n", a.cfg.GoogleSheetURL, a.cfg.GoogleSheetWorksheet)
	}
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("config")

	provider, err := keyProvider(args[0])
	if err != nil {
		return err
	}

	var key string
	if len(args) == 2 {
		key = args[1]
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "Enter %s API key: ", provider)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read key: %w", err)
		}
		key = line
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty key, nothing stored")
	}

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.resolver.Store(cmd.Context(), provider, key); err != nil {
		return err
	}

	log.Info().Str("provider", provider).Msg("Stored API key")
	stored := config.Credential{Provider: provider, Value: key, Source: config.SourceStored}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %s key %s\n", provider, stored.Masked())

	if cred, err := a.resolver.Resolve(cmd.Context(), provider); err == nil && cred.Source == config.SourceBuild {
		fmt.Fprintln(cmd.OutOrStdout(), "Note: this binary has a built-in key, which is used instead.")
	}
	return nil
}

func runConfigClearKey(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("config")

	provider, err := keyProvider(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.resolver.Clear(cmd.Context(), provider); err != nil {
		return err
	}

	log.Info().Str("provider", provider).Msg("Cleared stored API key")
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared stored %s key\n", provider)
	return nil
}

func keyProvider(s string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case config.ProviderGemini, config.ProviderOpenAI:
		return p, nil
	}
	return "", fmt.Errorf("unknown key provider %q: use gemini or openai", s)
}
