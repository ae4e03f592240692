package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"invoicesnap/internal/backup"
	"invoicesnap/internal/logger"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all invoices to a JSON backup file",
	Long: `Export every saved invoice as an indented JSON array.

The default file name is invoice_backup_YYYY-MM-DD.json in the current
directory. Use -o - to write to stdout.`,
	Example: `  invoicesnap export
  invoicesnap export -o ~/backups/invoices.json
  invoicesnap export -o - | jq length`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [backup.json]",
	Short: "Replace all invoices with the contents of a backup",
	Long: `Import a backup written by 'export'. The import replaces every saved
invoice; it never merges. The file must be a JSON array of invoices, otherwise
nothing is changed.

Use - to read the backup from stdin. Stdin then cannot answer the
confirmation prompt, so --yes is required.`,
	Example: `  invoicesnap import invoice_backup_2024-05-02.json
  invoicesnap import backup.json --yes
  cat backup.json | invoicesnap import - --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// errStdinNeedsYes is returned for "import -" without --yes.
var errStdinNeedsYes = errors.New("reading the backup from stdin leaves no way to confirm: add --yes")

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)

	exportCmd.Flags().StringP("output", "o", "", "Output file (default: invoice_backup_<today>.json, - for stdout)")

	importCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = backup.FileName(time.Now())
	}

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	records := a.store.List()

	if outputPath == "-" {
		return backup.Export(cmd.OutOrStdout(), records)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	if err := backup.Export(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	log.Info().Str("file", outputPath).Int("records", len(records)).Msg("Exported invoices")
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d invoice(s) to %s\n", len(records), outputPath)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import")
	yes, _ := cmd.Flags().GetBool("yes")

	path := args[0]
	if path == "-" && !yes {
		return errStdinNeedsYes
	}

	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open backup: %w", err)
		}
		defer f.Close()
		in = f
	}

	records, err := backup.Decode(in)
	if err != nil {
		return handleBackupError(err, path)
	}

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var ask backup.ConfirmFunc
	if !yes {
		current := a.store.Len()
		ask = func(count int) (bool, error) {
			return confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
				fmt.Sprintf("Replace all %d saved invoice(s) with %d from %s?", current, count, path))
		}
	}

	err = backup.Import(cmd.Context(), a.store, records, ask)
	if errors.Is(err, backup.ErrImportDeclined) {
		fmt.Fprintln(cmd.OutOrStdout(), "Import canceled, nothing changed.")
		return nil
	}
	if err != nil {
		return handleStoreError(err, "", log)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d invoice(s)\n", len(records))
	return nil
}

func handleBackupError(err error, path string) error {
	switch {
	case errors.Is(err, backup.ErrNotArray):
		return fmt.Errorf("%s is not an invoice backup: expected a JSON array", path)
	case errors.Is(err, backup.ErrMalformed):
		return fmt.Errorf("%s is not valid JSON, nothing imported: %w", path, err)
	default:
		return err
	}
}
