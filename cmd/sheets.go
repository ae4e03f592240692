package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"invoicesnap/internal/config"
	"invoicesnap/internal/logger"
	"invoicesnap/internal/report"
	"invoicesnap/internal/sheets"
	"invoicesnap/internal/store"
	"invoicesnap/pkg/models"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Google Sheets integration",
}

var sheetsPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Append saved invoices to a Google Sheet",
	Long: `Append invoices as rows to a worksheet of a Google Sheet. The worksheet is
created with a header row if it does not exist. Invoices whose id is already
on the worksheet are skipped unless --all is given.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Spreadsheet URL (or use --url)

The spreadsheet must be shared with the service account's email address.`,
	Example: `  invoicesnap sheets push
  invoicesnap sheets push --since 2024-05-01 --sheet 2024
  invoicesnap sheets push --url https://docs.google.com/spreadsheets/d/<id>/edit --type 3`,
	Args: cobra.NoArgs,
	RunE: runSheetsPush,
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
	sheetsCmd.AddCommand(sheetsPushCmd)

	sheetsPushCmd.Flags().String("url", "", "Spreadsheet URL (overrides GOOGLE_SHEET_URL)")
	sheetsPushCmd.Flags().String("sheet", "", "Worksheet name (overrides GOOGLE_SHEET_WORKSHEET)")
	sheetsPushCmd.Flags().StringP("search", "s", "", "Only push invoices matching this text")
	sheetsPushCmd.Flags().StringP("type", "t", "all", "Invoice type filter: all, 2 (二聯式), 3 (三聯式)")
	sheetsPushCmd.Flags().String("since", "", "Only push invoices dated on or after YYYY-MM-DD")
	sheetsPushCmd.Flags().Bool("all", false, "Also push invoices already on the worksheet")
	sheetsPushCmd.Flags().Int("timeout", 60, "Timeout in seconds")
}

func runSheetsPush(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sheets")

	url, _ := cmd.Flags().GetString("url")
	sheetName, _ := cmd.Flags().GetString("sheet")
	search, _ := cmd.Flags().GetString("search")
	typ, _ := cmd.Flags().GetString("type")
	since, _ := cmd.Flags().GetString("since")
	pushAll, _ := cmd.Flags().GetBool("all")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	var sinceDate time.Time
	if since != "" {
		t, ok := report.ParseDate(since)
		if !ok {
			return fmt.Errorf("invalid --since %q: use YYYY-MM-DD", since)
		}
		sinceDate = t
	}

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if url == "" {
		url = a.cfg.GoogleSheetURL
	}
	if url == "" {
		return fmt.Errorf("no spreadsheet given: set GOOGLE_SHEET_URL or use --url")
	}
	if sheetName == "" {
		sheetName = a.cfg.GoogleSheetWorksheet
	}

	records := store.Filter(a.store.List(), store.Query{Search: search, Type: typ})
	if !sinceDate.IsZero() {
		records = datedSince(records, sinceDate)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No invoices to push.")
		return nil
	}

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	svc, err := sheets.NewService(ctx, url)
	if err != nil {
		if errors.Is(err, config.ErrNotConfigured) {
			return fmt.Errorf("Google credentials not configured: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")
		}
		return err
	}

	if !pushAll {
		pushed, err := svc.PushedIDs(ctx, sheetName)
		if err != nil {
			return fmt.Errorf("failed to read worksheet %q: %w", sheetName, err)
		}
		before := len(records)
		records = sheets.Unpushed(records, pushed)
		log.Debug().Int("skipped", before-len(records)).Msg("Skipping invoices already on the worksheet")
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "All invoices are already on the worksheet.")
			return nil
		}
	}

	n, err := svc.PushRecords(ctx, records, sheetName)
	if err != nil {
		log.Error().Err(err).Msg("Push to Google Sheet failed")
		return fmt.Errorf("failed to push invoices: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d invoice(s) to worksheet %q\n", n, sheetName)
	return nil
}

// datedSince keeps records dated on or after since; undated records are dropped.
func datedSince(records []models.InvoiceRecord, since time.Time) []models.InvoiceRecord {
	out := records[:0:0]
	for _, r := range records {
		if t, ok := report.ParseDate(r.Date); ok && !t.Before(since) {
			out = append(out, r)
		}
	}
	return out
}
