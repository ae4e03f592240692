package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"invoicesnap/internal/logger"
	"invoicesnap/internal/store"
	"invoicesnap/pkg/models"
)

var saveCmd = &cobra.Command{
	Use:   "save [draft.json]",
	Short: "Commit a draft (or an edited record) to the store",
	Long: `Save a record read from a JSON file ("-" for stdin).

A record without id is created with a new id. A record whose id is already
stored replaces it in place and keeps its original creation time. Invoice
number and date are required; totals are recomputed from the items.`,
	Example: `  invoicesnap capture receipt.jpg -o draft.json
  invoicesnap save draft.json

  invoicesnap show 1f0c... --json | jq '.notes = "travel"' | invoicesnap save -`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved invoices, newest first",
	Example: `  invoicesnap list
  invoicesnap list --search 大同 --type 3
  invoicesnap list --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one invoice with its items",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var renameCmd = &cobra.Command{
	Use:   "rename [id] [buyer name]",
	Short: "Change the buyer name of a saved invoice",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

var deleteCmd = &cobra.Command{
	Use:     "delete [id]",
	Aliases: []string{"rm"},
	Short:   "Delete a saved invoice",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

func init() {
	rootCmd.AddCommand(saveCmd, listCmd, showCmd, renameCmd, deleteCmd)

	listCmd.Flags().StringP("search", "s", "", "Match buyer, invoice number, items, notes or tax id")
	listCmd.Flags().StringP("type", "t", "all", "Invoice type filter: all, 2 (二聯式), 3 (三聯式)")
	listCmd.Flags().Bool("json", false, "Output as JSON")

	showCmd.Flags().Bool("json", false, "Output as JSON")

	deleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func runSave(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("save")

	rec, err := readRecordFile(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := a.store.Save(cmd.Context(), rec)
	if err != nil {
		return handleStoreError(err, rec.ID, log)
	}

	log.Info().Str("id", saved.ID).Str("invoice_number", saved.InvoiceNumber).Msg("Invoice saved")
	printRecord(cmd.OutOrStdout(), saved)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("list")

	search, _ := cmd.Flags().GetString("search")
	typ, _ := cmd.Flags().GetString("type")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	records := store.Filter(a.store.List(), store.Query{Search: search, Type: typ})

	log.Debug().
		Str("search", search).
		Str("type", typ).
		Int("total", a.store.Len()).
		Int("matched", len(records)).
		Msg("Listing invoices")

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), records)
	}
	printList(cmd.OutOrStdout(), records)
	return nil
}

func printList(w io.Writer, records []models.InvoiceRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No invoices.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tDATE\tTYPE\tBUYER\tITEMS\tTOTAL")
	var sum float64
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(r.ID), orDash(r.InvoiceNumber), orDash(r.Date), r.Type,
			orDash(r.BuyerName), len(r.Items), humanize.Commaf(r.Total))
		sum += r.Total
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d invoice(s), NT$%s\n", len(records), humanize.Commaf(sum))
}

func runShow(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("show")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := findRecord(a.store, args[0])
	if err != nil {
		return handleStoreError(err, args[0], log)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), rec)
	}
	printRecord(cmd.OutOrStdout(), rec)
	return nil
}

// printRecord writes a record with its items in a readable layout.
func printRecord(w io.Writer, r models.InvoiceRecord) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Invoice:   %s\n", orDash(r.InvoiceNumber))
	fmt.Fprintf(w, "Date:      %s\n", orDash(r.Date))
	fmt.Fprintf(w, "Type:      %s (%s)\n", r.Type, r.Type.Name())
	fmt.Fprintf(w, "Buyer:     %s\n", orDash(r.BuyerName))
	fmt.Fprintf(w, "Tax ID:    %s\n", orDash(r.BuyerTaxID))
	if r.Notes != "" {
		fmt.Fprintf(w, "Notes:     %s\n", r.Notes)
	}
	if r.ID != "" {
		fmt.Fprintf(w, "ID:        %s\n", r.ID)
	}
	if r.CreatedAt > 0 {
		created := time.UnixMilli(r.CreatedAt)
		fmt.Fprintf(w, "Created:   %s (%s)\n", created.Format("2006-01-02 15:04"), humanize.Time(created))
	}
	if r.ImageURL != "" {
		fmt.Fprintf(w, "Image:     attached (%s)\n", humanize.Bytes(uint64(len(r.ImageURL))))
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))

	if len(r.Items) == 0 {
		fmt.Fprintln(w, "No items.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "#\tDESCRIPTION\tQTY\tUNIT PRICE\tAMOUNT\t")
		for i, item := range r.Items {
			fmt.Fprintf(tw, "%d\t%s\t%g\t%s\t%s\t\n",
				i, orDash(item.Description), item.Quantity,
				humanize.Commaf(item.UnitPrice), humanize.Commaf(item.Amount))
		}
		tw.Flush()
	}

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Subtotal:  %s\n", humanize.Commaf(r.Subtotal))
	fmt.Fprintf(w, "Tax (5%%):  %s\n", humanize.Commaf(r.Tax))
	fmt.Fprintf(w, "Total:     NT$%s\n", humanize.Commaf(r.Total))
}

func runRename(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("rename")

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := findRecord(a.store, args[0])
	if err != nil {
		return handleStoreError(err, args[0], log)
	}

	renamed, err := a.store.Rename(cmd.Context(), rec.ID, args[1])
	if err != nil {
		return handleStoreError(err, rec.ID, log)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s: %q -> %q\n", orDash(renamed.InvoiceNumber), rec.BuyerName, renamed.BuyerName)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("delete")
	yes, _ := cmd.Flags().GetBool("yes")

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := findRecord(a.store, args[0])
	if err != nil {
		return handleStoreError(err, args[0], log)
	}

	if !yes {
		question := fmt.Sprintf("Delete invoice %s (%s, NT$%s)?",
			orDash(rec.InvoiceNumber), orDash(rec.BuyerName), humanize.Commaf(rec.Total))
		ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing deleted.")
			return nil
		}
	}

	if err := a.store.Delete(cmd.Context(), rec.ID); err != nil {
		return handleStoreError(err, rec.ID, log)
	}

	log.Info().Str("id", rec.ID).Msg("Invoice deleted")
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted invoice %s\n", orDash(rec.InvoiceNumber))
	return nil
}

// findRecord looks a record up by full id or by an unambiguous id prefix as
// printed by list.
func findRecord(s *store.Store, id string) (models.InvoiceRecord, error) {
	if rec, ok := s.FindByID(id); ok {
		return rec, nil
	}
	if len(id) < 4 {
		return models.InvoiceRecord{}, store.ErrNotFound
	}

	var found []models.InvoiceRecord
	for _, r := range s.List() {
		if strings.HasPrefix(r.ID, id) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return models.InvoiceRecord{}, store.ErrNotFound
	case 1:
		return found[0], nil
	}
	return models.InvoiceRecord{}, fmt.Errorf("id prefix %q matches %d invoices", id, len(found))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
