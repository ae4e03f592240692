package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"invoicesnap/internal/invoice"
	"invoicesnap/internal/logger"
	"invoicesnap/pkg/models"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Enter an invoice by hand",
	Long: `Create an invoice without an image. Fields not given keep the manual-entry
defaults: today's date, type 三聯式 (triplicate), no items.

Items are given as "description:quantity:unit price"; quantity and price may be
omitted and default to 1 and 0. Subtotal, tax (5%) and total are always
computed from the items.

Without --number the record cannot be saved; use --draft to write the draft
and finish it later with 'invoicesnap save'.`,
	Example: `  invoicesnap add --number AB12345678 --buyer 大同公司 --tax-id 12345678 \
      --item "文具:2:100" --item "影印紙:1:150"

  # Start a draft to complete later
  invoicesnap add --type 2 --draft -o draft.json`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().String("number", "", "Invoice number (2 letters + 8 digits)")
	addCmd.Flags().String("date", "", "Invoice date YYYY-MM-DD (default: today)")
	addCmd.Flags().String("type", "", "Invoice type: 2/duplicate/二聯式 or 3/triplicate/三聯式")
	addCmd.Flags().String("buyer", "", "Buyer name (抬頭)")
	addCmd.Flags().String("tax-id", "", "Buyer tax id (統一編號)")
	addCmd.Flags().String("notes", "", "Free-form notes")
	addCmd.Flags().StringArray("item", nil, `Line item "description:quantity:unit price" (repeatable)`)
	addCmd.Flags().Bool("draft", false, "Write the draft instead of saving it")
	addCmd.Flags().StringP("output", "o", "", "Draft output file with --draft (default: stdout)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("add")

	asDraft, _ := cmd.Flags().GetBool("draft")
	outputPath, _ := cmd.Flags().GetString("output")
	itemArgs, _ := cmd.Flags().GetStringArray("item")

	draft := invoice.NewDraft(time.Now())
	draft.InvoiceNumber, _ = cmd.Flags().GetString("number")
	draft.BuyerName, _ = cmd.Flags().GetString("buyer")
	draft.BuyerTaxID, _ = cmd.Flags().GetString("tax-id")
	draft.Notes, _ = cmd.Flags().GetString("notes")

	if date, _ := cmd.Flags().GetString("date"); date != "" {
		if _, err := time.Parse(invoice.DateLayout, date); err != nil {
			return fmt.Errorf("invalid --date %q: use YYYY-MM-DD", date)
		}
		draft.Date = date
	}
	if typ, _ := cmd.Flags().GetString("type"); typ != "" {
		t, ok := models.ParseInvoiceType(typ)
		if !ok {
			return fmt.Errorf("invalid --type %q: use 2 (二聯式) or 3 (三聯式)", typ)
		}
		draft.Type = t
	}

	for _, arg := range itemArgs {
		item, err := parseItemArg(arg)
		if err != nil {
			return err
		}
		invoice.AddItem(&draft, item)
	}

	if asDraft {
		return outputDraft(cmd, draft, outputPath)
	}

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := a.store.Save(cmd.Context(), draft)
	if err != nil {
		return handleStoreError(err, "", log)
	}

	log.Info().Str("id", saved.ID).Str("invoice_number", saved.InvoiceNumber).Msg("Invoice added")
	printRecord(cmd.OutOrStdout(), saved)
	return nil
}

// parseItemArg parses "description:quantity:unit price". Quantity and price
// are optional; the description may itself contain colons only when both
// numbers are given.
func parseItemArg(arg string) (models.InvoiceItem, error) {
	item := invoice.NewItem("")

	parts := strings.Split(arg, ":")
	var nums []string
	switch {
	case len(parts) >= 3:
		nums = parts[len(parts)-2:]
		item.Description = strings.Join(parts[:len(parts)-2], ":")
	case len(parts) == 2:
		nums = parts[1:]
		item.Description = parts[0]
	default:
		item.Description = parts[0]
	}
	item.Description = strings.TrimSpace(item.Description)

	if len(nums) > 0 && strings.TrimSpace(nums[0]) != "" {
		q, err := parseNumberArg(nums[0])
		if err != nil {
			return item, fmt.Errorf("invalid quantity in item %q: %w", arg, err)
		}
		item.Quantity = q
	}
	if len(nums) > 1 && strings.TrimSpace(nums[1]) != "" {
		p, err := parseNumberArg(nums[1])
		if err != nil {
			return item, fmt.Errorf("invalid unit price in item %q: %w", arg, err)
		}
		item.UnitPrice = p
	}

	item.Amount = invoice.ItemAmount(item.Quantity, item.UnitPrice)
	return item, nil
}

// parseNumberArg reads a number that may carry thousands separators.
func parseNumberArg(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}
