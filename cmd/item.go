package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicesnap/internal/invoice"
	"invoicesnap/internal/logger"
	"invoicesnap/pkg/models"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Add, change or remove line items",
	Long: `Edit the line items of a draft file or a saved invoice.

The target is either a draft JSON file (as written by 'capture -o' or
'add --draft -o') or the id of a saved invoice. Item positions start at 0, as
printed by 'show'. Changing quantity or unit price recomputes the item amount;
subtotal, tax and total are recomputed after every edit.`,
	Example: `  invoicesnap item add draft.json --desc 文具 --qty 2 --price 100
  invoicesnap item set draft.json 0 --price 120
  invoicesnap item rm 1f0c9a2b 1`,
}

var itemAddCmd = &cobra.Command{
	Use:   "add [draft.json|id]",
	Short: "Append a line item",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemAdd,
}

var itemSetCmd = &cobra.Command{
	Use:   "set [draft.json|id] [index]",
	Short: "Change fields of a line item",
	Args:  cobra.ExactArgs(2),
	RunE:  runItemSet,
}

var itemRmCmd = &cobra.Command{
	Use:   "rm [draft.json|id] [index]",
	Short: "Remove a line item",
	Args:  cobra.ExactArgs(2),
	RunE:  runItemRm,
}

func init() {
	rootCmd.AddCommand(itemCmd)
	itemCmd.AddCommand(itemAddCmd, itemSetCmd, itemRmCmd)

	for _, c := range []*cobra.Command{itemAddCmd, itemSetCmd} {
		c.Flags().String("desc", "", "Item description")
		c.Flags().String("qty", "", "Quantity")
		c.Flags().String("price", "", "Unit price")
	}
}

func runItemAdd(cmd *cobra.Command, args []string) error {
	patch, err := itemPatchFromFlags(cmd)
	if err != nil {
		return err
	}

	return editItems(cmd, args[0], func(rec *models.InvoiceRecord) error {
		item := invoice.NewItem("")
		if patch.Description != nil {
			item.Description = *patch.Description
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if patch.UnitPrice != nil {
			item.UnitPrice = *patch.UnitPrice
		}
		invoice.AddItem(rec, item)
		return nil
	})
}

func runItemSet(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	patch, err := itemPatchFromFlags(cmd)
	if err != nil {
		return err
	}
	if patch == (invoice.ItemPatch{}) {
		return fmt.Errorf("nothing to change: give --desc, --qty or --price")
	}

	return editItems(cmd, args[0], func(rec *models.InvoiceRecord) error {
		return invoice.UpdateItem(rec, index, patch)
	})
}

func runItemRm(cmd *cobra.Command, args []string) error {
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}

	return editItems(cmd, args[0], func(rec *models.InvoiceRecord) error {
		return invoice.RemoveItem(rec, index)
	})
}

// itemPatchFromFlags reads --desc, --qty and --price; flags not given stay nil.
func itemPatchFromFlags(cmd *cobra.Command) (invoice.ItemPatch, error) {
	var patch invoice.ItemPatch

	if cmd.Flags().Changed("desc") {
		desc, _ := cmd.Flags().GetString("desc")
		desc = strings.TrimSpace(desc)
		patch.Description = &desc
	}
	if cmd.Flags().Changed("qty") {
		s, _ := cmd.Flags().GetString("qty")
		q, err := parseNumberArg(s)
		if err != nil {
			return patch, fmt.Errorf("invalid --qty %q: %w", s, err)
		}
		patch.Quantity = &q
	}
	if cmd.Flags().Changed("price") {
		s, _ := cmd.Flags().GetString("price")
		p, err := parseNumberArg(s)
		if err != nil {
			return patch, fmt.Errorf("invalid --price %q: %w", s, err)
		}
		patch.UnitPrice = &p
	}

	return patch, nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid item index %q: use the position shown by 'show', starting at 0", s)
	}
	return i, nil
}

// editItems applies edit to a draft file or to a saved record.
func editItems(cmd *cobra.Command, target string, edit func(*models.InvoiceRecord) error) error {
	log := logger.WithComponent("item")

	if isDraftFile(target) {
		rec, err := readRecordFile(target)
		if err != nil {
			return err
		}
		if err := edit(&rec); err != nil {
			return handleStoreError(err, target, log)
		}
		if err := writeRecordFile(target, rec); err != nil {
			return err
		}
		log.Debug().Str("file", target).Int("items", len(rec.Items)).Msg("Draft items updated")
		printRecord(cmd.OutOrStdout(), rec)
		return nil
	}

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	updated, err := editStoredItems(cmd.Context(), a, target, edit, log)
	if err != nil {
		return err
	}
	printRecord(cmd.OutOrStdout(), updated)
	return nil
}

func editStoredItems(ctx context.Context, a *app, id string, edit func(*models.InvoiceRecord) error, log zerolog.Logger) (models.InvoiceRecord, error) {
	rec, err := findRecord(a.store, id)
	if err != nil {
		return rec, handleStoreError(err, id, log)
	}
	if err := edit(&rec); err != nil {
		return rec, handleStoreError(err, rec.ID, log)
	}

	updated, err := a.store.Update(ctx, rec.ID, rec)
	if err != nil {
		return rec, handleStoreError(err, rec.ID, log)
	}

	log.Info().Str("id", updated.ID).Int("items", len(updated.Items)).Float64("total", updated.Total).Msg("Invoice items updated")
	return updated, nil
}

func isDraftFile(target string) bool {
	if !strings.HasSuffix(strings.ToLower(target), ".json") {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}
