package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"invoicesnap/internal/logger"
	"invoicesnap/internal/report"
	"invoicesnap/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize invoice totals per year and bimonthly period",
	Long: `Show counts and totals per year and per two-month tax period
(Jan-Feb, Mar-Apr, ...). Invoices without a valid date are left out and counted
separately.`,
	Example: `  invoicesnap stats
  invoicesnap stats --year 2024
  invoicesnap stats --plain > summary.md
  invoicesnap stats --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Int("year", 0, "Only show this year")
	statsCmd.Flags().StringP("type", "t", "all", "Invoice type filter: all, 2 (二聯式), 3 (三聯式)")
	statsCmd.Flags().Bool("json", false, "Output as JSON")
	statsCmd.Flags().Bool("plain", false, "Print the markdown source instead of rendering it")
}

func runStats(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("stats")

	year, _ := cmd.Flags().GetInt("year")
	typ, _ := cmd.Flags().GetString("type")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	plain, _ := cmd.Flags().GetBool("plain")

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	rep := report.Build(store.Filter(a.store.List(), store.Query{Type: typ}))
	if year != 0 {
		kept := rep.Years[:0]
		for _, y := range rep.Years {
			if y.Year == year {
				kept = append(kept, y)
			}
		}
		rep.Years = kept
	}

	log.Debug().Int("years", len(rep.Years)).Int("skipped", rep.Skipped).Msg("Built period report")

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), rep)
	}

	md := reportMarkdown(rep)
	if plain {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create markdown renderer, printing plain")
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to render markdown, printing plain")
		out = md
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// reportMarkdown renders the report as one table per year.
func reportMarkdown(rep report.Report) string {
	var b strings.Builder
	b.WriteString("# Invoice summary\n\n")

	if len(rep.Years) == 0 {
		b.WriteString("No dated invoices.\n")
	}

	for _, y := range rep.Years {
		fmt.Fprintf(&b, "## %d\n\n", y.Year)
		b.WriteString("| Period | Invoices | Total (NT$) |\n")
		b.WriteString("|---|---:|---:|\n")
		for _, p := range y.Periods {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", p.Label, p.Count, humanize.Commaf(p.Sum))
		}
		fmt.Fprintf(&b, "| **Year** | **%d** | **%s** |\n\n", y.Count, humanize.Commaf(y.Sum))
	}

	if rep.Skipped > 0 {
		fmt.Fprintf(&b, "_%d invoice(s) without a valid date are not included._\n", rep.Skipped)
	}
	return b.String()
}
