package report_test

import (
	"fmt"

	"invoicesnap/internal/report"
	"invoicesnap/pkg/models"
)

func ExampleBuild() {
	rep := report.Build([]models.InvoiceRecord{
		{Date: "2024-01-15", Total: 105},
		{Date: "2024-02-03", Total: 263},
		{Date: "2023-11-20", Total: 42},
	})
	for _, y := range rep.Years {
		fmt.Println(y.Year, y.Count, y.Sum)
		for _, p := range y.Periods {
			if p.Count > 0 {
				fmt.Printf("  %s: %d invoices, %v\n", p.Label, p.Count, p.Sum)
			}
		}
	}
	// Output:
	// 2024 2 368
	//   Jan-Feb: 2 invoices, 368
	// 2023 1 42
	//   Nov-Dec: 1 invoices, 42
}
