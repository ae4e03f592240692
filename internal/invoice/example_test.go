package invoice_test

import (
	"fmt"
	"time"

	"invoicesnap/internal/invoice"
	"invoicesnap/pkg/models"
)

func ExampleComputeTotals() {
	t := invoice.ComputeTotals([]models.InvoiceItem{
		{Description: "notebook", Quantity: 2, UnitPrice: 100, Amount: 200},
		{Description: "pen", Quantity: 1, UnitPrice: 50, Amount: 50},
	})
	fmt.Println(t.Subtotal, t.Tax, t.Total)
	// Output: 250 13 263
}

// ExampleAddItem builds a draft the way the add command does.
func ExampleAddItem() {
	rec := invoice.NewDraft(time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC))
	invoice.AddItem(&rec, models.InvoiceItem{Description: "lunch box", Quantity: 3, UnitPrice: 85})

	fmt.Println(rec.Date, rec.Type.Name())
	fmt.Println(rec.Items[0].Amount, rec.Subtotal, rec.Tax, rec.Total)
	// Output:
	// 2024-05-02 Triplicate
	// 255 255 13 268
}
