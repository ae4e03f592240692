package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicesnap/pkg/models"
)

func TestBuildGroupsByBimonthlyPeriod(t *testing.T) {
	rep := Build([]models.InvoiceRecord{
		{Date: "2024-01-15", Total: 100},
		{Date: "2024-04-10", Total: 200},
		{Date: "not a date", Total: 999},
	})

	require.Len(t, rep.Years, 1)
	y := rep.Years[0]
	assert.Equal(t, 2024, y.Year)
	assert.Equal(t, Period{Number: 1, Label: "Jan-Feb", Count: 1, Sum: 100}, y.Periods[0])
	assert.Equal(t, Period{Number: 2, Label: "Mar-Apr", Count: 1, Sum: 200}, y.Periods[1])
	for i := 2; i < PeriodsPerYear; i++ {
		assert.Zero(t, y.Periods[i].Count)
		assert.Zero(t, y.Periods[i].Sum)
	}
	assert.Equal(t, 2, y.Count)
	assert.Equal(t, 300.0, y.Sum)
	assert.Equal(t, 1, rep.Skipped)
}

func TestBuildOrdersYearsDescending(t *testing.T) {
	rep := Build([]models.InvoiceRecord{
		{Date: "2022-12-31", Total: 1},
		{Date: "2024-06-01", Total: 2},
		{Date: ""},
		{Date: "2023-07-01T08:00:00+08:00", Total: 3},
	})

	var years []int
	for _, y := range rep.Years {
		years = append(years, y.Year)
	}
	assert.Equal(t, []int{2024, 2023, 2022}, years)
	assert.Equal(t, 1, rep.Years[1].Periods[3].Count)
	assert.Equal(t, 1, rep.Years[2].Periods[5].Count)
	assert.Equal(t, 1, rep.Skipped)
}

func TestBuildEmpty(t *testing.T) {
	rep := Build(nil)
	assert.Empty(t, rep.Years)
	assert.Zero(t, rep.Skipped)
}

func TestBuildSumsExactly(t *testing.T) {
	rep := Build([]models.InvoiceRecord{
		{Date: "2024-03-01", Total: 0.1},
		{Date: "2024-03-02", Total: 0.2},
	})
	assert.Equal(t, 0.3, rep.Years[0].Periods[1].Sum)
}

func TestPeriodOf(t *testing.T) {
	want := []int{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6}
	for m := time.January; m <= time.December; m++ {
		assert.Equal(t, want[m-1], PeriodOf(m), m.String())
	}
	assert.Equal(t, "Nov-Dec", PeriodLabel(6))
	assert.Equal(t, "", PeriodLabel(0))
}
