// Package report groups invoice records by calendar year and bimonthly period,
// the reporting unit of Taiwanese business tax filings.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicesnap/pkg/models"
)

// PeriodsPerYear is the number of bimonthly periods in a year.
const PeriodsPerYear = 6

var periodLabels = [PeriodsPerYear]string{
	"Jan-Feb", "Mar-Apr", "May-Jun", "Jul-Aug", "Sep-Oct", "Nov-Dec",
}

// Period is one bimonthly bucket.
type Period struct {
	Number int     `json:"period"` // 1..6
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
}

// Year holds all six periods of a year, empty ones included.
type Year struct {
	Year    int                    `json:"year"`
	Count   int                    `json:"count"`
	Sum     float64                `json:"sum"`
	Periods [PeriodsPerYear]Period `json:"periods"`
}

// Report lists the years that have at least one dated record, newest first.
type Report struct {
	Years   []Year `json:"years"`
	Skipped int    `json:"skipped"` // records without a usable date
}

// PeriodOf returns the bimonthly period (1..6) of a calendar month.
func PeriodOf(month time.Month) int {
	return (int(month) + 1) / 2
}

// PeriodLabel returns the display label of period n (1..6).
func PeriodLabel(n int) string {
	if n < 1 || n > PeriodsPerYear {
		return ""
	}
	return periodLabels[n-1]
}

// ParseDate accepts YYYY-MM-DD and, for records written by other tools, RFC 3339.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

type bucket struct {
	count [PeriodsPerYear]int
	sum   [PeriodsPerYear]decimal.Decimal
}

// Build aggregates records. Records whose date is missing or unparseable are
// left out and only counted in Skipped.
func Build(records []models.InvoiceRecord) Report {
	buckets := map[int]*bucket{}
	rep := Report{Years: []Year{}}

	for _, r := range records {
		t, ok := ParseDate(r.Date)
		if !ok {
			rep.Skipped++
			continue
		}
		b := buckets[t.Year()]
		if b == nil {
			b = &bucket{}
			buckets[t.Year()] = b
		}
		p := PeriodOf(t.Month()) - 1
		b.count[p]++
		b.sum[p] = b.sum[p].Add(amount(r.Total))
	}

	for y, b := range buckets {
		year := Year{Year: y}
		total := decimal.Zero
		for i := 0; i < PeriodsPerYear; i++ {
			year.Periods[i] = Period{
				Number: i + 1,
				Label:  periodLabels[i],
				Count:  b.count[i],
				Sum:    b.sum[i].InexactFloat64(),
			}
			year.Count += b.count[i]
			total = total.Add(b.sum[i])
		}
		year.Sum = total.InexactFloat64()
		rep.Years = append(rep.Years, year)
	}

	sort.Slice(rep.Years, func(i, j int) bool { return rep.Years[i].Year > rep.Years[j].Year })
	return rep
}

func amount(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
