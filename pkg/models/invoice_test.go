package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInvoiceType(t *testing.T) {
	cases := []struct {
		in   string
		want InvoiceType
		ok   bool
	}{
		{"Duplicate", Duplicate, true},
		{" triplicate ", Triplicate, true},
		{"三聯式", Triplicate, true},
		{"二聯式", Duplicate, true},
		{"未知", Unknown, true},
		{"unknown", Unknown, true},
		{"receipt", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseInvoiceType(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestCloneDoesNotShareItems(t *testing.T) {
	r := InvoiceRecord{Items: []InvoiceItem{{Description: "a", Quantity: 1}}}
	c := r.Clone()
	c.Items[0].Description = "b"
	assert.Equal(t, "a", r.Items[0].Description)
	assert.True(t, c.IsDraft())
}
