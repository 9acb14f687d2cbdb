package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		name  string
		count int64
		price int64
		want  string
	}{
		{"thousand calls at 140", 1000, 140, "1400"},
		{"zero calls", 0, 140, "0"},
		{"zero price", 1000, 0, "0"},
		{"fractional major units", 3, 5, "0.15"},
		{"single call", 1, 199, "1.99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Amount(tt.count, tt.price)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("Amount(%d, %d) = %s, want %s", tt.count, tt.price, got, tt.want)
			}
		})
	}
}

func TestAmountStringRendering(t *testing.T) {
	if got := Amount(1000, 140).StringFixed(2); got != "1400.00" {
		t.Fatalf("expected 1400.00, got %s", got)
	}
}

func TestSum(t *testing.T) {
	total := Sum(Amount(1000, 140), Amount(500, 180))
	if !total.Equal(decimal.RequireFromString("2300")) {
		t.Fatalf("expected 2300, got %s", total)
	}
	if !Sum().Equal(decimal.Zero) {
		t.Fatal("empty sum must be zero")
	}
}
