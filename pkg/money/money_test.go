package money

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/pkg/enums"
)

func TestFromMajorTruncatesExtraPrecision(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		value    string
		currency enums.Currency
		want     int64
	}{
		{name: "exact", value: "20.00", currency: enums.CurrencyUSD, want: 2000},
		{name: "truncates", value: "10.999", currency: enums.CurrencyUSD, want: 1099},
		{name: "truncates tiny fraction", value: "0.019", currency: enums.CurrencyEUR, want: 1},
		{name: "zero decimal currency", value: "1500.7", currency: enums.CurrencyJPY, want: 1500},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FromMajor(decimal.RequireFromString(tc.value), tc.currency)
			if got.Amount != tc.want {
				t.Fatalf("FromMajor(%s %s) = %d, want %d", tc.value, tc.currency, got.Amount, tc.want)
			}
			if got.Currency != tc.currency {
				t.Fatalf("currency = %s, want %s", got.Currency, tc.currency)
			}
		})
	}
}

func TestAddAndSubRequireSameCurrency(t *testing.T) {
	t.Parallel()

	a := New(1000, enums.CurrencyUSD)
	b := New(250, enums.CurrencyUSD)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Amount != 1250 {
		t.Fatalf("Add = %d, want 1250", sum.Amount)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff.Amount != 750 {
		t.Fatalf("Sub = %d, want 750", diff.Amount)
	}

	if _, err := a.Add(New(100, enums.CurrencyEUR)); err == nil {
		t.Fatal("expected currency mismatch error on Add")
	}
	if _, err := a.Sub(New(100, enums.CurrencyGBP)); err == nil {
		t.Fatal("expected currency mismatch error on Sub")
	}
}

func TestMulDecimalTruncatesTowardZero(t *testing.T) {
	t.Parallel()

	base := New(999, enums.CurrencyUSD)
	tenPct := base.MulDecimal(decimal.RequireFromString("0.10"))
	if tenPct.Amount != 99 {
		t.Fatalf("10%% of 999 = %d, want 99", tenPct.Amount)
	}

	neg := New(-999, enums.CurrencyUSD).MulDecimal(decimal.RequireFromString("0.10"))
	if neg.Amount != -99 {
		t.Fatalf("10%% of -999 = %d, want -99", neg.Amount)
	}
}

func TestMulIntAndNeg(t *testing.T) {
	t.Parallel()

	nightly := New(2000, enums.CurrencyUSD)
	if got := nightly.MulInt(3).Amount; got != 6000 {
		t.Fatalf("MulInt(3) = %d, want 6000", got)
	}
	if got := nightly.Neg().Amount; got != -2000 {
		t.Fatalf("Neg = %d, want -2000", got)
	}
}

func TestStringFormatsByCurrency(t *testing.T) {
	t.Parallel()

	if got := New(6050, enums.CurrencyUSD).String(); got != "60.50 USD" {
		t.Fatalf("String = %q, want %q", got, "60.50 USD")
	}
	if got := New(1500, enums.CurrencyJPY).String(); got != "1500 JPY" {
		t.Fatalf("String = %q, want %q", got, "1500 JPY")
	}
}
