package invoice

import "testing"

func TestNormalizeQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3.00", "3"},
		{"3", "3"},
		{"1.0", "1"},
		{"2.5", "2.5"},
		{"0.50", "0.50"},
		{"1,200.00", "1200"},
		{"  4.000  ", "4"},
		{"", ""},
		{"n/a", "n/a"},
	}
	for _, tt := range tests {
		if got := NormalizeQuantity(tt.in); got != tt.want {
			t.Errorf("NormalizeQuantity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeAmountIdempotent(t *testing.T) {
	inputs := []string{"$1,234.56", "1234.56", " $99.00 ", "(250.00)", ""}
	for _, in := range inputs {
		once := NormalizeAmount(in)
		twice := NormalizeAmount(once)
		if once != twice {
			t.Errorf("NormalizeAmount not idempotent for %q: %q then %q", in, once, twice)
		}
	}
	if got := NormalizeAmount("$1,234.56"); got != "1234.56" {
		t.Errorf("NormalizeAmount($1,234.56) = %q, want 1234.56", got)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"$1,234.56", "1234.56", true},
		{"(250.00)", "-250", true},
		{"0", "0", true},
		{"", "0", false},
		{"abc", "0", false},
	}
	for _, tt := range tests {
		d, ok := ParseAmount(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseAmount(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !d.Equal(mustDecimal(t, tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, d, tt.want)
		}
	}
}
