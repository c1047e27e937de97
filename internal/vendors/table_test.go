package vendors

import "testing"

func testTable() *Table {
	return NewTable(
		[]string{"S&B", "Industrial Injection", "Fleece Performance Engineering"},
		map[string][]string{
			"S&B": {
				"S&B Filters",
				"15461 Slover Avenue",
			},
			"Industrial Injection":           {"Industrial Injection Service"},
			"Fleece Performance Engineering": {"Fleece Performance"},
		},
	)
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"S&B", "sandb"},
		{"s & b", "sandb"},
		{"S and B", "sandb"},
		{"Industrial Injection", "industrialinjection"},
		{"  Fleece-Performance  ", "fleeceperformance"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeKeyIdempotent(t *testing.T) {
	for _, in := range []string{"S&B", "No Limit Mfg.", "Thoroughbred Diesel"} {
		once := NormalizeKey(in)
		if twice := NormalizeKey(once); twice != once {
			t.Errorf("NormalizeKey not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	tbl := testTable()
	tests := []struct {
		in   string
		want string
	}{
		{"s & b", "S&B"},
		{"S and B", "S&B"},
		{"S&B Filters", "S&B"},
		{"industrial injection service", "Industrial Injection"},
		{"Unknown Vendor Co", "Unknown Vendor Co"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := tbl.Canonicalize(tt.in); got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindInTextLongestMatchWins(t *testing.T) {
	tbl := testTable()
	text := "Sold by Industrial Injection Service\nPO Box 100"
	if got := tbl.FindInText(text); got != "Industrial Injection" {
		// canonical scan runs before aliases, and the canonical name is
		// present inside the alias text
		t.Errorf("FindInText = %q, want Industrial Injection", got)
	}

	text = "Fleece Performance Engineering\n400 Southpoint Circle"
	if got := tbl.FindInText(text); got != "Fleece Performance Engineering" {
		t.Errorf("FindInText = %q, want Fleece Performance Engineering", got)
	}
}

func TestFindInTextEarliestOnTie(t *testing.T) {
	tbl := NewTable([]string{"Alpha Corp", "Bravo Corp"}, nil)
	text := "Bravo Corp invoice issued for Alpha Corp order"
	if got := tbl.FindInText(text); got != "Bravo Corp" {
		t.Errorf("FindInText = %q, want Bravo Corp (earliest of equal length)", got)
	}
}

func TestFindByAddressAlias(t *testing.T) {
	tbl := testTable()

	text := "15461 Slover Avenue\nFontana CA 92337"
	if got := tbl.FindByAddressAlias(text); got != "15461 Slover Avenue" {
		t.Errorf("FindByAddressAlias = %q, want the address alias", got)
	}

	// aliases without a digit never participate
	if got := tbl.FindByAddressAlias("S&B Filters quality air intakes"); got != "" {
		t.Errorf("FindByAddressAlias matched digitless alias %q", got)
	}

	if got := tbl.FindByAddressAlias("some unrelated text"); got != "" {
		t.Errorf("FindByAddressAlias = %q, want empty", got)
	}
}

func TestAliasesFor(t *testing.T) {
	tbl := testTable()
	got := tbl.AliasesFor("s and b")
	want := map[string]bool{"S&B Filters": true, "15461 Slover Avenue": true}
	if len(got) != len(want) {
		t.Fatalf("AliasesFor returned %v, want %d aliases", got, len(want))
	}
	for _, a := range got {
		if !want[a] {
			t.Errorf("unexpected alias %q", a)
		}
	}
	if res := tbl.AliasesFor("nope"); res != nil {
		t.Errorf("AliasesFor(unknown) = %v, want nil", res)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"S&B Filters", true},
		{"Pacific Performance Engineering", true},
		{"", false},
		{"X", false},
		{"12345", false},
		{"Invoice", false},
		{"Bill To", false},
		{"Diesel Power Products", false},
		{"___________ Credit Card", false},
	}
	for _, tt := range tests {
		if got := ValidateName(tt.in); got != tt.want {
			t.Errorf("ValidateName(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
