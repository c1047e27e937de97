// Package vendors resolves fuzzy real-world vendor identities. A small alias
// table maps normalized keys to a canonical display name; lookups handle
// spelling, punctuation and "&"/"and" drift, and an address-alias variant can
// identify a vendor purely from its printed mailing address.
package vendors

import (
	"regexp"
	"sort"
	"strings"
)

// KnownCustomers are the names of the invoice recipient's own entities. They
// must never be detected as the issuing vendor.
var KnownCustomers = []string{
	"diesel power products", "power products unlimited",
	"dpp", "bryan howell",
}

// NonVendorWords are labels and boilerplate that look like letterhead lines
// but are never vendor names.
var NonVendorWords = map[string]struct{}{
	"invoice": {}, "sales order": {}, "credit memo": {}, "statement": {},
	"receipt": {}, "bill to": {}, "ship to": {}, "sold to": {}, "page": {},
	"date": {}, "remittance": {}, "terms and conditions": {}, "powered by": {},
	"www.": {}, "http": {}, "warehouse": {},
}

var (
	nonAlnum  = regexp.MustCompile(`[^a-z0-9]+`)
	hasDigit  = regexp.MustCompile(`\d`)
	hasLetter = regexp.MustCompile(`[A-Za-z]`)
	junkText  = regexp.MustCompile(`(?i)_{3,}|Credit Card|Type:|Authorize|Please Enter`)
)

// NormalizeKey reduces a vendor name to a comparable key: lowercase, "&"
// expanded to "and", non-alphanumerics stripped. The loader and every
// resolver lookup share this exact function.
func NormalizeKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "&", "and")
	return nonAlnum.ReplaceAllString(s, "")
}

// Table is the read-only vendor/alias table, built once per run.
type Table struct {
	canonical []string          // canonical names in load order
	aliases   []string          // alias strings in load order, deduplicated
	byKey     map[string]string // normalized key -> canonical name
}

// NewTable builds a table from canonical names and a map of canonical name to
// alias list. Alias keys that collide with an existing key keep the first
// canonical name seen.
func NewTable(canonical []string, aliasesByVendor map[string][]string) *Table {
	t := &Table{byKey: make(map[string]string)}
	seenAlias := map[string]struct{}{}

	for _, v := range canonical {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		t.canonical = append(t.canonical, v)
		if key := NormalizeKey(v); key != "" {
			if _, ok := t.byKey[key]; !ok {
				t.byKey[key] = v
			}
		}
	}
	for _, v := range t.canonical {
		for _, alias := range aliasesByVendor[v] {
			alias = strings.TrimSpace(alias)
			if alias == "" || NormalizeKey(alias) == NormalizeKey(v) {
				continue
			}
			lower := strings.ToLower(alias)
			if _, dup := seenAlias[lower]; dup {
				continue
			}
			seenAlias[lower] = struct{}{}
			t.aliases = append(t.aliases, alias)
			if key := NormalizeKey(alias); key != "" {
				if _, ok := t.byKey[key]; !ok {
					t.byKey[key] = v
				}
			}
		}
	}
	return t
}

// Empty returns a usable table with no entries. A missing vendors file is
// tolerated as an empty table, not an error.
func Empty() *Table { return NewTable(nil, nil) }

func (t *Table) Len() int { return len(t.canonical) }

// Canonical returns the canonical names in load order.
func (t *Table) Canonical() []string { return t.canonical }

// Aliases returns all alias strings in load order.
func (t *Table) Aliases() []string { return t.aliases }

// Canonicalize returns the canonical form for name, or name unchanged when it
// is not in the table.
func (t *Table) Canonicalize(name string) string {
	if name == "" {
		return name
	}
	if canon, ok := t.byKey[NormalizeKey(name)]; ok {
		return canon
	}
	return name
}

// AliasesFor returns the alias strings whose normalized key resolves to the
// same canonical vendor as name.
func (t *Table) AliasesFor(name string) []string {
	canon, ok := t.byKey[NormalizeKey(name)]
	if !ok {
		return nil
	}
	var out []string
	for _, alias := range t.aliases {
		if t.byKey[NormalizeKey(alias)] == canon {
			out = append(out, alias)
		}
	}
	return out
}

// FindInText scans the transcript for any canonical name, then any alias,
// appearing as a substring. The longest match wins; ties go to the earliest
// text position. Matches that embed a known customer phrase are rejected.
func (t *Table) FindInText(text string) string {
	if match := findInTextList(text, t.canonical); match != "" {
		return match
	}
	return findInTextList(text, t.aliases)
}

func findInTextList(text string, list []string) string {
	if text == "" || len(list) == 0 {
		return ""
	}
	textLower := strings.ToLower(text)

	var customerPhrases []string
	for _, c := range KnownCustomers {
		if len(c) >= 4 {
			customerPhrases = append(customerPhrases, c)
		}
	}

	type match struct {
		length int
		pos    int
		name   string
	}
	var matches []match
	for _, name := range list {
		lower := strings.ToLower(name)
		pos := strings.Index(textLower, lower)
		if pos < 0 {
			continue
		}
		collides := false
		for _, cust := range customerPhrases {
			if strings.Contains(lower, cust) {
				collides = true
				break
			}
		}
		if collides {
			continue
		}
		matches = append(matches, match{length: len(name), pos: pos, name: name})
	}
	if len(matches) == 0 {
		return ""
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].length != matches[j].length {
			return matches[i].length > matches[j].length
		}
		return matches[i].pos < matches[j].pos
	})
	return matches[0].name
}

// FindByAddressAlias matches only aliases that carry at least one digit
// (street-number-bearing tokens), by normalized-key containment in the
// normalized transcript. Used to identify a vendor purely from its printed
// mailing address when no vendor label is present.
func (t *Table) FindByAddressAlias(text string) string {
	if text == "" || len(t.aliases) == 0 {
		return ""
	}
	normalizedText := NormalizeKey(text)
	if normalizedText == "" {
		return ""
	}
	for _, alias := range t.aliases {
		if !hasDigit.MatchString(alias) {
			continue
		}
		key := NormalizeKey(alias)
		if key != "" && strings.Contains(normalizedText, key) {
			return alias
		}
	}
	return ""
}

// ValidateName checks whether extracted text is plausibly a vendor name:
// non-empty, 2-80 characters, contains a letter, and is not a known
// non-vendor phrase or a known customer.
func ValidateName(text string) bool {
	if len(text) < 2 || len(text) > 80 {
		return false
	}
	if !hasLetter.MatchString(text) {
		return false
	}
	if junkText.MatchString(text) {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, cust := range KnownCustomers {
		if lower == cust {
			return false
		}
	}
	if _, bad := NonVendorWords[lower]; bad {
		return false
	}
	return true
}
