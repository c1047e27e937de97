package vendors

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

var aliasSplit = regexp.MustCompile(`[|;]`)

// SplitAliases splits a delimited alias list on "|" or ";".
func SplitAliases(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, p := range aliasSplit.Split(value, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// vendorFile is the YAML/JSON form of the vendor table.
type vendorFile struct {
	Vendors []vendorEntry `yaml:"vendors" json:"vendors"`
}

type vendorEntry struct {
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

const vendorSchema = `{
  "type": "object",
  "required": ["vendors"],
  "properties": {
    "vendors": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "aliases": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// Load reads the vendor alias table from path. The format follows the file
// extension: .csv (columns: vendor, aliases with "|"/";" delimiters, header
// optional), .yaml/.yml, or .json (validated against a schema before use).
// A missing file yields an empty table, not an error.
func Load(path string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("vendor table not found; continuing with empty table", "path", path)
			return Empty(), nil
		}
		return nil, fmt.Errorf("read vendor table: %w", err)
	}

	var t *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		t, err = parseYAML(raw)
	case ".json":
		t, err = parseJSON(raw)
	default:
		t, err = parseCSV(raw)
	}
	if err != nil {
		return nil, err
	}

	warnNearDuplicates(t, logger)
	logger.Info("vendor table loaded", "path", path, "vendors", t.Len(), "aliases", len(t.Aliases()))
	return t, nil
}

func parseYAML(raw []byte) (*Table, error) {
	var f vendorFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse vendor yaml: %w", err)
	}
	return fromEntries(f.Vendors), nil
}

func parseJSON(raw []byte) (*Table, error) {
	schema, err := jsonschema.CompileString("vendors.schema.json", vendorSchema)
	if err != nil {
		return nil, fmt.Errorf("compile vendor schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse vendor json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("vendor json invalid: %w", err)
	}
	var f vendorFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse vendor json: %w", err)
	}
	return fromEntries(f.Vendors), nil
}

func fromEntries(entries []vendorEntry) *Table {
	var canonical []string
	aliases := map[string][]string{}
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		canonical = append(canonical, name)
		aliases[name] = append(aliases[name], e.Aliases...)
	}
	return NewTable(canonical, aliases)
}

// parseCSV accepts either a bare one-column vendor list or a headered file
// with "vendor" and one of "aliases", "alias", "additional_names" columns.
func parseCSV(raw []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse vendor csv: %w", err)
	}
	if len(rows) == 0 {
		return Empty(), nil
	}

	header := make([]string, len(rows[0]))
	hasHeader := false
	for i, c := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(c))
		switch header[i] {
		case "vendor", "aliases", "alias", "additional_names":
			hasHeader = true
		}
	}

	var canonical []string
	aliases := map[string][]string{}

	if !hasHeader {
		for _, row := range rows {
			if len(row) == 0 {
				continue
			}
			val := strings.TrimSpace(row[0])
			if val == "" || strings.EqualFold(val, "vendor") {
				continue
			}
			canonical = append(canonical, val)
		}
		return NewTable(canonical, aliases), nil
	}

	col := func(row []string, names ...string) string {
		for _, name := range names {
			for i, h := range header {
				if h == name && i < len(row) {
					return strings.TrimSpace(row[i])
				}
			}
		}
		return ""
	}

	for _, row := range rows[1:] {
		vendor := col(row, "vendor")
		if vendor == "" {
			continue
		}
		canonical = append(canonical, vendor)
		aliasVal := col(row, "aliases", "alias", "additional_names")
		aliases[vendor] = append(aliases[vendor], SplitAliases(aliasVal)...)
	}
	return NewTable(canonical, aliases), nil
}

// warnNearDuplicates flags canonical names whose normalized keys are within
// edit distance 2 of each other; those are usually the same vendor entered
// twice with a typo, and the first entry silently wins every lookup.
func warnNearDuplicates(t *Table, logger *slog.Logger) {
	keys := make([]string, 0, t.Len())
	names := map[string]string{}
	for _, v := range t.Canonical() {
		k := NormalizeKey(v)
		if k == "" {
			continue
		}
		if _, seen := names[k]; seen {
			continue
		}
		keys = append(keys, k)
		names[k] = v
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if levenshtein.ComputeDistance(keys[i], keys[j]) <= 2 {
				logger.Warn("vendor table has near-duplicate entries",
					"vendor_a", names[keys[i]], "vendor_b", names[keys[j]])
			}
		}
	}
}
