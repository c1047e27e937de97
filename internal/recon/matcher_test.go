package recon

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dpp-tools/invoice-audit/internal/common"
	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

// fakeService serves canned search results and details, counting calls
// so cache behavior can be asserted.
type fakeService struct {
	candidates  map[string][]Candidate
	details     map[string]*Detail
	searchCalls int
	detailCalls int
}

func (f *fakeService) SearchCandidates(_ context.Context, po string) ([]Candidate, error) {
	f.searchCalls++
	return f.candidates[po], nil
}

func (f *fakeService) Details(_ context.Context, id string) (*Detail, error) {
	f.detailCalls++
	d, ok := f.details[id]
	if !ok {
		return nil, errors.New("no such record")
	}
	return d, nil
}

func matcherTable() *vendors.Table {
	return vendors.NewTable(
		[]string{"S&B", "Industrial Injection"},
		map[string][]string{"S&B": {"S&B Filters"}},
	)
}

func TestMatchExactLabelBeatsScoredCandidate(t *testing.T) {
	// The second candidate agrees on vendor and SKUs, but the first
	// carries the literal label and must win without any scoring.
	svc := &fakeService{
		candidates: map[string][]Candidate{
			"37305": {
				{ID: "a", Label: "37305", Vendor: VendorRef{Name: "Thoroughbred Diesel"}},
				{ID: "b", Label: "37305-R1", Vendor: VendorRef{Name: "S&B Filters"}},
			},
		},
		details: map[string]*Detail{
			"a": {ID: "a", Label: "37305", Vendor: VendorRef{Name: "Thoroughbred Diesel"}},
			"b": {ID: "b", Label: "37305-R1", Vendor: VendorRef{Name: "S&B Filters"},
				Items: []ExternalItem{{SKU: "76-1015"}}},
		},
	}
	m := NewMatcher(svc, matcherTable(), nil)

	detail, err := m.Match(context.Background(), MatchRequest{
		PONumber: "37305",
		Vendor:   "S&B",
		SKUs:     []string{"76-1015"},
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if detail.ID != "a" {
		t.Fatalf("matched %q, want exact-label candidate %q", detail.ID, "a")
	}
}

func TestMatchNormalizedLabel(t *testing.T) {
	svc := &fakeService{
		candidates: map[string][]Candidate{
			"0037305": {
				{ID: "a", Label: "99999"},
				{ID: "b", Label: "37305"},
			},
		},
		details: map[string]*Detail{
			"b": {ID: "b", Label: "37305"},
		},
	}
	m := NewMatcher(svc, matcherTable(), nil)

	detail, err := m.Match(context.Background(), MatchRequest{PONumber: "0037305"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if detail.ID != "b" {
		t.Fatalf("matched %q, want normalized-label candidate %q", detail.ID, "b")
	}
}

func TestMatchVendorNarrowUniqueSurvivor(t *testing.T) {
	// candidate labels carry extra digits so neither the exact nor the
	// normalized label tier can decide; only the vendor can
	svc := &fakeService{
		candidates: map[string][]Candidate{
			"555": {
				{ID: "a", Label: "A-9555", Vendor: VendorRef{Name: "Fleece Performance"}},
				{ID: "b", Label: "B-8555", Vendor: VendorRef{Name: "Industrial Injection Service"}},
			},
		},
		details: map[string]*Detail{
			"b": {ID: "b", Label: "B-8555", Vendor: VendorRef{Name: "Industrial Injection Service"}},
		},
	}
	m := NewMatcher(svc, matcherTable(), nil)

	detail, err := m.Match(context.Background(), MatchRequest{
		PONumber: "555",
		Vendor:   "Industrial Injection",
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if detail.ID != "b" {
		t.Fatalf("matched %q, want vendor-narrowed candidate %q", detail.ID, "b")
	}
}

func TestMatchSkuScoreTier(t *testing.T) {
	// Label digits differ from the query and both candidates share the
	// invoice vendor, so neither the label tiers nor vendor narrowing
	// can decide. The one whose items overlap the invoice SKUs wins.
	svc := &fakeService{
		candidates: map[string][]Candidate{
			"777": {
				{ID: "a", Label: "A-9777", Vendor: VendorRef{Name: "S&B Filters"}},
				{ID: "b", Label: "B-8777", Vendor: VendorRef{Name: "S&B Filters"}},
			},
		},
		details: map[string]*Detail{
			"a": {ID: "a", Label: "A-9777", Vendor: VendorRef{Name: "S&B Filters"},
				Items: []ExternalItem{{SKU: "99-0001"}}},
			"b": {ID: "b", Label: "B-8777", Vendor: VendorRef{Name: "S&B Filters"},
				Items: []ExternalItem{{SKU: "76-1015", Quantity: json.Number("1")}}},
		},
	}
	m := NewMatcher(svc, matcherTable(), nil)

	detail, err := m.Match(context.Background(), MatchRequest{
		PONumber: "777",
		Vendor:   "S&B",
		SKUs:     []string{"76-1015"},
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if detail.ID != "b" {
		t.Fatalf("matched %q, want sku-scored candidate %q", detail.ID, "b")
	}
}

func TestMatchNotFound(t *testing.T) {
	svc := &fakeService{candidates: map[string][]Candidate{}}
	m := NewMatcher(svc, matcherTable(), nil)

	_, err := m.Match(context.Background(), MatchRequest{PONumber: "404404"})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want common.ErrNotFound", err)
	}
}

func TestMatchEmptyPO(t *testing.T) {
	svc := &fakeService{}
	m := NewMatcher(svc, matcherTable(), nil)

	_, err := m.Match(context.Background(), MatchRequest{PONumber: "  "})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want common.ErrInvalidInput", err)
	}
	if svc.searchCalls != 0 {
		t.Fatalf("searchCalls = %d, want 0", svc.searchCalls)
	}
}

func TestMatchCachesResults(t *testing.T) {
	svc := &fakeService{
		candidates: map[string][]Candidate{
			"37305": {{ID: "a", Label: "37305"}},
		},
		details: map[string]*Detail{
			"a": {ID: "a", Label: "37305"},
		},
	}
	m := NewMatcher(svc, matcherTable(), nil)

	for i := 0; i < 3; i++ {
		if _, err := m.Match(context.Background(), MatchRequest{PONumber: "37305"}); err != nil {
			t.Fatalf("Match #%d: %v", i+1, err)
		}
	}
	if svc.searchCalls != 1 {
		t.Fatalf("searchCalls = %d, want 1", svc.searchCalls)
	}
	if svc.detailCalls != 1 {
		t.Fatalf("detailCalls = %d, want 1", svc.detailCalls)
	}
}

func TestMatchCachesFailures(t *testing.T) {
	svc := &fakeService{candidates: map[string][]Candidate{}}
	m := NewMatcher(svc, matcherTable(), nil)

	for i := 0; i < 2; i++ {
		if _, err := m.Match(context.Background(), MatchRequest{PONumber: "404404"}); !errors.Is(err, common.ErrNotFound) {
			t.Fatalf("Match #%d err = %v, want common.ErrNotFound", i+1, err)
		}
	}
	if svc.searchCalls != 1 {
		t.Fatalf("searchCalls = %d, want 1", svc.searchCalls)
	}
}
