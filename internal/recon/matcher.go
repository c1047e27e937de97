package recon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dpp-tools/invoice-audit/internal/common"
	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

// matchState is one step of the candidate-narrowing machine. Keeping
// the tiers explicit keeps their ordering auditable.
type matchState int

const (
	stateSearch matchState = iota
	stateExactLabel
	stateNormalizedLabel
	stateVendorNarrow
	stateSkuScore
	stateMatched
	stateNotFound
)

func (s matchState) String() string {
	switch s {
	case stateSearch:
		return "search"
	case stateExactLabel:
		return "exact_label"
	case stateNormalizedLabel:
		return "normalized_label"
	case stateVendorNarrow:
		return "vendor_narrow"
	case stateSkuScore:
		return "sku_score"
	case stateMatched:
		return "matched"
	default:
		return "not_found"
	}
}

// MatchRequest carries the invoice-side hints used to narrow
// candidates when the label alone is ambiguous.
type MatchRequest struct {
	PONumber string
	Vendor   string
	SKUs     []string
}

// Matcher resolves one PO query to a single external record. Results
// are cached per literal PO token for the duration of a run.
type Matcher struct {
	service Service
	vendors *vendors.Table
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

type cacheEntry struct {
	detail *Detail
	err    error
}

func NewMatcher(service Service, table *vendors.Table, logger *slog.Logger) *Matcher {
	if table == nil {
		table = vendors.Empty()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		service: service,
		vendors: table,
		logger:  logger,
		cache:   map[string]*cacheEntry{},
	}
}

// Match runs the tier cascade for one PO. The same PO token always
// returns the cached outcome, including a cached failure.
func (m *Matcher) Match(ctx context.Context, req MatchRequest) (*Detail, error) {
	po := CleanPO(req.PONumber)
	if po == "" {
		return nil, common.NewAppError("EMPTY_PO", "po number is empty", common.ErrInvalidInput)
	}

	m.mu.Lock()
	if entry, ok := m.cache[po]; ok {
		m.mu.Unlock()
		return entry.detail, entry.err
	}
	m.mu.Unlock()

	detail, err := m.match(ctx, po, req)

	m.mu.Lock()
	m.cache[po] = &cacheEntry{detail: detail, err: err}
	m.mu.Unlock()
	return detail, err
}

func (m *Matcher) match(ctx context.Context, po string, req MatchRequest) (*Detail, error) {
	state := stateSearch
	candidates, err := m.service.SearchCandidates(ctx, po)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		m.logger.Info("recon.match", "po", po, "state", stateNotFound.String())
		return nil, m.notFound(po)
	}

	state = stateExactLabel
	for _, c := range candidates {
		if c.Label == po {
			return m.finish(ctx, po, state, c.ID)
		}
	}

	state = stateNormalizedLabel
	if target := NormalizePO(po); target != "" {
		for _, c := range candidates {
			if NormalizePO(c.Label) == target {
				return m.finish(ctx, po, state, c.ID)
			}
		}
	}

	state = stateVendorNarrow
	if req.Vendor != "" {
		var matched []Candidate
		for _, c := range candidates {
			if VendorsMatch(req.Vendor, c.Vendor.Name) {
				matched = append(matched, c)
			}
		}
		if len(matched) == 1 {
			return m.finish(ctx, po, state, matched[0].ID)
		}
		if len(matched) == 0 {
			aliases := m.vendors.AliasesFor(req.Vendor)
			var aliasMatched []Candidate
			for _, c := range candidates {
				for _, alias := range aliases {
					if VendorsMatch(alias, c.Vendor.Name) {
						aliasMatched = append(aliasMatched, c)
						break
					}
				}
			}
			if len(aliasMatched) == 1 {
				return m.finish(ctx, po, state, aliasMatched[0].ID)
			}
		}
	}

	state = stateSkuScore
	if detail, ok, err := m.skuScore(ctx, po, candidates, req); err != nil {
		return nil, err
	} else if ok {
		m.logger.Info("recon.match", "po", po, "state", stateMatched.String(), "via", state.String())
		return detail, nil
	}

	m.logger.Info("recon.match", "po", po, "state", stateNotFound.String())
	return nil, m.notFound(po)
}

func (m *Matcher) finish(ctx context.Context, po string, via matchState, id string) (*Detail, error) {
	detail, err := m.service.Details(ctx, id)
	if err != nil {
		return nil, err
	}
	m.logger.Info("recon.match", "po", po, "state", stateMatched.String(), "via", via.String())
	return detail, nil
}

func (m *Matcher) notFound(po string) error {
	return common.NewAppError("PO_NOT_FOUND", fmt.Sprintf("PO %s not found", po), common.ErrNotFound)
}

// skuScore fetches detail for every candidate concurrently and scores
// each by normalized-SKU overlap plus a vendor bonus. The reduction is
// a plain max, so fetch order does not matter.
func (m *Matcher) skuScore(ctx context.Context, po string, candidates []Candidate, req MatchRequest) (*Detail, bool, error) {
	var skuNorms []string
	seen := map[string]struct{}{}
	for _, sku := range req.SKUs {
		norm := NormalizeSKU(sku, req.Vendor)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		skuNorms = append(skuNorms, norm)
	}
	if len(skuNorms) == 0 {
		return nil, false, nil
	}

	aliases := m.vendors.AliasesFor(req.Vendor)
	details := make([]*Detail, len(candidates))
	errs := make([]error, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			d, err := m.service.Details(gctx, c.ID)
			if err != nil {
				errs[i] = err
				return nil
			}
			details[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	var best *Detail
	bestScore := 0
	var lastErr error
	for i, d := range details {
		if errs[i] != nil {
			lastErr = errs[i]
			continue
		}
		if d == nil {
			continue
		}

		vendorMatch := VendorsMatch(req.Vendor, d.Vendor.Name)
		if !vendorMatch {
			for _, alias := range aliases {
				if VendorsMatch(alias, d.Vendor.Name) {
					vendorMatch = true
					break
				}
			}
		}

		skuMatches := 0
		for _, item := range d.Items {
			itemNorm := NormalizeSKU(item.SKU, req.Vendor)
			for _, invNorm := range skuNorms {
				if SKUsMatch(invNorm, itemNorm) {
					skuMatches++
					break
				}
			}
		}

		score := skuMatches*100 + boolScore(vendorMatch, 10)
		m.logger.Debug("recon.sku_score", "po", po, "candidate", d.Label, "score", score)
		if score > bestScore {
			bestScore = score
			best = d
		}
	}

	if best != nil && bestScore > 0 {
		return best, true, nil
	}
	if lastErr != nil {
		return nil, false, lastErr
	}
	return nil, false, nil
}

func boolScore(b bool, n int) int {
	if b {
		return n
	}
	return 0
}
