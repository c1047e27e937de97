package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dpp-tools/invoice-audit/internal/export"
	"github.com/dpp-tools/invoice-audit/internal/recon"
)

// poNotFoundReason marks every row of a purchase order that no
// external record matched.
const poNotFoundReason = "PO not found in external system"

// Validator reconciles an exported workbook against the external
// system: rows are grouped per purchase order, the external record is
// resolved once per PO, and each row is compared individually.
type Validator struct {
	Matcher    *recon.Matcher
	Comparator *recon.Comparator
	Logger     *slog.Logger

	// ShouldContinue is checked between PO groups. Nil means always
	// continue.
	ShouldContinue func() bool
}

func NewValidator(matcher *recon.Matcher, comparator *recon.Comparator, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{Matcher: matcher, Comparator: comparator, Logger: logger}
}

// ValidationSummary reports what a validation pass did.
type ValidationSummary struct {
	POs     int
	Valid   int
	Invalid int
	NA      int
	Stopped bool
}

// poGroup collects the rows of one bill. Item rows after the first
// inherit the PO and vendor written on the header row.
type poGroup struct {
	po     string
	vendor string
	rows   []export.SheetRow
}

func groupByPO(rows []export.SheetRow) []*poGroup {
	var groups []*poGroup
	var cur *poGroup
	for _, r := range rows {
		if r.Bill.BillNo != "" || r.Bill.Memo != "" || r.Bill.Vendor != "" {
			cur = &poGroup{po: r.Bill.Memo, vendor: r.Bill.Vendor}
			groups = append(groups, cur)
		}
		if cur == nil {
			cur = &poGroup{}
			groups = append(groups, cur)
		}
		if strings.EqualFold(strings.TrimSpace(r.Bill.ProductService), "Total Amount") {
			continue
		}
		cur.rows = append(cur.rows, r)
	}
	return groups
}

func skusOf(g *poGroup) []string {
	var skus []string
	for _, r := range g.rows {
		if s := strings.TrimSpace(r.Bill.SKU); s != "" {
			skus = append(skus, s)
		}
	}
	return skus
}

// Run reads the workbook at path, validates every row, and writes the
// validation columns back.
func (v *Validator) Run(ctx context.Context, path string) (*ValidationSummary, error) {
	rows, err := export.ReadRows(path, v.Logger)
	if err != nil {
		return nil, err
	}
	groups := groupByPO(rows)
	v.Logger.Info("validate.start", "path", path, "rows", len(rows), "pos", len(groups))

	summary := &ValidationSummary{}
	results := make(map[int]export.Validation)
	for _, g := range groups {
		if v.ShouldContinue != nil && !v.ShouldContinue() {
			summary.Stopped = true
			break
		}
		summary.POs++
		v.validateGroup(ctx, g, results, summary)
	}

	writer := export.NewWriter(path, v.Logger)
	if err := writer.ApplyValidations(results); err != nil {
		return nil, err
	}
	v.Logger.Info("validate.done",
		"pos", summary.POs, "valid", summary.Valid, "invalid", summary.Invalid, "na", summary.NA)
	return summary, nil
}

func (v *Validator) validateGroup(ctx context.Context, g *poGroup, results map[int]export.Validation, summary *ValidationSummary) {
	if g.po == "" {
		for _, r := range g.rows {
			results[r.Num] = export.Validation{Status: recon.StatusNotApplicable.String()}
			summary.NA++
		}
		return
	}

	detail, err := v.Matcher.Match(ctx, recon.MatchRequest{
		PONumber: g.po,
		Vendor:   g.vendor,
		SKUs:     skusOf(g),
	})
	if err != nil {
		v.Logger.Warn("validate.po_unmatched", "po", g.po, "err", err)
		for _, r := range g.rows {
			results[r.Num] = export.Validation{
				Status:       recon.StatusInvalid.String(),
				FailedFields: poNotFoundReason,
			}
			summary.Invalid++
		}
		return
	}

	// the vendor is written on the bill header row only; check it once
	// and report a disagreement there rather than on every row
	vendorFailed := !v.Comparator.VendorOK(detail, g.vendor)

	for i, r := range g.rows {
		res := v.Comparator.Validate(detail, recon.Row{
			SKU:            r.Bill.SKU,
			ProductService: r.Bill.ProductService,
			Description:    r.Bill.Description,
			Qty:            r.Bill.Qty,
			Rate:           r.Bill.Rate,
			Amount:         r.Bill.Amount,
			Vendor:         g.vendor,
			Category:       r.Bill.Category,
		})
		if i == 0 && vendorFailed {
			res.Status = recon.StatusInvalid
			res.FailedFields = append([]string{"Vendor"}, res.FailedFields...)
		}
		results[r.Num] = export.Validation{
			Status:       res.Status.String(),
			FailedFields: strings.Join(res.FailedFields, "; "),
		}
		switch res.Status {
		case recon.StatusValid:
			summary.Valid++
		case recon.StatusInvalid:
			summary.Invalid++
		default:
			summary.NA++
		}
	}
}
