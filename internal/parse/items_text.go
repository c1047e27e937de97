package parse

import (
	"regexp"
	"strings"

	"github.com/dpp-tools/invoice-audit/constants"
	"github.com/dpp-tools/invoice-audit/internal/invoice"
)

// Text-based item extraction, the fallback when no table structure was
// found. Vendor layouts that resist the generic row grammar get their
// own parsers, selected by header fingerprint.

var (
	iiHeaderRe = regexp.MustCompile(`(?i)Quantity\s+Item\s+RGA\s+Serial\s*#\s+Unit\s+Total`)

	cncHeaderRe    = regexp.MustCompile(`(?i)ITEM\s+DESCRIPTION\s+QUANTITY\s+PRICE\s+EXT\.?`)
	cncSOHeaderRe  = regexp.MustCompile(`(?i)SO\s+No\.\s+Customer\s+PO`)
	itemsSectionRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(Item/Description\s+.*?(?:Total\s+Price|Amount))\s*\n`),
		regexp.MustCompile(`(?i)(LINE\s+NO\.\s+ITEM\s+.*?(?:PRICE|EXT\.))\s*\n`),
		regexp.MustCompile(`(?i)(Quantity\s+Item\s+.*?(?:Unit|Total))\s*\n`),
		regexp.MustCompile(`(?i)(Item\s+Code\s+.*?Amount)\s*\n`),
		regexp.MustCompile(`(?i)((?:Part\s+Number|Item|SKU|Product|Qty)\s+.*?(?:Amount|Total|Price|Ext\.))\s*\n`),
	}
	sectionEndRe = regexp.MustCompile(`(?im)(?:^|\n)\s*(?:Subtotal|Sub\s*-?\s*total|Total\s+\$|Shipping\s+Cost|Tax\s+\d|I\s+HEREBY|Amount\s+Subject)`)
)

// ExtractItemsFromText parses line items out of raw text.
func ExtractItemsFromText(text string) []invoice.LineItem {
	if iiHeaderRe.MatchString(text) {
		if items := extractIIItems(text); len(items) > 0 {
			return items
		}
	}
	if cncHeaderRe.MatchString(text) && cncSOHeaderRe.MatchString(text) {
		if items := extractCNCItems(text); len(items) > 0 {
			return items
		}
	}

	var items []invoice.LineItem
	section := ""
	isPPE := false
	for _, re := range itemsSectionRe {
		m := re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		headerEnd := m[1]
		headerText := strings.ToLower(text[m[2]:m[3]])
		isPPE = strings.Contains(headerText, "item/description") && strings.Contains(headerText, "total price")

		rest := text[headerEnd:]
		if end := sectionEndRe.FindStringIndex(rest); end != nil {
			section = rest[:end[0]]
		} else if len(rest) > 2000 {
			section = rest[:2000]
		} else {
			section = rest
		}
		break
	}

	if strings.TrimSpace(section) != "" {
		if isPPE {
			items = extractPPEItems(section)
		}
		if len(items) == 0 {
			items = parseTextTableRows(section)
		}
	}
	if len(items) == 0 {
		items = extractItemsByPricePatterns(text)
	}
	return items
}

var (
	dropFreightRe   = regexp.MustCompile(`(?i)^(Drop\s+Ship|Freight(?:\s+Out)?)\b`)
	dropShipRe      = regexp.MustCompile(`(?i)^Drop\s+Ship\b`)
	dropShipAnyRe   = regexp.MustCompile(`(?i)Drop\s+Ship`)
	dropShipPriceRe = regexp.MustCompile(`(?i)Drop\s+Ship\s+\$?([\d,]+\.\d{2})`)
	dropQtyRe       = regexp.MustCompile(`(?i)(?:Drop\s+Ship|Freight(?:\s+Out)?)\s+\$?[\d,]+\.\d{2}\s+(\d+)`)
	priceTokensRe   = regexp.MustCompile(`[\d,]+\.\d{2}`)
	headerLineRe    = regexp.MustCompile(`(?i)^(item|sku|qty|description|subtotal|total)\s*$`)
	lineEndPriceRe  = regexp.MustCompile(`\$?\d[\d,]*\.\d{2}\s*$`)
	twoPricesRe     = regexp.MustCompile(`^(.+?)\s+\$?([\d,]+\.?\d{2})\s+\$?([\d,]+\.?\d{2})\s*$`)

	rowStopPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Tracking\b`),
		regexp.MustCompile(`(?i)^Subtotal\b`),
		regexp.MustCompile(`(?i)^Total\b`),
		regexp.MustCompile(`(?i)^Taxes?\b`),
		regexp.MustCompile(`(?i)^Paid\b`),
		regexp.MustCompile(`(?i)^Balance\b`),
		regexp.MustCompile(`(?i)^Amount\b`),
		regexp.MustCompile(`(?i)^Thank\s+you`),
		regexp.MustCompile(`(?i)^Page\b`),
		regexp.MustCompile(`(?i)^Ship\b`),
		regexp.MustCompile(`(?i)^Bill\b`),
		regexp.MustCompile(`^\*`),
		regexp.MustCompile(`(?i)SHIPPING\s+ACT`),
	}
)

func matchesStopPattern(line string) bool {
	for _, re := range rowStopPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// parseTextTableRows parses the generic row grammar: content lines
// accumulate until a trailing unit-price/amount pair appears, and
// price-less lines extend the previous item's description.
func parseTextTableRows(section string) []invoice.LineItem {
	var items []invoice.LineItem
	accumulated := ""
	var lastItem *invoice.LineItem

	for _, line := range strings.Split(strings.TrimSpace(section), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if dropFreightRe.MatchString(line) {
			items = append(items, dropShipItem(line))
			accumulated = ""
			continue
		}

		if headerLineRe.MatchString(line) {
			continue
		}

		if lastItem != nil && !lineEndPriceRe.MatchString(line) {
			if matchesStopPattern(line) {
				continue
			}
			lastItem.Description = strings.TrimSpace(lastItem.Description + " " + line)
			continue
		}

		if accumulated != "" {
			accumulated = accumulated + " " + line
		} else {
			accumulated = line
		}

		m := twoPricesRe.FindStringSubmatch(accumulated)
		if m == nil {
			continue
		}
		content := m[1]
		unitPrice := strings.ReplaceAll(m[2], ",", "")
		amount := strings.ReplaceAll(m[3], ",", "")

		if li, ok := parseRowContent(content, unitPrice, amount); ok {
			invoice.MarkFreight(&li)
			if !invoice.IsNonProductRow(&li) {
				items = append(items, li)
				lastItem = &items[len(items)-1]
			} else {
				lastItem = &li
			}
		}
		accumulated = ""
	}
	return items
}

func dropShipItem(line string) invoice.LineItem {
	prices := priceTokensRe.FindAllString(line, -1)
	qty := "1"
	if m := dropQtyRe.FindStringSubmatch(line); m != nil {
		qty = m[1]
	}
	unitPrice := ""
	if len(prices) > 0 {
		unitPrice = strings.ReplaceAll(prices[len(prices)-1], ",", "")
	}
	desc := line
	itemNumber := "Freight"
	if dropShipRe.MatchString(line) {
		itemNumber = "Drop Ship"
		if m := dropShipPriceRe.FindStringSubmatch(line); m != nil {
			unitPrice = strings.ReplaceAll(m[1], ",", "")
			desc = "Drop Ship $" + unitPrice
		} else {
			desc = "Drop Ship"
		}
	} else if dropShipAnyRe.MatchString(line) {
		itemNumber = "Drop Ship"
	}
	li := invoice.LineItem{
		ItemNumber:  itemNumber,
		Quantity:    qty,
		Units:       constants.DefaultUnits,
		Description: desc,
		UnitPrice:   unitPrice,
		Amount:      unitPrice,
	}
	invoice.MarkFreight(&li)
	return li
}

var (
	ppeItemLineRe = regexp.MustCompile(`^(\S+)\s+(Each|EA|EACH|Unit|Piece|PC|PCS)\s+(\d+\.?\d*)\s+(\d+\.?\d*)\s+([\d,]+\.?\d{2})\s+([\d,]+\.?\d{2})$`)
	ppeDropShipRe = regexp.MustCompile(`(?i)^Drop\s+Ship\s+(\d+\.?\d*)\s+(\d+\.?\d*)\s+([\d,]+\.?\d{2})\s+([\d,]+\.?\d{2})$`)
	ppeSummaryRe  = regexp.MustCompile(`(?i)(Subtotal|Total|Amount Subject|Amount Exempt|Total Sales Tax)`)
	ppeDropHdrRe  = regexp.MustCompile(`(?i)^Drop\s+Ship\b`)
	ppeDropFeeRe  = regexp.MustCompile(`(?i)^Drop\s+Ship\s+Fee`)
)

// extractPPEItems parses the Item/Description layout where the numeric
// columns live on the SKU line and the description follows on its own
// lines.
func extractPPEItems(section string) []invoice.LineItem {
	var items []invoice.LineItem
	var lines []string
	for _, ln := range strings.Split(section, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}

	i := 0
	for i < len(lines) {
		line := lines[i]
		if ppeSummaryRe.MatchString(line) {
			i++
			continue
		}

		if m := ppeItemLineRe.FindStringSubmatch(line); m != nil {
			units := m[2]
			if lower := strings.ToLower(units); lower == "each" || lower == "ea" {
				units = constants.DefaultUnits
			}

			var descParts []string
			j := i + 1
			for j < len(lines) {
				next := lines[j]
				if ppeItemLineRe.MatchString(next) || ppeDropHdrRe.MatchString(next) || ppeSummaryRe.MatchString(next) {
					break
				}
				descParts = append(descParts, next)
				j++
			}

			li := invoice.LineItem{
				ItemNumber:  m[1],
				Quantity:    m[4],
				Units:       units,
				Description: strings.TrimSpace(strings.Join(descParts, " ")),
				UnitPrice:   strings.ReplaceAll(m[5], ",", ""),
				Amount:      strings.ReplaceAll(m[6], ",", ""),
			}
			invoice.MarkFreight(&li)
			if !invoice.IsNonProductRow(&li) {
				items = append(items, li)
			}
			i = j
			continue
		}

		if m := ppeDropShipRe.FindStringSubmatch(line); m != nil {
			desc := ""
			if i+1 < len(lines) && ppeDropFeeRe.MatchString(lines[i+1]) {
				desc = lines[i+1]
				i++
			}
			if desc == "" {
				desc = "Drop Ship"
			}
			li := invoice.LineItem{
				ItemNumber:  "Drop Ship",
				Quantity:    m[2],
				Units:       constants.DefaultUnits,
				Description: desc,
				UnitPrice:   strings.ReplaceAll(m[3], ",", ""),
				Amount:      strings.ReplaceAll(m[4], ",", ""),
			}
			invoice.MarkFreight(&li)
			items = append(items, li)
			i++
			continue
		}

		i++
	}
	return items
}

// dedupeToken collapses doubled characters, an artifact of some PDF
// renderers that paint each glyph twice ("IItteemm" for "Item").
func dedupeToken(token string) string {
	if len(token) < 4 || len(token)%2 != 0 {
		return token
	}
	pairs := 0
	totalPairs := len(token) / 2
	for i := 0; i+1 < len(token); i += 2 {
		if token[i] == token[i+1] {
			pairs++
		}
	}
	if totalPairs == 0 || float64(pairs)/float64(totalPairs) < 0.6 {
		return token
	}
	var b strings.Builder
	for i := 0; i < len(token); i += 2 {
		b.WriteByte(token[i])
	}
	return b.String()
}

func dedupeLine(line string) string {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return line
	}
	for i, tok := range tokens {
		tokens[i] = dedupeToken(tok)
	}
	return strings.Join(tokens, " ")
}

var (
	cncStopRe       = regexp.MustCompile(`(?i)^(Tracking|Subtotal|Taxes?|Total|Paid|Balance|Thank\s+you|Page)\b`)
	cncSkipContRe   = regexp.MustCompile(`(?i)^(SN:|CORE\s+TRACKING#|Tracking\s+No)`)
	cncLineNoRe     = regexp.MustCompile(`(?i)^(LINE|NO\.?)$`)
	cncRowRe        = regexp.MustCompile(`^(\d+)\s+(\S+)\s+(.+?)\s+(\d+\.?\d*)\s+(\d+\.?\d*)\s+(\d+\.?\d*)$`)
	cncTokenRe      = regexp.MustCompile(`^[A-Za-z0-9\-]+$`)
	cncNonProduct   = []string{"hazmat", "environmental", "discount", "handling", "surcharge"}
	alphaOnlyTokRe  = regexp.MustCompile(`^[A-Za-z]+$`)
)

// extractCNCItems parses the split-header layout whose glyphs are often
// doubled and whose SKUs wrap onto a continuation line.
func extractCNCItems(text string) []invoice.LineItem {
	lines := strings.Split(text, "\n")
	headerIdx := -1
	for i, line := range lines {
		if cncHeaderRe.MatchString(line) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}

	var items []invoice.LineItem
	i := headerIdx + 1
	for i < len(lines) {
		raw := strings.TrimSpace(lines[i])
		if raw == "" {
			i++
			continue
		}
		if cncStopRe.MatchString(raw) {
			break
		}
		if cncLineNoRe.MatchString(raw) {
			i++
			continue
		}

		line := dedupeLine(raw)
		if m := cncRowRe.FindStringSubmatch(line); m != nil {
			li := invoice.LineItem{
				ItemNumber:  m[2],
				Quantity:    m[4],
				Units:       constants.DefaultUnits,
				Description: strings.TrimSpace(m[3]),
				UnitPrice:   m[5],
				Amount:      m[6],
			}

			// SKU continuation on the next line ("CORE-6.0E-" + "HPOP")
			for j := i + 1; j < len(lines); j++ {
				nextRaw := strings.TrimSpace(lines[j])
				if nextRaw == "" {
					continue
				}
				if cncStopRe.MatchString(nextRaw) || cncSkipContRe.MatchString(nextRaw) || cncLineNoRe.MatchString(nextRaw) {
					break
				}
				nextLine := dedupeLine(nextRaw)
				if cncTokenRe.MatchString(nextLine) && !strings.Contains(nextLine, " ") {
					if strings.HasSuffix(li.ItemNumber, "-") || alphaOnlyTokRe.MatchString(nextLine) {
						li.ItemNumber += nextLine
						i = j
					}
				}
				break
			}

			combined := strings.ToLower(li.ItemNumber + " " + li.Description)
			skip := false
			for _, k := range cncNonProduct {
				if strings.Contains(combined, k) {
					skip = true
					break
				}
			}
			if !skip {
				items = append(items, li)
			}
			i++
			continue
		}

		if len(items) > 0 {
			if !cncStopRe.MatchString(line) && !cncSkipContRe.MatchString(line) {
				last := &items[len(items)-1]
				last.Description = strings.TrimSpace(last.Description + " " + line)
			}
		}
		i++
	}
	return items
}

var (
	iiStopRe   = regexp.MustCompile(`(?i)^(Subtotal|Total|Taxes?|Balance|I\s+HEREBY|RECEIVED|Page)\b`)
	iiRowRe    = regexp.MustCompile(`^(\d+)\s+(\S+)\s+(.*)$`)
	iiPricesRe = regexp.MustCompile(`\$?[\d,]+\.\d{2}`)
)

// extractIIItems parses the Quantity Item RGA Serial# Unit Total layout.
func extractIIItems(text string) []invoice.LineItem {
	lines := strings.Split(text, "\n")
	headerIdx := -1
	for i, line := range lines {
		if iiHeaderRe.MatchString(line) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}

	var items []invoice.LineItem
	for i := headerIdx + 1; i < len(lines); i++ {
		raw := strings.TrimSpace(lines[i])
		if raw == "" {
			continue
		}
		if iiStopRe.MatchString(raw) {
			break
		}

		if m := iiRowRe.FindStringSubmatch(raw); m != nil {
			qty, sku, rest := m[1], m[2], m[3]
			prices := iiPricesRe.FindAllString(rest, -1)
			clean := func(s string) string {
				return strings.NewReplacer("$", "", ",", "").Replace(s)
			}
			unitPrice, amount := "", ""
			switch {
			case len(prices) >= 2:
				unitPrice = clean(prices[len(prices)-2])
				amount = clean(prices[len(prices)-1])
			case len(prices) == 1:
				unitPrice = clean(prices[0])
				if qty != "0" {
					amount = unitPrice
				}
			}
			li := invoice.LineItem{
				ItemNumber: sku,
				Quantity:   qty,
				Units:      constants.DefaultUnits,
				UnitPrice:  unitPrice,
				Amount:     amount,
			}
			invoice.MarkFreight(&li)
			items = append(items, li)
			continue
		}

		if len(items) > 0 {
			last := &items[len(items)-1]
			last.Description = strings.TrimSpace(last.Description + " " + raw)
		}
	}
	return items
}

var (
	rowBackorderRe = regexp.MustCompile(`(?i)^(\S+)\s+(\d+)\s+\d+\s*(?:Each|EA|Piece|pc|pcs|units?)?$`)
	rowSkuQtyUomRe = regexp.MustCompile(`(?i)^(\S+)\s+(\d+)\s+(?:\d+\s+)?(?:Each|EA|Piece|pc|pcs|units?)\s+(.+)$`)
	rowLineNoRe    = regexp.MustCompile(`^(\d+)\s+(\S+)\s+(.+?)\s+(\d+\.?\d*)$`)
	rowQtySkuRe    = regexp.MustCompile(`^(\d+)\s+(\S+)\s+(.+)$`)
	rowSkuQtyRe    = regexp.MustCompile(`^(\S+)\s+(\d+)\s+(.{3,})$`)
	rgaSerialRe    = regexp.MustCompile(`(?i)^(?:RA|RGA|SN|SER|SERIAL)\d+\s*`)
	priceInDescRe  = regexp.MustCompile(`\$?\d{1,3}(?:,\d{3})*\.\d{2}\b`)
	trailingPctRe  = regexp.MustCompile(`\s+\d+(\.\d+)?%?\s*$`)
	doubleSpaceRe  = regexp.MustCompile(`\s{2,}`)
)

// parseRowContent classifies row content, the text left of the numeric
// columns, into identifier, quantity, units and description.
func parseRowContent(content, unitPrice, amount string) (invoice.LineItem, bool) {
	content = strings.TrimSpace(multiSpaceRe.ReplaceAllString(content, " "))
	if len(content) < 3 {
		return invoice.LineItem{}, false
	}

	// SKU QTY BACKORDERED with no description on the line
	if m := rowBackorderRe.FindStringSubmatch(content); m != nil {
		return invoice.LineItem{
			ItemNumber: m[1], Quantity: m[2], Units: constants.DefaultUnits,
			UnitPrice: unitPrice, Amount: amount,
		}, true
	}

	// SKU QTY UNITS DESCRIPTION
	if m := rowSkuQtyUomRe.FindStringSubmatch(content); m != nil {
		return invoice.LineItem{
			ItemNumber: m[1], Quantity: m[2], Units: constants.DefaultUnits,
			Description: strings.TrimSpace(m[3]),
			UnitPrice:   unitPrice, Amount: amount,
		}, true
	}

	// LINE_NO SKU DESCRIPTION QTY
	if !priceInDescRe.MatchString(content) {
		if m := rowLineNoRe.FindStringSubmatch(content); m != nil {
			return invoice.LineItem{
				ItemNumber: m[2], Quantity: m[4], Units: constants.DefaultUnits,
				Description: strings.TrimSpace(m[3]),
				UnitPrice:   unitPrice, Amount: amount,
			}, true
		}
	}

	// QTY SKU DESCRIPTION
	if m := rowQtySkuRe.FindStringSubmatch(content); m != nil {
		qty, sku := m[1], m[2]
		desc := strings.TrimSpace(m[3])
		desc = strings.TrimSpace(rgaSerialRe.ReplaceAllString(desc, ""))
		if priceInDescRe.MatchString(desc) {
			if unitPrice != "" {
				desc = regexp.MustCompile(`\$?`+regexp.QuoteMeta(unitPrice)+`\b`).ReplaceAllString(desc, "")
			}
			if amount != "" {
				desc = regexp.MustCompile(`\$?`+regexp.QuoteMeta(amount)+`\b`).ReplaceAllString(desc, "")
			}
			desc = strings.TrimSpace(trailingPctRe.ReplaceAllString(desc, ""))
			desc = strings.TrimSpace(doubleSpaceRe.ReplaceAllString(desc, " "))
		}
		if len(desc) >= 3 {
			return invoice.LineItem{
				ItemNumber: sku, Quantity: qty, Units: constants.DefaultUnits,
				Description: desc,
				UnitPrice:   unitPrice, Amount: amount,
			}, true
		}
	}

	// SKU QTY DESCRIPTION without a units keyword
	if m := rowSkuQtyRe.FindStringSubmatch(content); m != nil {
		return invoice.LineItem{
			ItemNumber: m[1], Quantity: m[2], Units: constants.DefaultUnits,
			Description: strings.TrimSpace(m[3]),
			UnitPrice:   unitPrice, Amount: amount,
		}, true
	}

	// bare description
	if len(content) >= 5 {
		return invoice.LineItem{
			Quantity: "1", Units: constants.DefaultUnits,
			Description: content,
			UnitPrice:   unitPrice, Amount: amount,
		}, true
	}
	return invoice.LineItem{}, false
}

var (
	priceFallbackEndRe = regexp.MustCompile(`(?i)(Subtotal|Sub\s*-?\s*total|Total\s+\$)`)
	priceFallbackRowRe = regexp.MustCompile(`(?m)^(.{5,200}?)\s+\$?([\d,]+\.?\d{2})\s+\$?([\d,]+\.?\d{2})\s*$`)
	priceFallbackHdrRe = regexp.MustCompile(`(?i)^(item|sku|qty|description|price|amount)`)
)

// extractItemsByPricePatterns is the last-resort scan: any line ending
// in two decimal amounts becomes a candidate row.
func extractItemsByPricePatterns(text string) []invoice.LineItem {
	searchText := text
	if loc := priceFallbackEndRe.FindStringIndex(text); loc != nil {
		searchText = text[:loc[0]]
	}

	var items []invoice.LineItem
	for _, m := range priceFallbackRowRe.FindAllStringSubmatch(searchText, -1) {
		content := strings.TrimSpace(m[1])
		if priceFallbackHdrRe.MatchString(content) {
			continue
		}
		unitPrice := strings.ReplaceAll(m[2], ",", "")
		amount := strings.ReplaceAll(m[3], ",", "")
		if li, ok := parseRowContent(content, unitPrice, amount); ok {
			invoice.MarkFreight(&li)
			if !invoice.IsNonProductRow(&li) {
				items = append(items, li)
			}
		}
	}
	return items
}
