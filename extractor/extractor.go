// Package extractor turns a parsed product page into ranking rows.
package extractor

import (
	"github.com/use-agent/pricerank/models"
	"github.com/use-agent/pricerank/scraper"
)

// DefaultTopN is used when Extract is called with a non-positive limit.
const DefaultTopN = 20

// Compiled once; the class names come from the product page markup.
var (
	headerSel   = scraper.MustCompile("h1")
	markerSel   = scraper.MustCompile("span.p-PTRank")
	priceSel    = scraper.MustCompile("p.p-PTPrice_price")
	subPriceSel = scraper.MustCompile("p.p-PTPrice_sub")
	shippingSel = scraper.MustCompile("button.p-PTShipping_btn")
	stockSel    = scraper.MustCompile("p.p-PTStock")
	shopLinkSel = scraper.MustCompile("a.p-PTShopData_name_link")
	shopAreaSel = scraper.MustCompile("span.p-PTShopData_name_area")
)

// rowTag is the element grouping the fields of one ranking entry.
const rowTag = "tr"

// Extraction is the outcome of a single extraction pass.
type Extraction struct {
	// Header is the product title, or models.NoHeader.
	Header string

	// Entries are in document order, at most topN of them.
	Entries []models.RankingEntry

	// Markers counts every rank marker on the page before truncation.
	// Zero means the page carries no rankings at all.
	Markers int

	// Skipped counts considered markers that had no enclosing row.
	Skipped int
}

// Extract reads up to topN ranking rows from doc. It never fails: missing
// markup yields placeholder values, and a page without markers yields an
// empty Extraction.
func Extract(doc scraper.Document, topN int) Extraction {
	if topN <= 0 {
		topN = DefaultTopN
	}

	header := resolve(doc, headerSel, models.NoHeader)

	markers := doc.All(markerSel)
	out := Extraction{
		Header:  header,
		Entries: []models.RankingEntry{},
		Markers: len(markers),
	}
	if len(markers) > topN {
		markers = markers[:topN]
	}

	for _, marker := range markers {
		row, ok := marker.Closest(rowTag)
		if !ok {
			out.Skipped++
			continue
		}
		out.Entries = append(out.Entries, entryFrom(row, header))
	}
	return out
}

func entryFrom(row scraper.Node, header string) models.RankingEntry {
	entry := models.RankingEntry{
		Header:   header,
		Rank:     resolve(row, markerSel, models.NoRank),
		Price:    price(row),
		Shipping: resolve(row, shippingSel, models.NoShipping),
		Stock:    resolve(row, stockSel, models.NoStock),
		ShopName: models.NoShopName,
		ShopURL:  models.NoShopURL,
		ShopArea: resolve(row, shopAreaSel, models.NoShopArea),
	}
	if link, ok := row.First(shopLinkSel); ok {
		entry.ShopName = orDefault(link.Text(), models.NoShopName)
		entry.ShopURL = link.Attr("href", models.NoShopURL)
	}
	return entry
}

// price joins the main and sub price. A row missing either part gets
// models.NoPrice even when the other part is present.
func price(row scraper.Node) string {
	main, ok := row.First(priceSel)
	if !ok {
		return models.NoPrice
	}
	sub, ok := row.First(subPriceSel)
	if !ok {
		return models.NoPrice
	}
	return orDefault(main.Text()+sub.Text(), models.NoPrice)
}

// resolve returns the text of the first match of m under n, or fallback when
// nothing matches or the match has no text.
func resolve(n scraper.Node, m scraper.Matcher, fallback string) string {
	found, ok := n.First(m)
	if !ok {
		return fallback
	}
	return orDefault(found.Text(), fallback)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
