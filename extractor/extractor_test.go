package extractor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/pricerank/models"
	"github.com/use-agent/pricerank/scraper"
)

const fullRow = `<tr>
  <td><span class="p-PTRank">1</span></td>
  <td><p class="p-PTPrice_price">¥1,000</p><p class="p-PTPrice_sub">(tax incl.)</p></td>
  <td><button class="p-PTShipping_btn">Free</button></td>
  <td><p class="p-PTStock">In stock</p></td>
  <td><a class="p-PTShopData_name_link" %s>Shop A</a><span class="p-PTShopData_name_area">Tokyo</span></td>
</tr>`

func page(header, rows string) string {
	return fmt.Sprintf("<html><body>%s<table>%s</table></body></html>", header, rows)
}

func parse(t *testing.T, s string) scraper.Document {
	t.Helper()
	doc, err := scraper.ParseString(s)
	require.NoError(t, err)
	return doc
}

func TestExtract_FullRow(t *testing.T) {
	doc := parse(t, page("<h1>Widget X</h1>", fmt.Sprintf(fullRow, `href="https://shopa.example"`)))

	got := Extract(doc, 20)

	require.Len(t, got.Entries, 1)
	assert.Equal(t, models.RankingEntry{
		Header:   "Widget X",
		Rank:     "1",
		Price:    "¥1,000(tax incl.)",
		Shipping: "Free",
		Stock:    "In stock",
		ShopName: "Shop A",
		ShopURL:  "https://shopa.example",
		ShopArea: "Tokyo",
	}, got.Entries[0])
	assert.Equal(t, "Widget X", got.Header)
	assert.Equal(t, 1, got.Markers)
	assert.Zero(t, got.Skipped)
}

func TestExtract_ShopLinkWithoutHref(t *testing.T) {
	doc := parse(t, page("<h1>Widget X</h1>", fmt.Sprintf(fullRow, "")))

	got := Extract(doc, 20)

	require.Len(t, got.Entries, 1)
	e := got.Entries[0]
	assert.Equal(t, models.NoShopURL, e.ShopURL)
	assert.Equal(t, "Shop A", e.ShopName)
	assert.Equal(t, "¥1,000(tax incl.)", e.Price)
	assert.Equal(t, "Tokyo", e.ShopArea)
}

func TestExtract_NoMarkers(t *testing.T) {
	doc := parse(t, page("<h1>Widget X</h1>", "<tr><td>nothing ranked</td></tr>"))

	got := Extract(doc, 20)

	assert.Empty(t, got.Entries)
	assert.NotNil(t, got.Entries)
	assert.Zero(t, got.Markers)
}

func TestExtract_Sentinels(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		check func(t *testing.T, e models.RankingEntry)
	}{
		{
			name: "bare marker",
			row:  `<tr><td><span class="p-PTRank">3</span></td></tr>`,
			check: func(t *testing.T, e models.RankingEntry) {
				assert.Equal(t, models.RankingEntry{
					Header:   models.NoHeader,
					Rank:     "3",
					Price:    models.NoPrice,
					Shipping: models.NoShipping,
					Stock:    models.NoStock,
					ShopName: models.NoShopName,
					ShopURL:  models.NoShopURL,
					ShopArea: models.NoShopArea,
				}, e)
			},
		},
		{
			name: "price without sub price",
			row:  `<tr><td><span class="p-PTRank">1</span><p class="p-PTPrice_price">¥900</p></td></tr>`,
			check: func(t *testing.T, e models.RankingEntry) {
				assert.Equal(t, models.NoPrice, e.Price)
			},
		},
		{
			name: "sub price without price",
			row:  `<tr><td><span class="p-PTRank">1</span><p class="p-PTPrice_sub">(tax incl.)</p></td></tr>`,
			check: func(t *testing.T, e models.RankingEntry) {
				assert.Equal(t, models.NoPrice, e.Price)
			},
		},
		{
			name: "blank elements",
			row:  `<tr><td><span class="p-PTRank"> </span><p class="p-PTStock">  </p><a class="p-PTShopData_name_link" href="/s"></a></td></tr>`,
			check: func(t *testing.T, e models.RankingEntry) {
				assert.Equal(t, models.NoRank, e.Rank)
				assert.Equal(t, models.NoStock, e.Stock)
				assert.Equal(t, models.NoShopName, e.ShopName)
				assert.Equal(t, "/s", e.ShopURL)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(parse(t, page("", tt.row)), 20)
			require.Len(t, got.Entries, 1)
			tt.check(t, got.Entries[0])
		})
	}
}

func TestExtract_TopNKeepsDocumentOrder(t *testing.T) {
	// Ranks are deliberately out of numeric order and contain ties.
	ranks := []string{"2", "1", "1", "5", "3", "4"}
	var rows strings.Builder
	for i, r := range ranks {
		fmt.Fprintf(&rows, `<tr><td><span class="p-PTRank">%s</span><a class="p-PTShopData_name_link" href="/shop/%d">shop%d</a></td></tr>`, r, i, i)
	}
	doc := parse(t, page("<h1>Item</h1>", rows.String()))

	tests := []struct {
		topN int
		want int
	}{
		{topN: 1, want: 1},
		{topN: 4, want: 4},
		{topN: 6, want: 6},
		{topN: 50, want: 6},
		{topN: 0, want: 6},
		{topN: -1, want: 6},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("topN=%d", tt.topN), func(t *testing.T) {
			got := Extract(doc, tt.topN)
			require.Len(t, got.Entries, tt.want)
			assert.Equal(t, len(ranks), got.Markers)
			for i, e := range got.Entries {
				assert.Equal(t, ranks[i], e.Rank)
				assert.Equal(t, fmt.Sprintf("shop%d", i), e.ShopName)
				assert.Equal(t, "Item", e.Header)
			}
		})
	}
}

func TestExtract_DefaultTopN(t *testing.T) {
	var rows strings.Builder
	for i := 0; i < DefaultTopN+5; i++ {
		fmt.Fprintf(&rows, `<tr><td><span class="p-PTRank">%d</span></td></tr>`, i+1)
	}
	got := Extract(parse(t, page("", rows.String())), 0)
	assert.Len(t, got.Entries, DefaultTopN)
	assert.Equal(t, DefaultTopN+5, got.Markers)
}

func TestExtract_SkipsMarkersWithoutRow(t *testing.T) {
	html := `<html><body><h1>Item</h1>
<div><span class="p-PTRank">0</span></div>
<table><tr><td><span class="p-PTRank">1</span></td></tr></table>
<span class="p-PTRank">9</span>
</body></html>`

	got := Extract(parse(t, html), 20)

	require.Len(t, got.Entries, 1)
	assert.Equal(t, "1", got.Entries[0].Rank)
	assert.Equal(t, 3, got.Markers)
	assert.Equal(t, 2, got.Skipped)
}

func TestExtract_FieldsNeverEmpty(t *testing.T) {
	rows := fmt.Sprintf(fullRow, `href=""`) +
		`<tr><td><span class="p-PTRank">2</span><p class="p-PTPrice_price"></p><p class="p-PTPrice_sub"></p></td></tr>` +
		`<tr><td><span class="p-PTRank">3</span><button class="p-PTShipping_btn">  </button></td></tr>`

	got := Extract(parse(t, page("<h1> </h1>", rows)), 20)

	require.Len(t, got.Entries, 3)
	for _, e := range got.Entries {
		for _, field := range []string{e.Header, e.Rank, e.Price, e.Shipping, e.Stock, e.ShopName, e.ShopURL, e.ShopArea} {
			assert.NotEmpty(t, field)
		}
	}
	assert.Equal(t, models.NoHeader, got.Header)
}
