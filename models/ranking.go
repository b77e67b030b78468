package models

// Placeholder values substituted when a field's markup is missing.
const (
	NoHeader   = "no header info"
	NoRank     = "no rank info"
	NoPrice    = "no price info"
	NoShipping = "no shipping info"
	NoStock    = "no stock info"
	NoShopName = "no shop name"
	NoShopURL  = "no URL"
	NoShopArea = "no area info"
)

// RankingEntry is one seller's ranked offer on a product page.
//
// Every field is always non-empty: either the trimmed text found on the page
// or the matching No* placeholder.
type RankingEntry struct {
	Header   string `json:"header" csv:"Header"`
	Rank     string `json:"rank" csv:"Rank"`
	Price    string `json:"price" csv:"Price"`
	Shipping string `json:"shipping" csv:"Shipping"`
	Stock    string `json:"stock" csv:"Stock"`
	ShopName string `json:"shop_name" csv:"Shop Name"`
	ShopURL  string `json:"shop_url" csv:"Shop URL"`
	ShopArea string `json:"shop_area" csv:"Shop Area"`
}

// CSVHeader is the fixed column order of the tabular export.
var CSVHeader = []string{"Header", "Rank", "Price", "Shipping", "Stock", "Shop Name", "Shop URL", "Shop Area"}
