package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"
)

// idPlaceholder is replaced by the item id in URL templates.
const idPlaceholder = "{id}"

// Layout derives the page URL and artifact paths from an item id.
// Every method is deterministic in its argument.
type Layout struct {
	// URLTemplate contains an "{id}" placeholder, e.g. "https://kakaku.com/item/{id}/".
	URLTemplate string

	// DataDir is the directory holding snapshots and exports.
	DataDir string
}

// URL returns the product page URL for id. The id is path-escaped.
func (l Layout) URL(id string) string {
	return strings.ReplaceAll(l.URLTemplate, idPlaceholder, url.PathEscape(id))
}

// DocumentPath is where the raw page snapshot for id is written.
func (l Layout) DocumentPath(id string) string {
	return filepath.Join(l.DataDir, "fetched_"+fileSafe(id)+".html")
}

// RowsPath is where the CSV export for id is written.
func (l Layout) RowsPath(id string) string {
	return filepath.Join(l.DataDir, "top_rankings_"+fileSafe(id)+".csv")
}

var pathSeparators = strings.NewReplacer("/", "_", `\`, "_")

// fileSafe keeps an id from escaping DataDir when used in a file name.
func fileSafe(id string) string {
	return pathSeparators.Replace(id)
}
