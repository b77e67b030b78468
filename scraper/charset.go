package scraper

import (
	"fmt"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// minConfidence is the chardet score below which a sniffed charset is ignored.
const minConfidence = 50

// resolveEncoding picks the encoding of body in this order: BOM or
// Content-Type charset, a <meta> declaration, a UTF-8 validity check,
// statistical sniffing, and finally windows-1252.
func resolveEncoding(body []byte, contentType string) (encoding.Encoding, string) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if certain {
		return enc, name
	}

	switch name {
	case "windows-1252":
		// DetermineEncoding's default; nothing was declared.
	case "utf-8":
		// Either declared in <meta> or the first 1 KB happened to be valid.
		if utf8.Valid(body) {
			return enc, name
		}
	default:
		return enc, name
	}

	if sniffed, sniffedName, ok := sniff(body); ok {
		return sniffed, sniffedName
	}
	return enc, name
}

// detectCharset guesses the charset of undeclared pages.
var detectCharset = func(body []byte) (*chardet.Result, error) {
	return chardet.NewHtmlDetector().DetectBest(body)
}

func sniff(body []byte) (encoding.Encoding, string, bool) {
	res, err := detectCharset(body)
	if err != nil || res.Confidence < minConfidence {
		return nil, "", false
	}
	enc, err := htmlindex.Get(res.Charset)
	if err != nil {
		return nil, "", false
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = res.Charset
	}
	return enc, name, true
}

// decode converts body to UTF-8. It returns the name of the encoding used.
func decode(body []byte, contentType string) (string, string, error) {
	enc, name := resolveEncoding(body, contentType)
	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return "", name, fmt.Errorf("scraper: decode %s: %w", name, err)
	}
	return string(out), name, nil
}
