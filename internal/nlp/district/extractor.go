// Package district detects Hanoi administrative districts in place queries
// and decides near-me eligibility.
package district

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical district names, matching the catalog's district column. Fixed,
// closed set.
var districts = []string{
	"Ba Đình",
	"Hoàn Kiếm",
	"Tây Hồ",
	"Long Biên",
	"Cầu Giấy",
	"Đống Đa",
	"Thanh Xuân",
	"Nam Từ Liêm",
	"Bắc Từ Liêm",
	"Hà Đông",
	"Hoàng Mai",
	"Hai Bà Trưng",
}

// genericTerms is the near-me allow-list: broad category words that make a
// query eligible for pure-proximity search. Substring containment on
// purpose: the set is short and curated, looser than the word-boundary
// matching the intent dictionaries use. Flag to product before unifying the
// two matching strategies.
var genericTerms = []string{
	"quán ăn",
	"ăn uống",
	"nhà hàng",
	"đồ ăn",
	"quán",
	"food",
	"restaurant",
	"quán ngon",
	"chỗ ăn",
}

// specificTerms are dish/vibe anchors that disqualify a query from near-me
// mode even when a generic term is also present ("quán phở" is a dish query,
// not a generic food query).
var specificTerms = []string{
	"phở", "bún", "bánh", "lẩu", "chè", "cơm", "xôi", "nem", "kem",
	"pizza", "sushi", "cafe", "cà phê", "trà sữa",
	"hẹn hò", "lãng mạn", "chill", "karaoke",
}

type Extractor struct {
	// folded canonical names, precomputed once.
	foldedDistricts []string
}

func NewExtractor() *Extractor {
	folded := make([]string, len(districts))
	for i, d := range districts {
		folded[i] = FoldDiacritics(strings.ToLower(d))
	}
	return &Extractor{foldedDistricts: folded}
}

// Districts returns the canonical district set.
func (e *Extractor) Districts() []string {
	out := make([]string, len(districts))
	copy(out, districts)
	return out
}

// ExtractDistrict returns the canonical district named in the query, or ""
// when none matches. Matching is case-insensitive with a diacritic-stripped
// fallback so "Dong Da" still resolves to "Đống Đa".
func (e *Extractor) ExtractDistrict(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return ""
	}

	for _, d := range districts {
		if strings.Contains(q, strings.ToLower(d)) {
			return d
		}
	}

	folded := FoldDiacritics(q)
	for i, fd := range e.foldedDistricts {
		if strings.Contains(folded, fd) {
			return districts[i]
		}
	}
	return ""
}

// IsNearMeEligible reports whether the query should take the pure-proximity
// path: caller coordinates must be present and the query must be a generic
// category query. A query naming a specific dish or vibe is excluded; the
// more specific strategy takes precedence over proximity.
func (e *Extractor) IsNearMeEligible(query string, hasCoordinates bool) bool {
	if !hasCoordinates {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}

	for _, term := range specificTerms {
		if strings.Contains(q, term) {
			return false
		}
	}
	for _, term := range genericTerms {
		if strings.Contains(q, term) {
			return true
		}
	}
	return false
}

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// FoldDiacritics strips Vietnamese tone marks and maps đ/Đ to d/D, so that
// queries typed without diacritics still match catalog values.
func FoldDiacritics(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.ReplaceAll(folded, "đ", "d")
	folded = strings.ReplaceAll(folded, "Đ", "D")
	return folded
}
