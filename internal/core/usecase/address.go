package usecase

import "strings"

// Street-level markers that announce an address fragment in a query
// ("quán chè ở ngõ tự do"). Checked in order; first hit wins.
var addressMarkers = []string{"ngõ", "ngách", "phố", "đường", "quận", "phường"}

// Trailing filler that follows the address fragment in conversational
// queries. Leading spaces are significant: they keep "không" from matching
// inside a street name.
var addressStopWords = []string{
	" với ", " giá ", " khoảng ", " tầm ", " hết ", " cho ", " có ",
	" không", " nào", " nhỉ", " ạ", " ở đâu", " đâu",
	" để ", " làm ", " việc ", " ở ", " muốn ",
}

// extractAddressFragment pulls the street/lane name after the first address
// marker, trimmed of conversational filler. Reports false when the query has
// no marker or nothing usable after it.
func extractAddressFragment(query string) (string, bool) {
	lower := strings.ToLower(query)
	for _, marker := range addressMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}

		after := strings.TrimSpace(lower[idx+len(marker):])
		for _, stop := range addressStopWords {
			if cut := strings.Index(after, stop); cut >= 0 {
				after = strings.TrimSpace(after[:cut])
			}
		}
		if after != "" {
			return after, true
		}
	}
	return "", false
}
