package ollama

import (
	"fmt"
	"unicode/utf8"
)

// The instruction stays in Vietnamese so the model splits along Vietnamese
// sentence boundaries instead of translating.
func buildPropositionPrompt(venueName, text string) string {
	const maxSnippet = 4000
	snippet := truncateRunes(text, maxSnippet)

	return fmt.Sprintf(`Tách mô tả địa điểm sau thành các mệnh đề (sự kiện) nguyên tử, ngắn gọn, tự chứa. Trả về một mảng JSON.
Mô tả: %s là %s
Example format: { "propositions": ["%s có không gian rộng.", "%s phù hợp tâm trạng buồn."] }`,
		venueName, snippet, venueName, venueName)
}

// truncateRunes cuts text to at most max bytes without splitting a
// multi-byte Vietnamese character at the boundary.
func truncateRunes(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
