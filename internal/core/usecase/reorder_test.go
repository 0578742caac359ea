package usecase

import (
	"testing"

	"github.com/hanoigo/assistant/internal/core/domain"
)

func namedCandidates(names ...string) []domain.CandidateResult {
	out := make([]domain.CandidateResult, len(names))
	for i, n := range names {
		out[i] = domain.CandidateResult{Venue: domain.Venue{ID: n, Name: n}}
	}
	return out
}

func TestSortByAnswerOrderFollowsMentions(t *testing.T) {
	candidates := namedCandidates("Phở Thìn", "Chè Bốn Mùa", "Bún Chả Hương Liên")
	answer := "Bạn nên thử Bún Chả Hương Liên trước, sau đó ghé Phở Thìn."

	got := SortByAnswerOrder(candidates, answer)

	want := []string{"Bún Chả Hương Liên", "Phở Thìn", "Chè Bốn Mùa"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestSortByAnswerOrderUsesShortNameFallback(t *testing.T) {
	candidates := namedCandidates("Chè Bốn Mùa - Hàng Cân", "Phở Thìn")
	// The answer mentions only the short form before the " - " delimiter.
	answer := "Ghé Chè Bốn Mùa nhé."

	got := SortByAnswerOrder(candidates, answer)

	if got[0].Name != "Chè Bốn Mùa - Hàng Cân" {
		t.Fatalf("got[0] = %q", got[0].Name)
	}
}

func TestSortByAnswerOrderKeepsUnmentionedOrder(t *testing.T) {
	candidates := namedCandidates("A Quán", "B Quán", "C Quán", "D Quán")
	answer := "C Quán là lựa chọn tốt nhất."

	got := SortByAnswerOrder(candidates, answer)

	want := []string{"C Quán", "A Quán", "B Quán", "D Quán"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestSortByAnswerOrderEmptyAnswerIsNoop(t *testing.T) {
	candidates := namedCandidates("B Quán", "A Quán")

	got := SortByAnswerOrder(candidates, "   ")

	if got[0].Name != "B Quán" || got[1].Name != "A Quán" {
		t.Fatalf("order changed: %q, %q", got[0].Name, got[1].Name)
	}
}
