package usecase

import (
	"sort"
	"strings"

	"github.com/hanoigo/assistant/internal/core/domain"
)

// unmentioned sorts after every real occurrence index.
const unmentioned = int(^uint(0) >> 1)

// SortByAnswerOrder arranges candidates to follow the order in which the
// generated answer text mentions them. Pure best-effort heuristic with a
// two-rung fallback ladder: full name, then the text before a " - "
// delimiter. Venues the answer never mentions keep their relative order
// after all mentioned ones. An empty answer leaves the input order intact.
func SortByAnswerOrder(candidates []domain.CandidateResult, answerText string) []domain.CandidateResult {
	if len(candidates) < 2 || strings.TrimSpace(answerText) == "" {
		return candidates
	}

	answer := strings.ToLower(answerText)

	type ranked struct {
		candidate domain.CandidateResult
		index     int
	}
	items := make([]ranked, len(candidates))
	for i, c := range candidates {
		items[i] = ranked{candidate: c, index: mentionIndex(answer, c.Name)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].index < items[j].index
	})

	out := make([]domain.CandidateResult, len(items))
	for i, item := range items {
		out[i] = item.candidate
	}
	return out
}

func mentionIndex(answerLower, name string) int {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	if nameLower == "" {
		return unmentioned
	}
	if idx := strings.Index(answerLower, nameLower); idx >= 0 {
		return idx
	}
	// Names like "Chè Bốn Mùa - Hàng Cân" are usually mentioned by their
	// short form.
	if short, _, found := strings.Cut(nameLower, " - "); found {
		short = strings.TrimSpace(short)
		if short != "" {
			if idx := strings.Index(answerLower, short); idx >= 0 {
				return idx
			}
		}
	}
	return unmentioned
}
