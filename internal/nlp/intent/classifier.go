// Package intent classifies free-text place queries into a retrieval intent
// using ordered keyword dictionaries. Rule-based, deterministic, no I/O.
package intent

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hanoigo/assistant/internal/core/domain"
)

// longQueryRunes marks compound queries (itineraries and the like) whose hard
// filter likely references more than one venue.
const longQueryRunes = 60

type Classifier struct {
	food     []keywordPattern
	activity []keywordPattern
	vibe     []keywordPattern

	vibeTags       map[string][]string
	drinkVenue     map[string]struct{}
	dating         []string
	datingNegative []string

	logger *slog.Logger
}

func NewClassifier(dicts *Dictionaries, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	drinkVenue := make(map[string]struct{}, len(dicts.DrinkVenue))
	for _, kw := range dicts.DrinkVenue {
		drinkVenue[kw] = struct{}{}
	}
	return &Classifier{
		food:           compilePatterns(dicts.Food),
		activity:       compilePatterns(dicts.Activity),
		vibe:           compilePatterns(dicts.Vibe),
		vibeTags:       dicts.VibeTags,
		drinkVenue:     drinkVenue,
		dating:         dicts.Dating,
		datingNegative: dicts.DatingNegative,
		logger:         logger.With("component", "intent_classifier"),
	}
}

// Classify resolves a query to exactly one intent. Priority:
// FOOD_ENTITY > ACTIVITY > PLACE_VIBE > GENERAL; the first dictionary with
// a hit wins. Total function: never fails, GENERAL is the default.
func (c *Classifier) Classify(query string) domain.QueryIntent {
	normalized := strings.ToLower(strings.TrimSpace(query))
	lowConfidence := utf8.RuneCountInString(normalized) >= longQueryRunes

	if kw := detectKeyword(c.food, normalized); kw != "" {
		// A drink-venue word yields to a vibe phrase in the same query:
		// "quán cafe hẹn hò" asks for a date spot, not for coffee.
		_, isVenueWord := c.drinkVenue[kw]
		if !isVenueWord || detectKeyword(c.vibe, normalized) == "" {
			c.logger.Debug("intent classified", "intent", domain.IntentFoodEntity, "keyword", kw)
			return domain.QueryIntent{
				Kind:          domain.IntentFoodEntity,
				Keyword:       kw,
				HardFilter:    &domain.HardFilter{Keyword: kw},
				LowConfidence: lowConfidence,
			}
		}
	}

	if kw := detectKeyword(c.activity, normalized); kw != "" {
		c.logger.Debug("intent classified", "intent", domain.IntentActivity, "keyword", kw)
		return domain.QueryIntent{
			Kind:          domain.IntentActivity,
			Keyword:       kw,
			Tags:          []string{kw},
			LowConfidence: lowConfidence,
		}
	}

	if kw := detectKeyword(c.vibe, normalized); kw != "" {
		tags := c.vibeTags[kw]
		if len(tags) == 0 {
			tags = []string{kw}
		}
		isDating := c.IsDatingQuery(normalized)
		if isDating && c.HasDatingNegatives(normalized) {
			// Contradictory query ("bún đậu cho buổi hẹn hò"): keep the vibe
			// intent but do not activate the dating exclusions.
			isDating = false
		}
		if isDating {
			// The longest vibe phrase may be a non-romantic one ("view đẹp");
			// the dating markers still carry romance tags the filter needs.
			tags = c.unionDatingTags(normalized, tags)
		}
		c.logger.Debug("intent classified", "intent", domain.IntentPlaceVibe, "keyword", kw, "dating", isDating)
		return domain.QueryIntent{
			Kind:          domain.IntentPlaceVibe,
			Keyword:       kw,
			Tags:          tags,
			IsDating:      isDating,
			LowConfidence: lowConfidence,
		}
	}

	c.logger.Debug("intent classified", "intent", domain.IntentGeneral)
	return domain.QueryIntent{Kind: domain.IntentGeneral, LowConfidence: lowConfidence}
}

// IsDatingQuery reports whether the query mentions a romance marker.
// Substring containment on purpose: the marker set is short and curated.
func (c *Classifier) IsDatingQuery(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range c.dating {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// HasDatingNegatives reports whether the query names a venue type that the
// dating exclusions would filter out.
func (c *Classifier) HasDatingNegatives(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range c.datingNegative {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// DatingNegatives exposes the exclusion terms for catalog-side filtering.
func (c *Classifier) DatingNegatives() []string {
	out := make([]string, len(c.datingNegative))
	copy(out, c.datingNegative)
	return out
}

func (c *Classifier) unionDatingTags(normalized string, tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags)+4)
	for _, t := range tags {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, marker := range c.dating {
		if !strings.Contains(normalized, marker) {
			continue
		}
		for _, t := range c.vibeTags[marker] {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return out
}

func detectKeyword(patterns []keywordPattern, normalized string) string {
	if normalized == "" {
		return ""
	}
	for _, p := range patterns {
		if p.re.MatchString(normalized) {
			return p.keyword
		}
	}
	return ""
}
