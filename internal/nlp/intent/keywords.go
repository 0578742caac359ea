package intent

import (
	"fmt"
	"regexp"
	"sort"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

// Dictionaries holds the static keyword configuration. Immutable after load.
type Dictionaries struct {
	Food           []string            `yaml:"food"`
	Activity       []string            `yaml:"activity"`
	Vibe           []string            `yaml:"vibe"`
	VibeTags       map[string][]string `yaml:"vibe_tags"`
	DrinkVenue     []string            `yaml:"drink_venue"`
	Dating         []string            `yaml:"dating"`
	DatingNegative []string            `yaml:"dating_negative"`
}

// LoadDictionaries parses the embedded keyword configuration.
func LoadDictionaries() (*Dictionaries, error) {
	var d Dictionaries
	if err := yaml.Unmarshal(keywordsYAML, &d); err != nil {
		return nil, fmt.Errorf("parse keywords config: %w", err)
	}
	if len(d.Food) == 0 || len(d.Activity) == 0 || len(d.Vibe) == 0 {
		return nil, fmt.Errorf("keywords config: empty dictionary")
	}
	return &d, nil
}

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

// compilePatterns builds word-bounded matchers sorted longest-first so that
// compound phrases ("bún chả") win over their substrings ("bún"). ASCII \b
// does not work with Vietnamese diacritics, hence the explicit (^|\s)…(\s|$)
// boundary.
func compilePatterns(keywords []string) []keywordPattern {
	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	out := make([]keywordPattern, 0, len(sorted))
	for _, kw := range sorted {
		re := regexp.MustCompile(`(^|\s)` + regexp.QuoteMeta(kw) + `(\s|$)`)
		out = append(out, keywordPattern{keyword: kw, re: re})
	}
	return out
}
