// Package resolve fuzzy-matches email content against the known-asset
// registry. Matching is pure and case-insensitive: aliases are compared
// against the whitespace-normalized text by exact substring first, then by
// sliding word-window edit distance.
package resolve

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/crestline-am/docintake/internal/core/domain"
)

// Options are the tunable matching constants.
type Options struct {
	// ExactConfidence is awarded when an alias appears verbatim in the text.
	ExactConfidence float64
	// FuzzyThreshold is the minimum window similarity that counts at all.
	FuzzyThreshold float64
	// FuzzyScale discounts fuzzy hits relative to exact ones.
	FuzzyScale float64
	// KeywordBonus is added per category keyword found, up to KeywordBonusCap.
	KeywordBonus    float64
	KeywordBonusCap float64
	// CandidateCutoff is the confidence an asset must exceed to be reported.
	CandidateCutoff float64
	// MaxTextChars caps the scanned haystack; 0 disables the cap.
	MaxTextChars int
}

func DefaultOptions() Options {
	return Options{
		ExactConfidence: 0.95,
		FuzzyThreshold:  0.80,
		FuzzyScale:      0.9,
		KeywordBonus:    0.1,
		KeywordBonusCap: 0.3,
		CandidateCutoff: 0.5,
		MaxTextChars:    20000,
	}
}

func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.ExactConfidence <= 0 || o.ExactConfidence > 1 {
		o.ExactConfidence = def.ExactConfidence
	}
	if o.FuzzyThreshold <= 0 || o.FuzzyThreshold > 1 {
		o.FuzzyThreshold = def.FuzzyThreshold
	}
	if o.FuzzyScale <= 0 || o.FuzzyScale > 1 {
		o.FuzzyScale = def.FuzzyScale
	}
	if o.KeywordBonus <= 0 {
		o.KeywordBonus = def.KeywordBonus
	}
	if o.KeywordBonusCap <= 0 {
		o.KeywordBonusCap = def.KeywordBonusCap
	}
	if o.CandidateCutoff <= 0 {
		o.CandidateCutoff = def.CandidateCutoff
	}
	if o.MaxTextChars < 0 {
		o.MaxTextChars = def.MaxTextChars
	}
	return o
}

var windowSizes = [...]int{3, 2, 1}

type Resolver struct {
	opts Options
}

func New(opts Options) *Resolver {
	return &Resolver{opts: opts.normalize()}
}

// Resolve returns every asset whose best alias confidence, plus its category
// keyword bonus, exceeds the candidate cutoff. Candidates come back sorted
// by confidence descending; ties keep registry order.
func (r *Resolver) Resolve(subject, body, filename string, assets []domain.Asset) []domain.AssetMatch {
	text := normalizeText(subject + " " + body + " " + filename)
	if r.opts.MaxTextChars > 0 && utf8.RuneCountInString(text) > r.opts.MaxTextChars {
		text = string([]rune(text)[:r.opts.MaxTextChars])
	}
	words := strings.Fields(text)

	var matches []domain.AssetMatch
	for i := range assets {
		asset := &assets[i]

		best := 0.0
		for _, name := range asset.MatchNames() {
			alias := normalizeText(name)
			if alias == "" {
				continue
			}
			if conf := r.scoreAlias(alias, text, words); conf > best {
				best = conf
			}
		}

		best += r.keywordBonus(asset.Category, words)
		if best > 1.0 {
			best = 1.0
		}

		if best > r.opts.CandidateCutoff {
			matches = append(matches, domain.AssetMatch{AssetID: asset.ID, Confidence: best})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

func (r *Resolver) scoreAlias(alias, text string, words []string) float64 {
	if strings.Contains(text, alias) {
		return r.opts.ExactConfidence
	}

	best := 0.0
	aliasLen := utf8.RuneCountInString(alias)
	for _, size := range windowSizes {
		for i := 0; i+size <= len(words); i++ {
			window := strings.Join(words[i:i+size], " ")
			sim := similarity(alias, window, aliasLen)
			if sim >= r.opts.FuzzyThreshold {
				if conf := sim * r.opts.FuzzyScale; conf > best {
					best = conf
				}
			}
		}
	}
	return best
}

func (r *Resolver) keywordBonus(category domain.AssetCategory, words []string) float64 {
	keywords := categoryKeywords[category]
	if len(keywords) == 0 || len(words) == 0 {
		return 0
	}

	present := make(map[string]struct{}, len(words))
	for _, w := range words {
		present[strings.Trim(w, ".,;:!?()'\"")] = struct{}{}
	}

	count := 0
	for _, kw := range keywords {
		if _, ok := present[kw]; ok {
			count++
		}
	}

	bonus := r.opts.KeywordBonus * float64(count)
	if bonus > r.opts.KeywordBonusCap {
		bonus = r.opts.KeywordBonusCap
	}
	return bonus
}

// similarity is the normalized edit-distance score 1 - d/maxLen.
func similarity(alias, window string, aliasLen int) float64 {
	windowLen := utf8.RuneCountInString(window)
	maxLen := aliasLen
	if windowLen > maxLen {
		maxLen = windowLen
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(alias, window)
	return 1.0 - float64(dist)/float64(maxLen)
}

// normalizeText lower-cases and collapses all whitespace runs to single
// spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
