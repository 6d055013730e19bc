// Package classify maps attachment metadata to a document category using
// declarative per-asset-class pattern tables. Classification is pure: no
// I/O, no state, identical inputs give identical verdicts.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/crestline-am/docintake/internal/core/domain"
)

// Weights score a pattern hit by where it occurred. Filename hits carry the
// most signal, body text the least.
type Weights struct {
	Filename float64
	Subject  float64
	Body     float64
}

func DefaultWeights() Weights {
	return Weights{Filename: 0.6, Subject: 0.3, Body: 0.1}
}

func (w Weights) normalize() Weights {
	if w.Filename <= 0 && w.Subject <= 0 && w.Body <= 0 {
		return DefaultWeights()
	}
	return w
}

// corroborationBonus rewards labels confirmed by more than one distinct
// pattern.
const corroborationBonus = 1.2

type compiledLabel struct {
	label    domain.DocumentCategory
	patterns []*regexp.Regexp
}

type compiledTable struct {
	category domain.AssetCategory
	labels   []compiledLabel
}

// Classifier holds compiled tables in declaration order so tie-breaking is
// deterministic.
type Classifier struct {
	weights Weights
	tables  []compiledTable
}

// New builds a classifier over the built-in tables.
func New(weights Weights) *Classifier {
	c, err := NewFromTables(weights, DefaultTables())
	if err != nil {
		// Built-in tables are compile-checked by tests.
		panic(fmt.Sprintf("classify: default tables invalid: %v", err))
	}
	return c
}

// NewFromTables builds a classifier over a caller-provided rule set, e.g. a
// YAML override file.
func NewFromTables(weights Weights, set TableSet) (*Classifier, error) {
	if len(set.Categories) == 0 {
		return nil, fmt.Errorf("classify: empty table set")
	}
	tables := make([]compiledTable, 0, len(set.Categories))
	for _, ct := range set.Categories {
		if len(ct.Labels) == 0 {
			return nil, fmt.Errorf("classify: category %q has no labels", ct.Category)
		}
		compiled := compiledTable{category: ct.Category}
		for _, lp := range ct.Labels {
			if len(lp.Patterns) == 0 {
				return nil, fmt.Errorf("classify: label %q has no patterns", lp.Label)
			}
			cl := compiledLabel{label: lp.Label}
			for _, p := range lp.Patterns {
				re, err := regexp.Compile(p)
				if err != nil {
					return nil, fmt.Errorf("classify: pattern %q for label %q: %w", p, lp.Label, err)
				}
				cl.patterns = append(cl.patterns, re)
			}
			compiled.labels = append(compiled.labels, cl)
		}
		tables = append(tables, compiled)
	}
	return &Classifier{weights: weights.normalize(), tables: tables}, nil
}

type scoredZone struct {
	text   string
	weight float64
}

type labelScore struct {
	label        domain.DocumentCategory
	sum          float64
	patternCount int
	matched      int
}

// Classify scores every (label, pattern) pair against the lowercased
// filename, subject and body, normalizes per label by its declared pattern
// count, and returns the best label. Known asset categories narrow the rule
// set; ties keep the first label in table order. No pattern hit at all yields
// the unknown category with confidence zero.
func (c *Classifier) Classify(filename, subject, body string, known domain.AssetCategory) domain.Classification {
	zones := []scoredZone{
		{text: strings.ToLower(filename), weight: c.weights.Filename},
		{text: strings.ToLower(subject), weight: c.weights.Subject},
		{text: strings.ToLower(body), weight: c.weights.Body},
	}

	var scores []*labelScore
	index := make(map[domain.DocumentCategory]*labelScore)

	for _, table := range c.selectTables(known) {
		for _, lp := range table.labels {
			ls := index[lp.label]
			if ls == nil {
				ls = &labelScore{label: lp.label}
				index[lp.label] = ls
				scores = append(scores, ls)
			}
			ls.patternCount += len(lp.patterns)
			for _, re := range lp.patterns {
				contribution := 0.0
				for _, z := range zones {
					if z.text != "" && re.MatchString(z.text) {
						contribution += z.weight
					}
				}
				if contribution > 0 {
					ls.sum += contribution
					ls.matched++
				}
			}
		}
	}

	var best *labelScore
	bestConfidence := 0.0
	for _, ls := range scores {
		if ls.matched == 0 {
			continue
		}
		confidence := ls.sum / float64(ls.patternCount)
		if ls.matched > 1 {
			confidence *= corroborationBonus
		}
		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence > bestConfidence {
			best = ls
			bestConfidence = confidence
		}
	}

	if best == nil {
		return domain.Classification{Category: domain.DocumentUnknown}
	}
	return domain.Classification{
		Category:        best.label,
		Confidence:      bestConfidence,
		MatchedPatterns: best.matched,
	}
}

func (c *Classifier) selectTables(known domain.AssetCategory) []compiledTable {
	if known != "" {
		for _, table := range c.tables {
			if table.category == known {
				return []compiledTable{table}
			}
		}
	}
	return c.tables
}
