package ocrimport

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

const (
	DefaultPositionThreshold   = 15.0
	DefaultSimilarityThreshold = 0.7
	DefaultMergeThreshold      = 35.0
)

// DedupeOptions tunes Deduplicate. Zero values take the defaults.
type DedupeOptions struct {
	PositionThreshold   float64
	SimilarityThreshold float64
}

func (o DedupeOptions) withDefaults() DedupeOptions {
	if o.PositionThreshold <= 0 {
		o.PositionThreshold = DefaultPositionThreshold
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return o
}

// Similarity scores two readings: 1 when equal, 0.8 when one contains the
// other, otherwise the share of a's characters found anywhere in b over the
// longer length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}
	common := 0
	for _, r := range a {
		if strings.ContainsRune(b, r) {
			common++
		}
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return float64(common) / float64(longest)
}

func distance(a, b Text) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Deduplicate greedily groups readings that sit within the position
// threshold of a group's first reading and are similar enough to it, then
// keeps the reading with the highest confidence, longest text breaking ties.
// Output order follows the first reading of each group.
func Deduplicate(texts []Text, opts DedupeOptions) []Text {
	opts = opts.withDefaults()
	used := make([]bool, len(texts))
	var out []Text
	for i, first := range texts {
		if used[i] {
			continue
		}
		used[i] = true
		best := first
		for j := i + 1; j < len(texts); j++ {
			if used[j] {
				continue
			}
			other := texts[j]
			if distance(first, other) >= opts.PositionThreshold {
				continue
			}
			if Similarity(first.Text, other.Text) < opts.SimilarityThreshold {
				continue
			}
			used[j] = true
			if better(other, best) {
				best = other
			}
		}
		out = append(out, best)
	}
	return out
}

func better(a, b Text) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return len(a.Text) > len(b.Text)
}

// MergeSplit joins fragments of one label that a scan tile boundary split
// horizontally: readings on the same line (|dy| < 5) within threshold of
// each other, neither contained in the other. The merged reading takes the
// leftmost position and the mean confidence.
func MergeSplit(texts []Text, threshold float64) []Text {
	if threshold <= 0 {
		threshold = DefaultMergeThreshold
	}
	used := make([]bool, len(texts))
	var out []Text
	for i, first := range texts {
		if used[i] {
			continue
		}
		used[i] = true
		parts := []Text{first}
		for j := i + 1; j < len(texts); j++ {
			if used[j] {
				continue
			}
			other := texts[j]
			if math.Abs(first.Y-other.Y) >= 5 || math.Abs(first.X-other.X) >= threshold {
				continue
			}
			if overlapsAny(parts, other.Text) {
				continue
			}
			parts = append(parts, other)
			used[j] = true
		}
		if len(parts) == 1 {
			out = append(out, first)
			continue
		}
		slices.SortStableFunc(parts, func(a, b Text) int { return cmp.Compare(a.X, b.X) })
		words := make([]string, len(parts))
		conf := 0.0
		for k, p := range parts {
			words[k] = p.Text
			conf += p.Confidence
		}
		out = append(out, Text{
			Text:       strings.Join(words, " "),
			X:          parts[0].X,
			Y:          parts[0].Y,
			Confidence: conf / float64(len(parts)),
			Scan:       "merged",
		})
	}
	return out
}

func overlapsAny(parts []Text, text string) bool {
	for _, p := range parts {
		if strings.Contains(p.Text, text) || strings.Contains(text, p.Text) {
			return true
		}
	}
	return false
}
