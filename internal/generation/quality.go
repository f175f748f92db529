package generation

import (
	"math"
	"regexp"
	"strings"
)

// QualityMetrics summarizes how concrete and varied a cell's examples are.
// These are advisory signals surfaced alongside the grid, not gates.
type QualityMetrics struct {
	ExamplesCount      int     `json:"examples_count"`
	AvgLengthChars     int     `json:"avg_length_chars"`
	AvgLengthWords     int     `json:"avg_length_words"`
	ActionVerbCount    int     `json:"action_verb_count"`
	ArtifactTermCount  int     `json:"artifact_term_count"`
	GenericPhraseCount int     `json:"generic_phrase_count"`
	UniquenessScore    float64 `json:"uniqueness_score"`
	ActionVerbDensity  float64 `json:"action_verb_density"`
	ArtifactDensity    float64 `json:"artifact_density"`
	GenericDensity     float64 `json:"generic_density"`
}

// QualityCalculator computes metrics against configurable word lists.
type QualityCalculator struct {
	actionVerbs    map[string]bool
	artifactTerms  []string
	genericPhrases []string
}

// NewQualityCalculator creates a calculator with custom word lists.
func NewQualityCalculator(actionVerbs, artifactTerms, genericPhrases []string) *QualityCalculator {
	verbs := make(map[string]bool, len(actionVerbs))
	for _, v := range actionVerbs {
		verbs[strings.ToLower(v)] = true
	}
	return &QualityCalculator{
		actionVerbs:    verbs,
		artifactTerms:  lowerAll(artifactTerms),
		genericPhrases: lowerAll(genericPhrases),
	}
}

// DefaultQualityCalculator returns a calculator with the standard word lists.
func DefaultQualityCalculator() *QualityCalculator {
	return NewQualityCalculator(defaultActionVerbs, defaultArtifactTerms, defaultGenericPhrases)
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// Compute calculates metrics for a set of examples from one cell.
func (c *QualityCalculator) Compute(examples []string) QualityMetrics {
	if len(examples) == 0 {
		return QualityMetrics{}
	}

	totalChars := 0
	totalWords := 0
	actionVerbCount := 0
	artifactTermCount := 0
	genericPhraseCount := 0

	for _, example := range examples {
		tokens := tokenizeWords(example)
		totalChars += len(example)
		totalWords += len(tokens)
		for _, token := range tokens {
			if c.actionVerbs[token] {
				actionVerbCount++
			}
		}
		artifactTermCount += countPhraseOccurrences(example, c.artifactTerms)
		genericPhraseCount += countPhraseOccurrences(example, c.genericPhrases)
	}

	count := len(examples)

	metrics := QualityMetrics{
		ExamplesCount:      count,
		AvgLengthChars:     int(math.Round(float64(totalChars) / float64(count))),
		AvgLengthWords:     int(math.Round(float64(totalWords) / float64(count))),
		ActionVerbCount:    actionVerbCount,
		ArtifactTermCount:  artifactTermCount,
		GenericPhraseCount: genericPhraseCount,
		UniquenessScore:    computeUniquenessScore(examples),
		ArtifactDensity:    round2(float64(artifactTermCount) / float64(count)),
		GenericDensity:     round2(float64(genericPhraseCount) / float64(count)),
	}
	if totalWords > 0 {
		// Action verbs per 100 words.
		metrics.ActionVerbDensity = round2(float64(actionVerbCount) / float64(totalWords) * 100)
	}
	return metrics
}

func tokenizeWords(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// countPhraseOccurrences counts term occurrences with word-boundary
// awareness for single-word terms.
func countPhraseOccurrences(text string, phrases []string) int {
	lowered := strings.ToLower(text)
	count := 0
	for _, phrase := range phrases {
		if !strings.Contains(phrase, " ") {
			pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
			count += len(pattern.FindAllStringIndex(lowered, -1))
		} else {
			count += strings.Count(lowered, phrase)
		}
	}
	return count
}

// computeUniquenessScore measures pairwise trigram diversity across
// examples. 1.0 means no shared trigrams; near 0 means the examples are
// restatements of each other.
func computeUniquenessScore(examples []string) float64 {
	if len(examples) <= 1 {
		return 1.0
	}

	gramSets := make([]map[string]bool, 0, len(examples))
	for _, example := range examples {
		words := tokenizeWords(example)
		grams := make(map[string]bool)
		if len(words) >= 3 {
			for i := 0; i+2 < len(words); i++ {
				grams[words[i]+" "+words[i+1]+" "+words[i+2]] = true
			}
		} else {
			for _, w := range words {
				grams[w] = true
			}
		}
		gramSets = append(gramSets, grams)
	}

	var similarities []float64
	for i := 0; i < len(gramSets); i++ {
		for j := i + 1; j < len(gramSets); j++ {
			a, b := gramSets[i], gramSets[j]
			if len(a) == 0 && len(b) == 0 {
				similarities = append(similarities, 1.0)
				continue
			}
			intersection := 0
			for gram := range a {
				if b[gram] {
					intersection++
				}
			}
			union := len(a) + len(b) - intersection
			if union == 0 {
				similarities = append(similarities, 0.0)
			} else {
				similarities = append(similarities, float64(intersection)/float64(union))
			}
		}
	}

	total := 0.0
	for _, s := range similarities {
		total += s
	}
	avgSimilarity := total / float64(len(similarities))

	return math.Max(0.0, math.Min(1.0, 1.0-avgSimilarity))
}

func lowerAll(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = strings.ToLower(item)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var defaultActionVerbs = []string{
	"build", "create", "design", "implement", "lead", "review", "mentor", "write",
	"present", "analyze", "improve", "optimize", "deliver", "launch", "own",
	"coordinate", "document", "automate", "debug", "refactor", "test",
}

var defaultArtifactTerms = []string{
	"pr", "pull request", "design doc", "doc", "documentation", "dashboard",
	"postmortem", "incident review", "runbook", "spec", "proposal", "report",
	"roadmap", "meeting", "presentation", "analysis",
}

var defaultGenericPhrases = []string{
	"shows leadership",
	"drives impact",
	"demonstrates ownership",
	"takes initiative",
	"collaborates effectively",
	"communicates clearly",
}
