package nlp

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
)

// WritingQuality holds structural and stylistic metrics of a text.
type WritingQuality struct {
	WordCount                int         `json:"word_count"`
	SentenceCount            int         `json:"sentence_count"`
	ParagraphCount           int         `json:"paragraph_count"`
	AvgWordsPerSentence      float64     `json:"avg_words_per_sentence"`
	AvgSentencesPerParagraph float64     `json:"avg_sentences_per_paragraph"`
	VocabularyRichness       float64     `json:"vocabulary_richness"`
	EstimatedSpellingErrors  int         `json:"estimated_spelling_errors"`
	GrammarScore             float64     `json:"grammar_score"`
	Readability              Readability `json:"readability"`
	OverallQualityScore      float64     `json:"overall_quality_score"`
}

var (
	// Three or more repeats of one character ("sooo"). RE2 has no backreferences.
	repeatedChars = mustRegexp(`(.)\1{2,}`)
	mixedCase     = mustRegexp(`[a-z][A-Z]`)
)

func mustRegexp(pattern string) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, regexp2.None)
	re.MatchTimeout = 50 * time.Millisecond
	return re
}

// AnalyzeWritingQuality computes word, sentence and paragraph statistics, vocabulary
// richness, a spelling heuristic and an overall score in [0, 1].
func AnalyzeWritingQuality(text string) (WritingQuality, error) {
	if text == "" {
		return WritingQuality{}, nil
	}

	wordCount := WordCount(text)
	sentenceCount := len(SplitSentences(text))
	if sentenceCount == 0 {
		sentenceCount = 1
	}

	paragraphCount := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphCount++
		}
	}

	avgWPS := float64(wordCount) / float64(sentenceCount)
	avgSPP := float64(sentenceCount) / float64(max(paragraphCount, 1))

	cleaned := strings.Fields(CleanText(text))
	unique := make(map[string]struct{}, len(cleaned))
	for _, w := range cleaned {
		unique[w] = struct{}{}
	}
	richness := float64(len(unique)) / float64(max(len(cleaned), 1))

	spelling, err := EstimateSpellingErrors(text)
	if err != nil {
		return WritingQuality{}, err
	}
	grammar := math.Max(0, 1-float64(spelling)/float64(max(wordCount, 1)))

	readability := CalculateReadability(text)

	readabilityFactor := 0.5
	if readability.FleschScore > 0 {
		readabilityFactor = math.Min(readability.FleschScore/100, 1)
	}
	structureFactor := 0.5
	if avgWPS < 30 {
		structureFactor = math.Min(avgWPS/20, 1)
	}
	factors := []float64{
		math.Min(richness*2, 1),
		math.Min(grammar, 1),
		readabilityFactor,
		structureFactor,
	}
	var sum float64
	for _, f := range factors {
		sum += f
	}

	return WritingQuality{
		WordCount:                wordCount,
		SentenceCount:            sentenceCount,
		ParagraphCount:           paragraphCount,
		AvgWordsPerSentence:      round(avgWPS, 2),
		AvgSentencesPerParagraph: round(avgSPP, 2),
		VocabularyRichness:       round(richness, 3),
		EstimatedSpellingErrors:  spelling,
		GrammarScore:             round(grammar, 3),
		Readability:              readability,
		OverallQualityScore:      round(sum/float64(len(factors)), 3),
	}, nil
}

// EstimateSpellingErrors counts words (longer than two characters after trimming
// punctuation) with a run of three identical characters or a lower-to-upper case switch.
func EstimateSpellingErrors(text string) (int, error) {
	errCount := 0
	for _, word := range strings.Fields(text) {
		w := strings.TrimFunc(word, unicode.IsPunct)
		if len([]rune(w)) <= 2 {
			continue
		}

		repeated, err := repeatedChars.MatchString(w)
		if err != nil {
			return 0, fmt.Errorf("match repeated characters: %w", err)
		}
		if repeated {
			errCount++
			continue
		}

		mixed, err := mixedCase.MatchString(w)
		if err != nil {
			return 0, fmt.Errorf("match mixed case: %w", err)
		}
		if mixed {
			errCount++
		}
	}
	return errCount, nil
}

// QualitySummary is the per-attempt average of the main quality scores.
type QualitySummary struct {
	OverallQualityScore float64 `json:"overall_quality_score"`
	VocabularyRichness  float64 `json:"vocabulary_richness"`
	GrammarScore        float64 `json:"grammar_score"`
}
