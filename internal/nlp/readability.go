package nlp

import (
	"math"
	"strings"
)

// Readability holds Flesch-based readability metrics.
type Readability struct {
	FleschScore         float64 `json:"flesch_score"`
	GradeLevel          float64 `json:"grade_level"`
	AvgSentenceLength   float64 `json:"avg_sentence_length"`
	AvgSyllablesPerWord float64 `json:"avg_syllables_per_word"`
}

// CalculateReadability computes Flesch reading ease and Flesch-Kincaid grade level.
// Empty text yields zero scores.
func CalculateReadability(text string) Readability {
	words := lexiconWords(text)
	if len(words) == 0 {
		return Readability{}
	}

	sentences := len(SplitSentences(text))
	if sentences == 0 {
		sentences = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += CountSyllables(w)
	}

	wps := float64(len(words)) / float64(sentences)
	spw := float64(syllables) / float64(len(words))

	return Readability{
		FleschScore:         round(206.835-1.015*wps-84.6*spw, 2),
		GradeLevel:          round(0.39*wps+11.8*spw-15.59, 2),
		AvgSentenceLength:   round(wps, 1),
		AvgSyllablesPerWord: round(spw, 1),
	}
}

// CalculateDifficulty scores a question from 1 (easy) to 5 (hard) using grade level,
// length and the share of long words.
func CalculateDifficulty(text string) float64 {
	if text == "" {
		return 1.0
	}

	readability := CalculateReadability(text)
	tokens := strings.Fields(text)
	wordCount := len(tokens)

	long := 0
	for _, t := range tokens {
		if len([]rune(t)) > 7 {
			long++
		}
	}

	gradeFactor := math.Min(readability.GradeLevel/12, 1.0)
	lengthFactor := math.Min(float64(wordCount)/100, 1.0)
	complexity := float64(long) / float64(max(wordCount, 1))

	return clamp(gradeFactor*2+lengthFactor+complexity*2, 1.0, 5.0)
}
