package nlp

import (
	"errors"
	"math"
)

// DefaultEssayMaxScore is used when a grading request omits max_score.
const DefaultEssayMaxScore = 10.0

// Essay scoring weights.
const (
	weightRelevance = 0.35
	weightQuality   = 0.30
	weightLength    = 0.20
	weightStructure = 0.15
)

// ErrInvalidMaxScore is returned when an essay is graded against a non-positive maximum.
var ErrInvalidMaxScore = errors.New("max score must be positive")

// EssayFeedback breaks the suggested score down by factor.
type EssayFeedback struct {
	ContentRelevance float64 `json:"content_relevance"`
	WritingQuality   float64 `json:"writing_quality"`
	LengthScore      float64 `json:"length_score"`
	StructureScore   float64 `json:"structure_score"`
}

// EssayGrade is an automated essay score suggestion with feedback.
type EssayGrade struct {
	SuggestedScore      float64        `json:"suggested_score"`
	MaxScore            float64        `json:"max_score"`
	Percentage          float64        `json:"percentage"`
	Feedback            *EssayFeedback `json:"feedback"`
	Strengths           []string       `json:"strengths"`
	AreasForImprovement []string       `json:"areas_for_improvement"`
	WritingQuality      WritingQuality `json:"writing_quality"`
	Sentiment           Sentiment      `json:"sentiment"`
}

// DefaultEssayGrade is the grade for a missing answer and the degraded default.
func DefaultEssayGrade(maxScore float64) EssayGrade {
	return EssayGrade{
		MaxScore:            maxScore,
		Strengths:           []string{},
		AreasForImprovement: []string{"Please provide an answer"},
		Sentiment:           NeutralSentiment(),
	}
}

// GradeEssay suggests a score for essay against question: keyword relevance 35%,
// writing quality 30%, length (200 words) 20% and structure (3 paragraphs) 15%.
func GradeEssay(essay, question string, maxScore float64) (EssayGrade, error) {
	if maxScore <= 0 {
		return DefaultEssayGrade(maxScore), ErrInvalidMaxScore
	}
	if essay == "" {
		return DefaultEssayGrade(maxScore), nil
	}

	quality, err := AnalyzeWritingQuality(essay)
	if err != nil {
		return DefaultEssayGrade(maxScore), err
	}
	sentiment := AnalyzeSentiment(essay)

	questionKeywords := ExtractKeywords(question, DefaultKeywordCount)
	essayKeywords := toSet(ExtractKeywords(essay, DefaultKeywordCount))
	overlap := 0
	for _, k := range questionKeywords {
		if _, ok := essayKeywords[k]; ok {
			overlap++
		}
	}

	relevance := math.Min(float64(overlap)/float64(max(len(questionKeywords), 1)), 1.0)
	length := math.Min(float64(quality.WordCount)/200, 1.0)
	qualityScore := quality.OverallQualityScore
	structure := math.Min(float64(quality.ParagraphCount)/3, 1.0)

	score := (relevance*weightRelevance +
		qualityScore*weightQuality +
		length*weightLength +
		structure*weightStructure) * maxScore

	strengths := []string{}
	improvements := []string{}

	if qualityScore > 0.7 {
		strengths = append(strengths, "Good writing quality and vocabulary usage")
	} else if qualityScore < 0.4 {
		improvements = append(improvements, "Focus on improving grammar and vocabulary")
	}
	if relevance > 0.5 {
		strengths = append(strengths, "Good content relevance to the question")
	} else {
		improvements = append(improvements, "Address the question more directly")
	}
	if quality.WordCount >= 150 {
		strengths = append(strengths, "Adequate length and detail")
	} else {
		improvements = append(improvements, "Provide more detailed explanation")
	}
	if quality.ParagraphCount >= 3 {
		strengths = append(strengths, "Well-structured with multiple paragraphs")
	} else {
		improvements = append(improvements, "Organize content into clear paragraphs")
	}

	return EssayGrade{
		SuggestedScore: round(score, 2),
		MaxScore:       maxScore,
		Percentage:     round(score/maxScore*100, 1),
		Feedback: &EssayFeedback{
			ContentRelevance: round(relevance, 2),
			WritingQuality:   round(qualityScore, 2),
			LengthScore:      round(length, 2),
			StructureScore:   round(structure, 2),
		},
		Strengths:           strengths,
		AreasForImprovement: improvements,
		WritingQuality:      quality,
		Sentiment:           sentiment,
	}, nil
}

// QuestionAnalysis summarizes a question's text.
type QuestionAnalysis struct {
	Keywords             []string    `json:"keywords"`
	DifficultyScore      float64     `json:"difficulty_score"`
	Readability          Readability `json:"readability"`
	WordCount            int         `json:"word_count"`
	EstimatedTimeMinutes float64     `json:"estimated_time_minutes"`
}

// AnalyzeQuestion extracts keywords, difficulty, readability and a reading time estimate
// (50 words per minute, at least one minute).
func AnalyzeQuestion(text string) QuestionAnalysis {
	words := WordCount(text)
	return QuestionAnalysis{
		Keywords:             ExtractKeywords(text, DefaultKeywordCount),
		DifficultyScore:      CalculateDifficulty(text),
		Readability:          CalculateReadability(text),
		WordCount:            words,
		EstimatedTimeMinutes: math.Max(1, float64(words)/50),
	}
}

// TextAnalysis is the combined report of the free-text analysis endpoint.
type TextAnalysis struct {
	Text             string         `json:"text"`
	WordCount        int            `json:"word_count"`
	ReadabilityScore float64        `json:"readability_score"`
	DifficultyScore  float64        `json:"difficulty_score"`
	SentimentScore   float64        `json:"sentiment_score"`
	Keywords         []string       `json:"keywords"`
	LanguageQuality  WritingQuality `json:"language_quality"`
}

// AnalyzeText runs every text heuristic over text.
func AnalyzeText(text string) (TextAnalysis, error) {
	quality, err := AnalyzeWritingQuality(text)
	if err != nil {
		return TextAnalysis{}, err
	}
	return TextAnalysis{
		Text:             text,
		WordCount:        WordCount(text),
		ReadabilityScore: CalculateReadability(text).FleschScore,
		DifficultyScore:  CalculateDifficulty(text),
		SentimentScore:   AnalyzeSentiment(text).Compound,
		Keywords:         ExtractKeywords(text, DefaultKeywordCount),
		LanguageQuality:  quality,
	}, nil
}
