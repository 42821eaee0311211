package nlp

import (
	"strings"
	"sync"
)

// AnswerAnalysis is the per-answer outcome used when scoring an attempt.
type AnswerAnalysis struct {
	QuestionID string           `json:"question_id"`
	Quality    WritingQuality   `json:"quality"`
	Sentiment  Sentiment        `json:"sentiment"`
	Plagiarism PlagiarismResult `json:"plagiarism"`
}

// AttemptAnalysis aggregates the free-text answers of one attempt.
type AttemptAnalysis struct {
	PlagiarismScore   float64        `json:"plagiarism_score"`
	SentimentAnalysis Sentiment      `json:"sentiment_analysis"`
	WritingQuality    QualitySummary `json:"writing_quality"`
}

// DefaultAttemptAnalysis is the result for attempts without free-text answers and the
// degraded default when analysis fails.
func DefaultAttemptAnalysis() AttemptAnalysis {
	return AttemptAnalysis{SentimentAnalysis: NeutralSentiment()}
}

// Analyzer owns a process-wide reference corpus for similarity checks.
type Analyzer struct {
	mu     sync.RWMutex
	corpus []string
	seen   map[string]struct{}
}

// NewAnalyzer creates an Analyzer with an empty corpus.
func NewAnalyzer() *Analyzer {
	return &Analyzer{seen: make(map[string]struct{})}
}

// AddReference appends text to the corpus; blank and duplicate texts are ignored.
func (a *Analyzer) AddReference(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[text]; ok {
		return
	}
	a.seen[text] = struct{}{}
	a.corpus = append(a.corpus, text)
}

// Corpus returns a copy of the reference corpus.
func (a *Analyzer) Corpus() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.corpus))
	copy(out, a.corpus)
	return out
}

// CheckPlagiarism compares text with references, or with the corpus when references
// is empty.
func (a *Analyzer) CheckPlagiarism(text string, references []string) (PlagiarismResult, error) {
	if len(references) == 0 {
		references = a.Corpus()
	}
	return CheckPlagiarism(text, references)
}

// AnalyzeAnswer computes quality, sentiment and similarity for one free-text answer.
// extraRefs are combined with the corpus.
func (a *Analyzer) AnalyzeAnswer(questionID, answer string, extraRefs []string) (AnswerAnalysis, error) {
	quality, err := AnalyzeWritingQuality(answer)
	if err != nil {
		return AnswerAnalysis{}, err
	}

	refs := append(a.Corpus(), extraRefs...)
	plagiarism, err := CheckPlagiarism(answer, refs)
	if err != nil {
		return AnswerAnalysis{}, err
	}

	return AnswerAnalysis{
		QuestionID: questionID,
		Quality:    quality,
		Sentiment:  AnalyzeSentiment(answer),
		Plagiarism: plagiarism,
	}, nil
}

// Aggregate averages per-answer results into an attempt summary.
func Aggregate(answers []AnswerAnalysis) AttemptAnalysis {
	if len(answers) == 0 {
		return DefaultAttemptAnalysis()
	}

	n := float64(len(answers))
	var (
		plagiarism float64
		sentiment  Sentiment
		quality    QualitySummary
	)
	for _, a := range answers {
		plagiarism += a.Plagiarism.SimilarityScore
		sentiment.Positive += a.Sentiment.Positive
		sentiment.Neutral += a.Sentiment.Neutral
		sentiment.Negative += a.Sentiment.Negative
		sentiment.Compound += a.Sentiment.Compound
		quality.OverallQualityScore += a.Quality.OverallQualityScore
		quality.VocabularyRichness += a.Quality.VocabularyRichness
		quality.GrammarScore += a.Quality.GrammarScore
	}

	return AttemptAnalysis{
		PlagiarismScore: round(plagiarism/n, 3),
		SentimentAnalysis: Sentiment{
			Positive: sentiment.Positive / n,
			Neutral:  sentiment.Neutral / n,
			Negative: sentiment.Negative / n,
			Compound: sentiment.Compound / n,
		},
		WritingQuality: QualitySummary{
			OverallQualityScore: quality.OverallQualityScore / n,
			VocabularyRichness:  quality.VocabularyRichness / n,
			GrammarScore:        quality.GrammarScore / n,
		},
	}
}
