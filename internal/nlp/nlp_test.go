package nlp

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Hello, World!  It's  ok", "hello world it s ok"},
		{"  multiple\n\nlines\tand tabs ", "multiple lines and tabs"},
		{"ﬁne print", "fine print"},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	text := "The photosynthesis process converts light. Photosynthesis needs light and water."
	got := ExtractKeywords(text, DefaultKeywordCount)
	want := []string{"photosynthesis", "light", "process", "converts", "needs", "water"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}

	if got := ExtractKeywords(text, 2); len(got) != 2 {
		t.Errorf("limit not applied: %v", got)
	}
	if got := ExtractKeywords("", 10); len(got) != 0 {
		t.Errorf("empty text returned %v", got)
	}
	if got := ExtractKeywords("it is on at of", 10); len(got) != 0 {
		t.Errorf("stopwords returned %v", got)
	}
}

func TestCountSyllables(t *testing.T) {
	tests := map[string]int{
		"cat":      1,
		"make":     1,
		"table":    2,
		"syllable": 3,
		"rhythm":   1,
		"":         0,
	}
	for word, want := range tests {
		if got := CountSyllables(word); got != want {
			t.Errorf("CountSyllables(%q) = %d, want %d", word, got, want)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"One. Two! Three? ...", 3},
		{"Pi is about 3.14 today.", 1},
		{"no terminal punctuation", 1},
		{"", 0},
	}
	for _, tt := range tests {
		if got := len(SplitSentences(tt.in)); got != tt.want {
			t.Errorf("SplitSentences(%q) = %d sentences, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReadabilityAndDifficulty(t *testing.T) {
	if r := CalculateReadability(""); r != (Readability{}) {
		t.Errorf("empty readability = %+v", r)
	}

	simple := CalculateReadability("The cat sat on the mat. The dog ran.")
	if simple.FleschScore <= 80 {
		t.Errorf("simple text should read easily, got %.2f", simple.FleschScore)
	}

	if d := CalculateDifficulty(""); d != 1.0 {
		t.Errorf("empty difficulty = %v", d)
	}
	if d := CalculateDifficulty("What is two plus two?"); d != 1.0 {
		t.Errorf("trivial question difficulty = %v, want 1", d)
	}

	hard := strings.Repeat("Characterize the thermodynamic irreversibility of electrochemical polarization phenomena ", 20)
	d := CalculateDifficulty(hard)
	if d < 1.0 || d > 5.0 {
		t.Fatalf("difficulty out of range: %v", d)
	}
	if d < 3.0 {
		t.Errorf("complex text difficulty = %v, want >= 3", d)
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	if got := AnalyzeSentiment(""); got != NeutralSentiment() {
		t.Errorf("empty = %+v", got)
	}

	pos := AnalyzeSentiment("This is a great and wonderful course")
	if pos.Compound <= 0 || pos.Positive <= 0 {
		t.Errorf("positive text scored %+v", pos)
	}

	neg := AnalyzeSentiment("This is not good")
	if neg.Compound >= 0 {
		t.Errorf("negated text scored %+v", neg)
	}

	neutral := AnalyzeSentiment("The table is brown")
	if neutral != (Sentiment{Neutral: 1}) {
		t.Errorf("neutral text scored %+v", neutral)
	}

	boosted := AnalyzeSentiment("very good")
	plain := AnalyzeSentiment("good")
	if boosted.Compound <= plain.Compound {
		t.Errorf("booster did not intensify: %v <= %v", boosted.Compound, plain.Compound)
	}
}

func TestCheckPlagiarism(t *testing.T) {
	text := "Photosynthesis converts light energy into chemical energy stored in glucose molecules."

	t.Run("identical reference", func(t *testing.T) {
		res, err := CheckPlagiarism(text, []string{text})
		if err != nil {
			t.Fatal(err)
		}
		if res.SimilarityScore < 0.99 || res.RiskLevel != RiskHigh {
			t.Errorf("got %+v", res)
		}
		if len(res.Matches) != 1 || res.Matches[0].ReferenceIndex != 0 {
			t.Errorf("matches = %+v", res.Matches)
		}
	})

	t.Run("unrelated reference", func(t *testing.T) {
		res, err := CheckPlagiarism(text, []string{"Chocolate cake recipes require butter and sugar."})
		if err != nil {
			t.Fatal(err)
		}
		if res.SimilarityScore != 0 || res.RiskLevel != RiskLow || len(res.Matches) != 0 {
			t.Errorf("got %+v", res)
		}
	})

	t.Run("no references", func(t *testing.T) {
		res, err := CheckPlagiarism(text, nil)
		if err != nil {
			t.Fatal(err)
		}
		if res.SimilarityScore != 0 || res.Matches == nil {
			t.Errorf("got %+v", res)
		}
	})

	t.Run("stop words only", func(t *testing.T) {
		res, err := CheckPlagiarism("it is a", []string{"on the of"})
		if !errors.Is(err, ErrEmptyVocabulary) {
			t.Fatalf("err = %v", err)
		}
		if res.RiskLevel != RiskLow {
			t.Errorf("degraded result = %+v", res)
		}
	})

	t.Run("vectorizer stop list", func(t *testing.T) {
		doc := "system detail bill"
		if _, err := CheckPlagiarism(doc, []string{doc}); !errors.Is(err, ErrEmptyVocabulary) {
			t.Fatalf("err = %v", err)
		}
		want := []string{"system", "detail", "bill"}
		if got := ExtractKeywords(doc, DefaultKeywordCount); !reflect.DeepEqual(got, want) {
			t.Errorf("keywords = %v, want %v", got, want)
		}
	})

	t.Run("snippet truncation", func(t *testing.T) {
		long := strings.Repeat("glucose energy ", 20)
		res, err := CheckPlagiarism(long, []string{long})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Matches) != 1 {
			t.Fatalf("matches = %+v", res.Matches)
		}
		if s := res.Matches[0].Snippet; len(s) != 103 || !strings.HasSuffix(s, "...") {
			t.Errorf("snippet = %q", s)
		}
	})
}

func TestEstimateSpellingErrors(t *testing.T) {
	n, err := EstimateSpellingErrors("Thiiis is aLright, fine.")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("errors = %d, want 2", n)
	}
}

func TestAnalyzeWritingQuality(t *testing.T) {
	empty, err := AnalyzeWritingQuality("")
	if err != nil || empty != (WritingQuality{}) {
		t.Fatalf("empty = %+v, %v", empty, err)
	}

	q, err := AnalyzeWritingQuality("First paragraph here. Another sentence.\n\nSecond paragraph now.")
	if err != nil {
		t.Fatal(err)
	}
	if q.ParagraphCount != 2 || q.SentenceCount != 3 || q.WordCount != 8 {
		t.Errorf("counts = %+v", q)
	}
	if q.OverallQualityScore <= 0 || q.OverallQualityScore > 1 {
		t.Errorf("overall = %v", q.OverallQualityScore)
	}
	if q.GrammarScore != 1 {
		t.Errorf("grammar = %v", q.GrammarScore)
	}
}

func TestGradeEssay(t *testing.T) {
	if _, err := GradeEssay("text", "question", 0); !errors.Is(err, ErrInvalidMaxScore) {
		t.Fatalf("err = %v", err)
	}

	empty, err := GradeEssay("", "Explain photosynthesis", 10)
	if err != nil {
		t.Fatal(err)
	}
	if empty.SuggestedScore != 0 || empty.AreasForImprovement[0] != "Please provide an answer" {
		t.Errorf("empty grade = %+v", empty)
	}

	essay := "I explain photosynthesis. Plants use photosynthesis. Plants need light."
	g, err := GradeEssay(essay, "Explain photosynthesis in plants", 10)
	if err != nil {
		t.Fatal(err)
	}
	if g.Feedback == nil || g.Feedback.ContentRelevance != 1 {
		t.Fatalf("feedback = %+v", g.Feedback)
	}
	if g.SuggestedScore <= 0 || g.SuggestedScore > 10 {
		t.Errorf("score = %v", g.SuggestedScore)
	}
	if !contains(g.Strengths, "Good content relevance to the question") {
		t.Errorf("strengths = %v", g.Strengths)
	}
	for _, want := range []string{"Provide more detailed explanation", "Organize content into clear paragraphs"} {
		if !contains(g.AreasForImprovement, want) {
			t.Errorf("improvements %v missing %q", g.AreasForImprovement, want)
		}
	}
	if math.Abs(g.Percentage-g.SuggestedScore*10) > 0.11 {
		t.Errorf("percentage %v inconsistent with score %v", g.Percentage, g.SuggestedScore)
	}
}

func TestAnalyzeQuestion(t *testing.T) {
	a := AnalyzeQuestion(strings.Repeat("word ", 100))
	if a.WordCount != 100 || a.EstimatedTimeMinutes != 2 {
		t.Errorf("got %+v", a)
	}
	if b := AnalyzeQuestion("Short?"); b.EstimatedTimeMinutes != 1 {
		t.Errorf("minimum reading time = %v", b.EstimatedTimeMinutes)
	}
}

func TestAggregate(t *testing.T) {
	if got := Aggregate(nil); got != DefaultAttemptAnalysis() {
		t.Errorf("empty aggregate = %+v", got)
	}

	got := Aggregate([]AnswerAnalysis{
		{Plagiarism: PlagiarismResult{SimilarityScore: 0.2}, Sentiment: Sentiment{Neutral: 1}, Quality: WritingQuality{GrammarScore: 1}},
		{Plagiarism: PlagiarismResult{SimilarityScore: 0.4}, Sentiment: Sentiment{Positive: 1, Compound: 0.5}, Quality: WritingQuality{GrammarScore: 0.5}},
	})
	if got.PlagiarismScore != 0.3 {
		t.Errorf("plagiarism = %v", got.PlagiarismScore)
	}
	if got.SentimentAnalysis.Compound != 0.25 || got.SentimentAnalysis.Neutral != 0.5 {
		t.Errorf("sentiment = %+v", got.SentimentAnalysis)
	}
	if got.WritingQuality.GrammarScore != 0.75 {
		t.Errorf("quality = %+v", got.WritingQuality)
	}
}

func TestAnalyzerCorpus(t *testing.T) {
	a := NewAnalyzer()
	a.AddReference("  ")
	a.AddReference("reference essay about glucose")
	a.AddReference("reference essay about glucose")
	if got := a.Corpus(); len(got) != 1 {
		t.Fatalf("corpus = %v", got)
	}

	res, err := a.CheckPlagiarism("reference essay about glucose", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.RiskLevel != RiskHigh {
		t.Errorf("corpus fallback not used: %+v", res)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
