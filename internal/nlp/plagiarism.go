package nlp

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Plagiarism thresholds.
const (
	HighRiskThreshold   = 0.8
	MediumRiskThreshold = 0.5
	MatchThreshold      = 0.3
	snippetLength       = 100
	maxFeatures         = 1000
)

// Risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// ErrEmptyVocabulary is returned when no document contains a usable term.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain only stop words")

// PlagiarismMatch is a reference text whose similarity exceeds MatchThreshold.
type PlagiarismMatch struct {
	ReferenceIndex int     `json:"reference_index"`
	Similarity     float64 `json:"similarity"`
	Snippet        string  `json:"snippet"`
}

// PlagiarismResult is the outcome of CheckPlagiarism.
type PlagiarismResult struct {
	SimilarityScore float64           `json:"similarity_score"`
	Matches         []PlagiarismMatch `json:"matches"`
	RiskLevel       string            `json:"risk_level"`
}

// NoPlagiarism is the result for empty input and the degraded default.
func NoPlagiarism() PlagiarismResult {
	return PlagiarismResult{Matches: []PlagiarismMatch{}, RiskLevel: RiskLow}
}

// CheckPlagiarism compares text against references with TF-IDF (unigrams and bigrams)
// cosine similarity.
func CheckPlagiarism(text string, references []string) (PlagiarismResult, error) {
	if text == "" || len(references) == 0 {
		return NoPlagiarism(), nil
	}

	docs := make([]string, 0, len(references)+1)
	docs = append(docs, text)
	docs = append(docs, references...)

	vectors, err := tfidf(docs)
	if err != nil {
		return NoPlagiarism(), err
	}

	result := NoPlagiarism()
	for i := range references {
		sim := cosine(vectors[0], vectors[i+1])
		if sim > result.SimilarityScore {
			result.SimilarityScore = sim
		}
		if sim > MatchThreshold {
			result.Matches = append(result.Matches, PlagiarismMatch{
				ReferenceIndex: i,
				Similarity:     sim,
				Snippet:        snippet(references[i]),
			})
		}
	}

	switch {
	case result.SimilarityScore > HighRiskThreshold:
		result.RiskLevel = RiskHigh
	case result.SimilarityScore > MediumRiskThreshold:
		result.RiskLevel = RiskMedium
	}
	return result, nil
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > snippetLength {
		return string(r[:snippetLength]) + "..."
	}
	return s
}

// analyzeTerms tokenizes like a word-level vectorizer: lowercase, tokens of two or more
// word characters, stop words removed, then unigrams followed by bigrams.
func analyzeTerms(doc string) []string {
	raw := strings.FieldsFunc(strings.ToLower(doc), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	tokens := raw[:0]
	for _, t := range raw {
		if _, stop := vectorizerStopWords[t]; len([]rune(t)) >= 2 && !stop {
			tokens = append(tokens, t)
		}
	}

	terms := make([]string, 0, len(tokens)*2)
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}

// vectorizerStopWords is the stop list of the TF-IDF analyzer. It is broader than the
// keyword list in text.go and includes words such as "system" and "detail".
var vectorizerStopWords = toSet([]string{
	"a", "about", "above", "across", "after", "afterwards", "again", "against", "all",
	"almost", "alone", "along", "already", "also", "although", "always", "am", "among",
	"amongst", "amoungst", "amount", "an", "and", "another", "any", "anyhow", "anyone",
	"anything", "anyway", "anywhere", "are", "around", "as", "at", "back", "be", "became",
	"because", "become", "becomes", "becoming", "been", "before", "beforehand", "behind",
	"being", "below", "beside", "besides", "between", "beyond", "bill", "both", "bottom",
	"but", "by", "call", "can", "cannot", "cant", "co", "con", "could", "couldnt", "cry",
	"de", "describe", "detail", "do", "done", "down", "due", "during", "each", "eg",
	"eight", "either", "eleven", "else", "elsewhere", "empty", "enough", "etc", "even",
	"ever", "every", "everyone", "everything", "everywhere", "except", "few", "fifteen",
	"fifty", "fill", "find", "fire", "first", "five", "for", "former", "formerly", "forty",
	"found", "four", "from", "front", "full", "further", "get", "give", "go", "had", "has",
	"hasnt", "have", "he", "hence", "her", "here", "hereafter", "hereby", "herein",
	"hereupon", "hers", "herself", "him", "himself", "his", "how", "however", "hundred",
	"i", "ie", "if", "in", "inc", "indeed", "interest", "into", "is", "it", "its",
	"itself", "keep", "last", "latter", "latterly", "least", "less", "ltd", "made", "many",
	"may", "me", "meanwhile", "might", "mill", "mine", "more", "moreover", "most",
	"mostly", "move", "much", "must", "my", "myself", "name", "namely", "neither", "never",
	"nevertheless", "next", "nine", "no", "nobody", "none", "noone", "nor", "not",
	"nothing", "now", "nowhere", "of", "off", "often", "on", "once", "one", "only", "onto",
	"or", "other", "others", "otherwise", "our", "ours", "ourselves", "out", "over", "own",
	"part", "per", "perhaps", "please", "put", "rather", "re", "same", "see", "seem",
	"seemed", "seeming", "seems", "serious", "several", "she", "should", "show", "side",
	"since", "sincere", "six", "sixty", "so", "some", "somehow", "someone", "something",
	"sometime", "sometimes", "somewhere", "still", "such", "system", "take", "ten", "than",
	"that", "the", "their", "them", "themselves", "then", "thence", "there", "thereafter",
	"thereby", "therefore", "therein", "thereupon", "these", "they", "thick", "thin",
	"third", "this", "those", "though", "three", "through", "throughout", "thru", "thus",
	"to", "together", "too", "top", "toward", "towards", "twelve", "twenty", "two", "un",
	"under", "until", "up", "upon", "us", "very", "via", "was", "we", "well", "were",
	"what", "whatever", "when", "whence", "whenever", "where", "whereafter", "whereas",
	"whereby", "wherein", "whereupon", "wherever", "whether", "which", "while", "whither",
	"who", "whoever", "whole", "whom", "whose", "why", "will", "with", "within", "without",
	"would", "yet", "you", "your", "yours", "yourself", "yourselves",
})

type sparseVec map[string]float64

// tfidf builds l2-normalized vectors with smoothed idf: ln((1+n)/(1+df)) + 1.
func tfidf(docs []string) ([]sparseVec, error) {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	corpusFreq := make(map[string]int)

	for i, d := range docs {
		tc := make(map[string]int)
		for _, term := range analyzeTerms(d) {
			tc[term]++
			corpusFreq[term]++
		}
		for term := range tc {
			df[term]++
		}
		counts[i] = tc
	}

	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := limitVocabulary(corpusFreq, maxFeatures)

	n := float64(len(docs))
	vectors := make([]sparseVec, len(docs))
	for i, tc := range counts {
		vec := make(sparseVec, len(tc))
		var norm float64
		for term, c := range tc {
			if _, ok := vocab[term]; !ok {
				continue
			}
			idf := math.Log((1+n)/(1+float64(df[term]))) + 1
			w := float64(c) * idf
			vec[term] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for term := range vec {
				vec[term] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// limitVocabulary keeps the limit most frequent terms across the corpus.
func limitVocabulary(freq map[string]int, limit int) map[string]struct{} {
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	if len(terms) > limit {
		sort.Slice(terms, func(i, j int) bool {
			if freq[terms[i]] != freq[terms[j]] {
				return freq[terms[i]] > freq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:limit]
	}
	return toSet(terms)
}

func cosine(a, b sparseVec) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for term, w := range a {
		dot += w * b[term]
	}
	// Vectors are unit length; clamp rounding noise.
	return clamp(dot, 0, 1)
}
