// Package nlp implements the statistical text heuristics used for question analysis,
// essay scoring and answer similarity. Every function is deterministic and safe for
// concurrent use.
package nlp

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultKeywordCount is the number of keywords returned by ExtractKeywords callers
// that do not need a custom limit.
const DefaultKeywordCount = 10

// stopWords is the English stopword list applied to keywords.
var stopWords = toSet([]string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "you're",
	"you've", "you'll", "you'd", "your", "yours", "yourself", "yourselves", "he", "him",
	"his", "himself", "she", "she's", "her", "hers", "herself", "it", "it's", "its",
	"itself", "they", "them", "their", "theirs", "themselves", "what", "which", "who",
	"whom", "this", "that", "that'll", "these", "those", "am", "is", "are", "was", "were",
	"be", "been", "being", "have", "has", "had", "having", "do", "does", "did", "doing",
	"a", "an", "the", "and", "but", "if", "or", "because", "as", "until", "while", "of",
	"at", "by", "for", "with", "about", "against", "between", "into", "through", "during",
	"before", "after", "above", "below", "to", "from", "up", "down", "in", "out", "on",
	"off", "over", "under", "again", "further", "then", "once", "here", "there", "when",
	"where", "why", "how", "all", "any", "both", "each", "few", "more", "most", "other",
	"some", "such", "no", "nor", "not", "only", "own", "same", "so", "than", "too",
	"very", "s", "t", "can", "will", "just", "don", "don't", "should", "should've", "now",
	"d", "ll", "m", "o", "re", "ve", "y", "ain", "aren", "aren't", "couldn", "couldn't",
	"didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn", "hasn't", "haven",
	"haven't", "isn", "isn't", "ma", "mightn", "mightn't", "mustn", "mustn't", "needn",
	"needn't", "shan", "shan't", "shouldn", "shouldn't", "wasn", "wasn't", "weren",
	"weren't", "won", "won't", "wouldn", "wouldn't",
})

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopWord reports whether w (lowercase) is an English stopword.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// CleanText lowercases text, replaces every character that is neither a word character
// nor whitespace with a space, and collapses whitespace runs.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(norm.NFKC.String(text))

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// WordCount counts whitespace separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ExtractKeywords returns up to max of the most frequent non-stopword terms longer
// than two characters. Ties keep first-occurrence order.
func ExtractKeywords(text string, max int) []string {
	if text == "" || max <= 0 {
		return []string{}
	}

	type termCount struct {
		term  string
		count int
		first int
	}

	counts := make(map[string]*termCount)
	for i, tok := range strings.Fields(CleanText(text)) {
		if len([]rune(tok)) <= 2 || IsStopWord(tok) {
			continue
		}
		if tc, ok := counts[tok]; ok {
			tc.count++
			continue
		}
		counts[tok] = &termCount{term: tok, count: 1, first: i}
	}

	ordered := make([]*termCount, 0, len(counts))
	for _, tc := range counts {
		ordered = append(ordered, tc)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].first < ordered[j].first
	})

	if len(ordered) > max {
		ordered = ordered[:max]
	}
	keywords := make([]string, len(ordered))
	for i, tc := range ordered {
		keywords[i] = tc.term
	}
	return keywords
}

// SplitSentences splits text on terminal punctuation (. ! ?) and drops segments that
// contain no word characters.
func SplitSentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if hasWordRune(s) {
			sentences = append(sentences, s)
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Terminal punctuation ends a sentence when followed by space or end of text.
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()
	return sentences
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// lexiconWords returns tokens that carry at least one letter or digit, with
// surrounding punctuation removed.
func lexiconWords(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// CountSyllables estimates English syllables by counting vowel groups, discounting a
// silent trailing "e".
func CountSyllables(word string) int {
	w := strings.ToLower(word)
	if w == "" {
		return 0
	}

	count := 0
	prevVowel := false
	for _, r := range w {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
