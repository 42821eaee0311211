package nlp

import (
	"math"
	"strings"
)

// Sentiment holds polarity proportions and a normalized compound score in [-1, 1].
type Sentiment struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
	Compound float64 `json:"compound"`
}

// NeutralSentiment is the result for empty text and the degraded default.
func NeutralSentiment() Sentiment {
	return Sentiment{Neutral: 1}
}

const (
	negationScalar = -0.74
	boosterIncr    = 0.293
	compoundAlpha  = 15.0
)

// valence is a compact polarity lexicon on a -4..4 scale.
var valence = map[string]float64{
	"good": 1.9, "great": 3.1, "excellent": 2.7, "amazing": 2.8, "wonderful": 2.7,
	"best": 3.2, "better": 1.9, "love": 3.2, "like": 1.5, "enjoy": 2.2, "happy": 2.7,
	"glad": 2.0, "helpful": 1.9, "clear": 1.6, "easy": 1.9, "interesting": 1.7,
	"important": 0.8, "success": 2.7, "successful": 2.8, "benefit": 2.0, "beneficial": 1.9,
	"positive": 2.6, "effective": 2.1, "improve": 1.9, "improved": 2.1, "strong": 2.3,
	"agree": 1.5, "correct": 1.7, "fair": 1.3, "hope": 1.9, "nice": 1.8, "perfect": 2.7,
	"fun": 2.3, "support": 1.7, "safe": 1.9, "win": 2.8, "valuable": 2.1, "useful": 1.9,
	"confident": 2.2, "excited": 2.2, "thank": 1.5, "thanks": 1.9, "well": 1.1,
	"bad": -2.5, "worse": -2.1, "worst": -3.1, "terrible": -2.1, "awful": -2.0,
	"horrible": -2.5, "hate": -2.7, "dislike": -1.6, "sad": -2.1, "angry": -2.3,
	"poor": -2.1, "wrong": -2.1, "difficult": -1.5, "hard": -0.4, "confusing": -1.3,
	"confused": -1.3, "problem": -1.7, "problems": -1.7, "fail": -2.5, "failed": -2.3,
	"failure": -2.3, "negative": -2.7, "harm": -2.5, "harmful": -2.6, "danger": -2.4,
	"dangerous": -2.1, "risk": -1.1, "weak": -1.9, "boring": -1.3, "unfair": -2.1,
	"disagree": -1.6, "worry": -1.9, "fear": -2.2, "pain": -2.3, "loss": -1.3,
	"lose": -1.7, "crisis": -3.1, "conflict": -1.3, "stress": -1.8, "useless": -1.8,
}

var negations = toSet([]string{
	"not", "no", "never", "none", "nobody", "nothing", "neither", "nor", "nowhere",
	"cannot", "without", "isn't", "aren't", "wasn't", "weren't", "don't", "doesn't",
	"didn't", "won't", "wouldn't", "shouldn't", "couldn't", "can't", "hardly",
})

var boosters = map[string]float64{
	"very": boosterIncr, "extremely": boosterIncr, "really": boosterIncr,
	"incredibly": boosterIncr, "highly": boosterIncr, "so": boosterIncr,
	"absolutely": boosterIncr, "completely": boosterIncr, "totally": boosterIncr,
	"slightly": -boosterIncr, "somewhat": -boosterIncr, "barely": -boosterIncr,
	"kind": -boosterIncr, "little": -boosterIncr,
}

// AnalyzeSentiment scores text with the polarity lexicon. A lexicon word is negated by
// a negation in the three preceding tokens and intensified by a booster right before it.
func AnalyzeSentiment(text string) Sentiment {
	tokens := lexiconWords(strings.ToLower(text))
	if len(tokens) == 0 {
		return NeutralSentiment()
	}

	scores := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, ok := valence[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if b, ok := boosters[tokens[i-1]]; ok {
				if v > 0 {
					v += b
				} else {
					v -= b
				}
			}
		}
		for j := max(0, i-3); j < i; j++ {
			if _, ok := negations[tokens[j]]; ok {
				v *= negationScalar
				break
			}
		}
		scores[i] = v
	}

	var sum, posSum, negSum float64
	neutral := 0
	for _, s := range scores {
		sum += s
		switch {
		case s > 0:
			posSum += s + 1
		case s < 0:
			negSum += s - 1
		default:
			neutral++
		}
	}

	total := posSum + math.Abs(negSum) + float64(neutral)
	if total == 0 {
		return NeutralSentiment()
	}

	compound := sum / math.Sqrt(sum*sum+compoundAlpha)
	return Sentiment{
		Positive: round(math.Abs(posSum/total), 3),
		Neutral:  round(float64(neutral)/total, 3),
		Negative: round(math.Abs(negSum/total), 3),
		Compound: round(clamp(compound, -1, 1), 4),
	}
}
