package skill

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"
)

// sentimentLexicon maps words to valence scores in the VADER convention:
// roughly -4 (extremely negative) to +4 (extremely positive).
var sentimentLexicon = map[string]float64{
	"good": 1.9, "great": 3.1, "excellent": 3.2, "amazing": 2.8,
	"awesome": 3.1, "wonderful": 2.7, "fantastic": 2.6, "love": 3.2,
	"loved": 2.9, "like": 1.5, "best": 3.2, "better": 1.9, "happy": 2.7,
	"helpful": 1.8, "useful": 1.9, "perfect": 2.7, "nice": 1.8,
	"beautiful": 2.9, "brilliant": 2.8, "enjoy": 2.2, "impressive": 2.3,
	"reliable": 1.7, "fast": 1.1, "easy": 1.5, "win": 2.8, "success": 2.7,

	"bad": -2.5, "terrible": -2.1, "awful": -2.0, "horrible": -2.5,
	"worst": -3.1, "worse": -2.1, "hate": -2.7, "hated": -2.9,
	"poor": -1.9, "broken": -1.6, "useless": -1.8, "slow": -1.2,
	"fail": -2.5, "failed": -2.3, "failure": -2.4, "wrong": -2.1,
	"disappointing": -2.2, "disappointed": -2.3, "annoying": -1.9,
	"buggy": -1.8, "ugly": -2.3, "sad": -2.1, "angry": -2.3,
	"problem": -1.4, "difficult": -1.5, "confusing": -1.6,
}

// sentimentBoosters scale the valence of the word that follows.
var sentimentBoosters = map[string]float64{
	"very": 0.293, "really": 0.293, "extremely": 0.293, "incredibly": 0.293,
	"absolutely": 0.293, "so": 0.293, "too": 0.293,
	"slightly": -0.293, "somewhat": -0.293, "barely": -0.293, "hardly": -0.293,
}

// sentimentNegations flip the valence of nearby sentiment words.
var sentimentNegations = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nor": true,
	"isnt": true, "wasnt": true, "dont": true, "doesnt": true, "didnt": true,
	"cant": true, "cannot": true, "wont": true, "without": true,
}

// SentimentSkill scores text with a compact valence lexicon in the VADER
// shape: per-class proportions plus a normalized compound score.
type SentimentSkill struct {
	logger *zap.Logger
}

// NewSentimentSkill creates the sentiment_analyzer skill.
func NewSentimentSkill(logger *zap.Logger) *SentimentSkill {
	return &SentimentSkill{logger: logger}
}

func (s *SentimentSkill) Name() string { return "sentiment_analyzer" }

func (s *SentimentSkill) Execute(ctx context.Context, in *Input) (*Response, error) {
	operation := in.Operation
	if operation == "" {
		operation = in.StringParam("operation", "analyze_sentiment")
	}
	if operation != "analyze_sentiment" {
		return Fail(ErrKindValidation, "Supported operation is: analyze_sentiment."), nil
	}

	text := in.StringParam("text", in.Prompt)
	if strings.TrimSpace(text) == "" {
		return Fail(ErrKindValidation, "Text for sentiment analysis cannot be empty."), nil
	}

	scores := scoreSentiment(text)
	overall := "neutral"
	switch {
	case scores["compound"] >= 0.05:
		overall = "positive"
	case scores["compound"] <= -0.05:
		overall = "negative"
	}

	return OK(map[string]interface{}{
		"text":              text,
		"scores":            scores,
		"overall_sentiment": overall,
	}), nil
}

// scoreSentiment walks the tokens applying booster and negation context,
// then normalizes the summed valence into a [-1, 1] compound score.
func scoreSentiment(text string) map[string]float64 {
	tokens := sentimentTokens(text)

	var valences []float64
	for i, tok := range tokens {
		v, sentiment := sentimentLexicon[tok]
		if !sentiment {
			valences = append(valences, 0)
			continue
		}
		if i > 0 {
			if boost, ok := sentimentBoosters[tokens[i-1]]; ok {
				if v > 0 {
					v += boost
				} else {
					v -= boost
				}
			}
		}
		// A negation within the three preceding tokens flips the word.
		for j := i - 1; j >= 0 && j >= i-3; j-- {
			if sentimentNegations[tokens[j]] {
				v *= -0.74
				break
			}
		}
		valences = append(valences, v)
	}

	var sum, pos, neg float64
	var neu int
	for _, v := range valences {
		sum += v
		switch {
		case v > 0:
			pos += v + 1
		case v < 0:
			neg += -v + 1
		default:
			neu++
		}
	}

	total := pos + neg + float64(neu)
	scores := map[string]float64{"pos": 0, "neg": 0, "neu": 0, "compound": 0}
	if total > 0 {
		scores["pos"] = round3(pos / total)
		scores["neg"] = round3(neg / total)
		scores["neu"] = round3(float64(neu) / total)
	}
	scores["compound"] = round3(sum / math.Sqrt(sum*sum+15))
	return scores
}

func sentimentTokens(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == '\'':
			// "isn't" tokenizes as "isnt" to match the negation table.
			return -1
		default:
			return ' '
		}
	}, text)
	return strings.Fields(cleaned)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func (s *SentimentSkill) Capabilities() Capability {
	return Capability{
		SkillName:   "sentiment_analyzer",
		Description: "Analyzes the sentiment of a given text using a valence lexicon.",
		Operations: map[string]Operation{
			"analyze_sentiment": {
				Description: "Calculates sentiment scores (positive, negative, neutral, compound) for the input text.",
				Parameters: map[string]interface{}{
					"text": map[string]interface{}{"type": "string", "description": "The text to analyze. Can also be passed via 'prompt'."},
				},
				Example: map[string]interface{}{
					"task_type": "sentiment_analyzer",
					"operation": "analyze_sentiment",
					"text":      "Praximous is a wonderfully useful tool!",
				},
			},
		},
	}
}
