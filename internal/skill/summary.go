package skill

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var sentenceSplitRe = regexp.MustCompile(`(?:\.|\?|!)\s+`)

// SummarySkill generates a simple extractive summary of the prompt.
// It runs entirely locally; the default_llm task type covers model-backed
// summarization.
type SummarySkill struct {
	logger *zap.Logger
}

// NewSummarySkill creates the internal_summary skill.
func NewSummarySkill(logger *zap.Logger) *SummarySkill {
	return &SummarySkill{logger: logger}
}

func (s *SummarySkill) Name() string { return "internal_summary" }

func (s *SummarySkill) Execute(ctx context.Context, in *Input) (*Response, error) {
	text := strings.TrimSpace(in.Prompt)
	if text == "" {
		return Fail(ErrKindValidation, "Prompt text cannot be empty for summarization."), nil
	}

	summaryType := in.StringParam("summary_type", "first_sentences")
	maxSentences := in.IntParam("max_sentences", 2)
	maxWords := in.IntParam("max_words", 50)

	var summary string
	switch summaryType {
	case "first_sentences":
		summary = firstSentences(text, maxSentences)
	case "first_words":
		words := strings.Fields(text)
		if len(words) > maxWords {
			summary = strings.Join(words[:maxWords], " ") + "..."
		} else {
			summary = strings.Join(words, " ")
		}
	default:
		return Fail(ErrKindValidation, "Supported summary_types are: first_sentences, first_words."), nil
	}

	return OK(map[string]interface{}{
		"original_text_length": len(text),
		"summary_type_used":    summaryType,
		"summary":              summary,
		"message":              "Summary generated successfully.",
	}), nil
}

// firstSentences keeps the first n sentences including their terminal
// punctuation.
func firstSentences(text string, n int) string {
	if n <= 0 {
		return ""
	}
	ends := sentenceSplitRe.FindAllStringIndex(text, -1)
	if len(ends) < n {
		return text
	}
	// End of the nth sentence is the start of the nth separator match +1
	// to keep the punctuation mark.
	cut := ends[n-1][0] + 1
	return strings.TrimSpace(text[:cut])
}

func (s *SummarySkill) Capabilities() Capability {
	return Capability{
		SkillName:   "internal_summary",
		Description: "Generates a simple summary of the provided text using basic heuristics.",
		Operations: map[string]Operation{
			"generate_summary": {
				Description: "Creates a summary by extracting first sentences or words.",
				Parameters: map[string]interface{}{
					"prompt":        map[string]interface{}{"type": "string", "description": "The text to be summarized."},
					"summary_type":  map[string]interface{}{"type": "string", "enum": []string{"first_sentences", "first_words"}, "default": "first_sentences", "description": "Method for summarization."},
					"max_sentences": map[string]interface{}{"type": "integer", "default": 2, "description": "Number of sentences for 'first_sentences' summary."},
					"max_words":     map[string]interface{}{"type": "integer", "default": 50, "description": "Number of words for 'first_words' summary."},
				},
				Example: map[string]interface{}{
					"task_type":     "internal_summary",
					"prompt":        "This is a long piece of text that needs to be summarized. It has multiple sentences.",
					"summary_type":  "first_sentences",
					"max_sentences": 1,
				},
			},
		},
	}
}
