package skill

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// TextSkill performs basic text transformations on the prompt.
type TextSkill struct {
	logger *zap.Logger
}

// NewTextSkill creates the text_manipulation skill.
func NewTextSkill(logger *zap.Logger) *TextSkill {
	return &TextSkill{logger: logger}
}

func (s *TextSkill) Name() string { return "text_manipulation" }

func (s *TextSkill) Execute(ctx context.Context, in *Input) (*Response, error) {
	operation := in.Operation
	if operation == "" {
		operation = in.StringParam("operation", "none")
	}

	original := in.Prompt
	var modified string
	switch operation {
	case "uppercase":
		modified = strings.ToUpper(original)
	case "lowercase":
		modified = strings.ToLower(original)
	case "reverse":
		runes := []rune(original)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		modified = string(runes)
	default:
		return Fail(ErrKindValidation, "Supported operations are: uppercase, lowercase, reverse."), nil
	}

	return OK(map[string]interface{}{
		"original_text":       original,
		"operation_performed": operation,
		"modified_text":       modified,
	}), nil
}

func (s *TextSkill) Capabilities() Capability {
	return Capability{
		SkillName:   "text_manipulation",
		Description: "Performs various text manipulation operations like uppercase, lowercase, or reverse.",
		Operations: map[string]Operation{
			"manipulate": {
				Description: "Applies a specified manipulation to the input text.",
				Parameters: map[string]interface{}{
					"prompt":    map[string]interface{}{"type": "string", "description": "The text to be manipulated."},
					"operation": map[string]interface{}{"type": "string", "enum": []string{"uppercase", "lowercase", "reverse"}, "description": "The manipulation to perform."},
				},
				Example: map[string]interface{}{
					"task_type": "text_manipulation",
					"prompt":    "Sample Text",
					"operation": "uppercase",
				},
			},
		},
	}
}
