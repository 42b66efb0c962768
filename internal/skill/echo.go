package skill

import (
	"context"

	"go.uber.org/zap"
)

// EchoSkill returns the prompt verbatim. Used as a liveness probe for the
// dispatch pipeline.
type EchoSkill struct {
	logger *zap.Logger
}

// NewEchoSkill creates the echo skill.
func NewEchoSkill(logger *zap.Logger) *EchoSkill {
	return &EchoSkill{logger: logger}
}

func (s *EchoSkill) Name() string { return "echo" }

func (s *EchoSkill) Execute(ctx context.Context, in *Input) (*Response, error) {
	s.logger.Debug("echo skill executing", zap.String("prompt", in.Prompt))
	return OK(map[string]interface{}{
		"echoed_message": in.Prompt,
		"message":        "Prompt was successfully echoed.",
	}), nil
}

func (s *EchoSkill) Capabilities() Capability {
	return Capability{
		SkillName:   "echo",
		Description: "A simple skill that echoes back the provided prompt.",
		Operations: map[string]Operation{
			"echo_operation": {
				Description: "Returns the input prompt verbatim.",
				Parameters: map[string]interface{}{
					"prompt": map[string]interface{}{"type": "string", "description": "The text to be echoed."},
				},
				Example: map[string]interface{}{"task_type": "echo", "prompt": "Hello Praximous!"},
			},
		},
	}
}
