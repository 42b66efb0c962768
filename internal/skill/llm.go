package skill

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/nidhogg/praximous/internal/router"
)

// ModelRouter is the routing capability handed to model-backed skills.
// *router.Router satisfies it; tests substitute a stub.
type ModelRouter interface {
	Route(ctx context.Context, req *router.Request) (*router.Result, error)
}

// LLMSkill forwards the prompt to the provider pool through the failover
// router. It is the generic model-backed task type; specialized skills
// wrap the same capability with their own prompting.
type LLMSkill struct {
	router ModelRouter
	logger *zap.Logger
}

// NewLLMSkill creates the default_llm skill.
func NewLLMSkill(mr ModelRouter, logger *zap.Logger) *LLMSkill {
	return &LLMSkill{router: mr, logger: logger}
}

func (s *LLMSkill) Name() string { return "default_llm" }

func (s *LLMSkill) Execute(ctx context.Context, in *Input) (*Response, error) {
	if in.Prompt == "" {
		return Fail(ErrKindValidation, "A non-empty prompt is required."), nil
	}

	res, err := s.router.Route(ctx, &router.Request{
		TaskType: in.TaskType,
		Prompt:   in.Prompt,
		Provider: in.Provider,
		Params:   tuningParams(in.Params),
	})
	if err != nil {
		// Routing exhaustion propagates to the dispatcher for
		// classification and auditing.
		return nil, err
	}

	resp := OK(res.Data)
	resp.Provider = res.ProviderUsed
	return resp, nil
}

// tuningParams flattens request-level model parameters (temperature,
// max_tokens and the like) into the string form the provider clients
// consume. Non-scalar values are dropped.
func tuningParams(params map[string]interface{}) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			out[k] = strconv.Itoa(t)
		case bool:
			out[k] = strconv.FormatBool(t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *LLMSkill) Capabilities() Capability {
	return Capability{
		SkillName:   "default_llm",
		Description: "Routes the prompt to the highest-priority available AI provider with automatic failover.",
		Operations: map[string]Operation{
			"generate": {
				Description: "Sends the prompt to a language model and returns the generated text.",
				Parameters: map[string]interface{}{
					"prompt":        map[string]interface{}{"type": "string", "description": "The prompt to send to the model."},
					"provider_name": map[string]interface{}{"type": "string", "description": "Optional explicit provider override."},
					"temperature":   map[string]interface{}{"type": "number", "description": "Optional sampling temperature forwarded to the provider."},
					"max_tokens":    map[string]interface{}{"type": "integer", "description": "Optional response token cap forwarded to the provider."},
				},
				Example: map[string]interface{}{
					"task_type": "default_llm",
					"prompt":    "Summarize the on-premise AI gateway pattern in one sentence.",
				},
			},
		},
	}
}
