package skill

import "context"

// ErrKindValidation is the error kind skills report when they reject
// their input parameters. The dispatcher passes it through verbatim.
const ErrKindValidation = "ValidationError"

// Skill is a named, pluggable unit of task logic. The registry keys skills
// by Name, which doubles as the task_type in inbound requests. Skills that
// need a model call receive the failover router at construction and never
// talk to a provider directly.
type Skill interface {
	Name() string
	Execute(ctx context.Context, in *Input) (*Response, error)
	Capabilities() Capability
}

// Input is the per-request payload handed to a skill.
type Input struct {
	TaskType  string
	Operation string
	Prompt    string
	Provider  string // explicit provider override, empty for default routing
	Params    map[string]interface{}
}

// Response is the uniform result envelope every skill must produce.
// Either Success is true and Data is set, or Success is false and
// Error/Details describe the failure.
type Response struct {
	Success  bool                   `json:"success"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Details  string                 `json:"details,omitempty"`
	Provider string                 `json:"provider_used,omitempty"`
}

// OK builds a successful response envelope.
func OK(data map[string]interface{}) *Response {
	return &Response{Success: true, Data: data}
}

// Fail builds a failure envelope with an error kind and details.
func Fail(kind, details string) *Response {
	return &Response{Success: false, Error: kind, Details: details}
}

// Capability describes a skill's operations for discovery endpoints.
type Capability struct {
	SkillName   string               `json:"skill_name"`
	Description string               `json:"description"`
	Operations  map[string]Operation `json:"operations"`
}

// Operation documents one supported operation of a skill.
type Operation struct {
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters_schema"`
	Example     map[string]interface{} `json:"example_request_payload"`
}

// StringParam reads a string parameter with a fallback default.
func (in *Input) StringParam(key, def string) string {
	if v, ok := in.Params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// IntParam reads an integer parameter, tolerating JSON float64 decoding.
func (in *Input) IntParam(key string, def int) int {
	v, ok := in.Params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return def
}

// FloatParam reads a numeric parameter. The second return reports whether
// the key was present and numeric.
func (in *Input) FloatParam(key string) (float64, bool) {
	v, ok := in.Params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
