package skill

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DateTimeSkill provides current-time lookup and datetime formatting with
// IANA timezone support.
type DateTimeSkill struct {
	logger *zap.Logger
}

// NewDateTimeSkill creates the datetime_tool skill.
func NewDateTimeSkill(logger *zap.Logger) *DateTimeSkill {
	return &DateTimeSkill{logger: logger}
}

func (s *DateTimeSkill) Name() string { return "datetime_tool" }

func (s *DateTimeSkill) Execute(ctx context.Context, in *Input) (*Response, error) {
	operation := in.Operation
	if operation == "" {
		operation = in.StringParam("operation", "get_current_datetime")
	}

	switch operation {
	case "get_current_datetime":
		return s.currentDatetime(in), nil
	case "format_datetime":
		return s.formatDatetime(in), nil
	default:
		return Fail(ErrKindValidation, fmt.Sprintf("Operation %q is not supported.", operation)), nil
	}
}

func (s *DateTimeSkill) currentDatetime(in *Input) *Response {
	tzName := in.StringParam("timezone", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Fail(ErrKindValidation, fmt.Sprintf("Timezone %q is not recognized.", tzName))
	}
	now := time.Now().In(loc)
	return OK(map[string]interface{}{
		"datetime_iso": now.Format(time.RFC3339),
		"timezone":     tzName,
		"message":      fmt.Sprintf("Current datetime in %s.", tzName),
	})
}

func (s *DateTimeSkill) formatDatetime(in *Input) *Response {
	datetimeStr := in.StringParam("datetime_str", "")
	if datetimeStr == "" {
		return Fail(ErrKindValidation, "'datetime_str' is required for formatting.")
	}
	layout := in.StringParam("format_layout", "2006-01-02 15:04:05 MST")
	tzName := in.StringParam("input_timezone", "UTC")

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Fail(ErrKindValidation, fmt.Sprintf("Timezone %q is not recognized.", tzName))
	}

	t, err := time.Parse(time.RFC3339, datetimeStr)
	if err != nil {
		return Fail(ErrKindValidation, fmt.Sprintf("Cannot parse %q as RFC 3339 datetime.", datetimeStr))
	}

	return OK(map[string]interface{}{
		"original_datetime":  datetimeStr,
		"format_layout":      layout,
		"formatted_datetime": t.In(loc).Format(layout),
		"timezone_applied":   tzName,
	})
}

func (s *DateTimeSkill) Capabilities() Capability {
	return Capability{
		SkillName:   "datetime_tool",
		Description: "Provides date and time related functionalities.",
		Operations: map[string]Operation{
			"get_current_datetime": {
				Description: "Gets the current date and time, optionally in a specified timezone.",
				Parameters: map[string]interface{}{
					"prompt":   map[string]interface{}{"type": "string", "description": "Optional descriptive text."},
					"timezone": map[string]interface{}{"type": "string", "default": "UTC", "description": "IANA timezone name (e.g., 'America/New_York', 'UTC')."},
				},
				Example: map[string]interface{}{"task_type": "datetime_tool", "operation": "get_current_datetime", "timezone": "Europe/London"},
			},
			"format_datetime": {
				Description: "Formats a given RFC 3339 datetime string into a specified layout.",
				Parameters: map[string]interface{}{
					"prompt":         map[string]interface{}{"type": "string", "description": "Optional descriptive text."},
					"datetime_str":   map[string]interface{}{"type": "string", "description": "RFC 3339 datetime string to format (e.g., '2023-10-26T10:00:00Z')."},
					"format_layout":  map[string]interface{}{"type": "string", "default": "2006-01-02 15:04:05 MST", "description": "Go reference-time layout string."},
					"input_timezone": map[string]interface{}{"type": "string", "default": "UTC", "description": "Timezone to render the datetime in."},
				},
				Example: map[string]interface{}{
					"task_type":     "datetime_tool",
					"operation":     "format_datetime",
					"datetime_str":  "2024-01-15T14:30:00+02:00",
					"format_layout": "Monday, January 02, 2006 03:04 PM MST",
				},
			},
		},
	}
}
