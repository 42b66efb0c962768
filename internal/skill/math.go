package skill

import (
	"context"

	"go.uber.org/zap"
)

// MathSkill performs simple arithmetic on two numbers.
type MathSkill struct {
	logger *zap.Logger
}

// NewMathSkill creates the simple_math skill.
func NewMathSkill(logger *zap.Logger) *MathSkill {
	return &MathSkill{logger: logger}
}

func (s *MathSkill) Name() string { return "simple_math" }

func (s *MathSkill) Execute(ctx context.Context, in *Input) (*Response, error) {
	num1, ok1 := in.FloatParam("num1")
	num2, ok2 := in.FloatParam("num2")
	if !ok1 || !ok2 {
		return Fail(ErrKindValidation, "Both 'num1' and 'num2' must be provided as numbers."), nil
	}

	operation := in.Operation
	if operation == "" {
		operation = in.StringParam("operation", "add")
	}

	var result float64
	switch operation {
	case "add":
		result = num1 + num2
	case "subtract":
		result = num1 - num2
	case "multiply":
		result = num1 * num2
	case "divide":
		if num2 == 0 {
			return Fail(ErrKindValidation, "Cannot divide by zero."), nil
		}
		result = num1 / num2
	default:
		return Fail(ErrKindValidation, "Supported operations: add, subtract, multiply, divide."), nil
	}

	return OK(map[string]interface{}{
		"num1":      num1,
		"num2":      num2,
		"operation": operation,
		"result":    result,
		"message":   in.Prompt,
	}), nil
}

func (s *MathSkill) Capabilities() Capability {
	return Capability{
		SkillName:   "simple_math",
		Description: "Performs simple arithmetic operations (add, subtract, multiply, divide) on two numbers.",
		Operations: map[string]Operation{
			"calculate": {
				Description: "Applies a specified arithmetic operation to two numbers.",
				Parameters: map[string]interface{}{
					"prompt":    map[string]interface{}{"type": "string", "description": "Optional descriptive text for the operation."},
					"num1":      map[string]interface{}{"type": "number", "description": "The first number."},
					"num2":      map[string]interface{}{"type": "number", "description": "The second number."},
					"operation": map[string]interface{}{"type": "string", "enum": []string{"add", "subtract", "multiply", "divide"}, "description": "The arithmetic operation to perform."},
				},
				Example: map[string]interface{}{
					"task_type": "simple_math",
					"prompt":    "Calculate 10 + 5",
					"num1":      10,
					"num2":      5,
					"operation": "add",
				},
			},
		},
	}
}
