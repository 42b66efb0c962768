package provider

import (
	"context"
	"strconv"
)

// Client is the opaque callable for one AI backend. Implementations wrap
// a vendor wire protocol; the router only sees this interface.
type Client interface {
	Name() string
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a single model invocation.
type GenerateRequest struct {
	Model  string            `json:"model"`
	Prompt string            `json:"prompt"`
	Params map[string]string `json:"params,omitempty"`
}

// GenerateResponse is the normalized model output.
type GenerateResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Text     string `json:"text"`
}

// paramFloat reads a numeric tuning parameter from the request params.
func paramFloat(params map[string]string, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// paramInt reads an integer tuning parameter from the request params.
func paramInt(params map[string]string, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
