package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// OllamaClient implements the Client interface for a local Ollama server.
type OllamaClient struct {
	name    string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewOllamaClient creates an Ollama client.
func NewOllamaClient(name, baseURL string, logger *zap.Logger) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaClient{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{},
		logger:  logger,
	}
}

func (c *OllamaClient) Name() string { return c.name }

type ollamaRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// ollamaOptions converts tuning params into the options map, restoring
// numeric and boolean typing where the value parses as one.
func ollamaOptions(params map[string]string) map[string]interface{} {
	if len(params) == 0 {
		return nil
	}
	opts := make(map[string]interface{}, len(params))
	for k, v := range params {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts[k] = f
			continue
		}
		if b, err := strconv.ParseBool(v); err == nil {
			opts[k] = b
			continue
		}
		opts[k] = v
	}
	return opts
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends a non-streaming generate request.
func (c *OllamaClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(&ollamaRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Stream:  false,
		Options: ollamaOptions(req.Params),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var or ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &GenerateResponse{
		Provider: c.name,
		Model:    or.Model,
		Text:     or.Response,
	}, nil
}
