package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/praximous/internal/config"
	"github.com/nidhogg/praximous/internal/provider"
)

// ollamaStub serves the Ollama generate endpoint with a fixed reply or a
// configured failure.
func ollamaStub(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			http.Error(w, "upstream unavailable", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"llama3","response":"` + reply + `","done":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func registryFor(t *testing.T, cfgs []config.ProviderConfig) *provider.Registry {
	t.Helper()
	r, err := provider.NewRegistry(cfgs, zap.NewNop())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

func TestRouteFailsOverToNextCandidate(t *testing.T) {
	bad := ollamaStub(t, "", http.StatusInternalServerError)
	good := ollamaStub(t, "from backup", http.StatusOK)
	t.Setenv("ROUTE_BAD_URL", bad.URL)
	t.Setenv("ROUTE_GOOD_URL", good.URL)

	reg := registryFor(t, []config.ProviderConfig{
		{Name: "primary", Type: "ollama", Model: "llama3", BaseURLEnv: "ROUTE_BAD_URL", Priority: 1, Enabled: true},
		{Name: "backup", Type: "ollama", Model: "llama3", BaseURLEnv: "ROUTE_GOOD_URL", Priority: 2, Enabled: true},
	})

	res, err := New(reg, zap.NewNop()).Route(context.Background(), &Request{
		TaskType: "default_llm",
		Prompt:   "hello",
	})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if res.ProviderUsed != "backup" || res.Attempts != 2 {
		t.Errorf("result = %+v", res)
	}
	if res.Data["text"] != "from backup" {
		t.Errorf("data = %v", res.Data)
	}
}

func TestRouteAllCandidatesFail(t *testing.T) {
	bad1 := ollamaStub(t, "", http.StatusInternalServerError)
	bad2 := ollamaStub(t, "", http.StatusBadGateway)
	t.Setenv("FAIL1_URL", bad1.URL)
	t.Setenv("FAIL2_URL", bad2.URL)

	reg := registryFor(t, []config.ProviderConfig{
		{Name: "alpha", Type: "ollama", Model: "llama3", BaseURLEnv: "FAIL1_URL", Priority: 1, Enabled: true},
		{Name: "beta", Type: "ollama", Model: "llama3", BaseURLEnv: "FAIL2_URL", Priority: 2, Enabled: true},
	})

	_, err := New(reg, zap.NewNop()).Route(context.Background(), &Request{Prompt: "hello"})
	var apf *AllProvidersFailedError
	if !errors.As(err, &apf) {
		t.Fatalf("expected AllProvidersFailedError, got %v", err)
	}
	if len(apf.Failures) != 2 {
		t.Fatalf("failures = %+v", apf.Failures)
	}
	if apf.Failures[0].Provider != "alpha" || apf.Failures[1].Provider != "beta" {
		t.Errorf("failure order = %+v", apf.Failures)
	}
}

func TestRouteProviderOverride(t *testing.T) {
	first := ollamaStub(t, "from first", http.StatusOK)
	second := ollamaStub(t, "from second", http.StatusOK)
	t.Setenv("OVR_FIRST_URL", first.URL)
	t.Setenv("OVR_SECOND_URL", second.URL)

	reg := registryFor(t, []config.ProviderConfig{
		{Name: "first", Type: "ollama", Model: "llama3", BaseURLEnv: "OVR_FIRST_URL", Priority: 1, Enabled: true},
		{Name: "second", Type: "ollama", Model: "llama3", BaseURLEnv: "OVR_SECOND_URL", Priority: 2, Enabled: true},
	})

	res, err := New(reg, zap.NewNop()).Route(context.Background(), &Request{
		Prompt:   "hello",
		Provider: "second",
	})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if res.ProviderUsed != "second" || res.Attempts != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestRouteTimeoutIsFailure(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	t.Cleanup(slow.Close)
	fast := ollamaStub(t, "quick reply", http.StatusOK)
	t.Setenv("SLOW_URL", slow.URL)
	t.Setenv("FAST_URL", fast.URL)

	reg := registryFor(t, []config.ProviderConfig{
		{Name: "slow", Type: "ollama", Model: "llama3", BaseURLEnv: "SLOW_URL", Priority: 1, Enabled: true, TimeoutSeconds: 1},
		{Name: "fast", Type: "ollama", Model: "llama3", BaseURLEnv: "FAST_URL", Priority: 2, Enabled: true},
	})

	res, err := New(reg, zap.NewNop()).Route(context.Background(), &Request{Prompt: "hello"})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if res.ProviderUsed != "fast" || res.Attempts != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestRouteAbortsOnRequestDeadline(t *testing.T) {
	never := ollamaStub(t, "unreachable", http.StatusOK)
	t.Setenv("DEADLINE_URL", never.URL)

	reg := registryFor(t, []config.ProviderConfig{
		{Name: "pending", Type: "ollama", Model: "llama3", BaseURLEnv: "DEADLINE_URL", Priority: 1, Enabled: true},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(reg, zap.NewNop()).Route(ctx, &Request{Prompt: "hello"})
	var apf *AllProvidersFailedError
	if !errors.As(err, &apf) {
		t.Fatalf("expected AllProvidersFailedError, got %v", err)
	}
	if len(apf.Failures) != 1 || apf.Failures[0].Provider != "pending" {
		t.Errorf("failures = %+v", apf.Failures)
	}
}

func TestRouteForwardsProviderParams(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"llama3","response":"ok","done":true}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("PARAMS_URL", srv.URL)

	reg := registryFor(t, []config.ProviderConfig{
		{Name: "tuned", Type: "ollama", Model: "llama3", BaseURLEnv: "PARAMS_URL", Priority: 1, Enabled: true,
			Params: map[string]string{"temperature": "0.1", "num_ctx": "2048"}},
	})

	_, err := New(reg, zap.NewNop()).Route(context.Background(), &Request{
		Prompt: "hi",
		Params: map[string]string{"temperature": "0.9"},
	})
	if err != nil {
		t.Fatalf("route: %v", err)
	}

	opts, ok := captured["options"].(map[string]interface{})
	if !ok {
		t.Fatalf("options missing from outbound request: %v", captured)
	}
	// Request-level params override the provider defaults.
	if opts["temperature"] != 0.9 {
		t.Errorf("temperature = %v, want request override 0.9", opts["temperature"])
	}
	if opts["num_ctx"] != float64(2048) {
		t.Errorf("num_ctx = %v, want configured 2048", opts["num_ctx"])
	}
}

func TestRouteNoProvidersConfigured(t *testing.T) {
	reg := registryFor(t, nil)
	_, err := New(reg, zap.NewNop()).Route(context.Background(), &Request{Prompt: "hello"})
	if !errors.Is(err, provider.ErrNoProviderAvailable) {
		t.Fatalf("expected ErrNoProviderAvailable, got %v", err)
	}
}
