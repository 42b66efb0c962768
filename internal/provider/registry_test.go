package provider

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/nidhogg/praximous/internal/config"
)

func testConfigs(t *testing.T) []config.ProviderConfig {
	t.Helper()
	t.Setenv("TEST_GEMINI_KEY", "gk-123")
	t.Setenv("TEST_OLLAMA_URL", "http://localhost:11434")
	return []config.ProviderConfig{
		{Name: "gemini-pro", Type: "gemini", Model: "gemini-1.5-pro", APIKeyEnv: "TEST_GEMINI_KEY", Priority: 1, Enabled: true},
		{Name: "local-ollama", Type: "ollama", Model: "llama3", BaseURLEnv: "TEST_OLLAMA_URL", Priority: 2, Enabled: true},
		{Name: "openai-gpt4", Type: "openai", Model: "gpt-4", APIKeyEnv: "TEST_OPENAI_KEY", Priority: 3, Enabled: false},
	}
}

func TestNewRegistryOrdersByPriority(t *testing.T) {
	r, err := NewRegistry(testConfigs(t), zap.NewNop())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	cands, err := r.CandidatesFor("")
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 enabled candidates, got %d", len(cands))
	}
	if cands[0].Name != "gemini-pro" || cands[1].Name != "local-ollama" {
		t.Errorf("order = %s, %s", cands[0].Name, cands[1].Name)
	}
}

func TestNewRegistryPriorityTiesKeepDeclarationOrder(t *testing.T) {
	t.Setenv("TIE_URL", "http://localhost:11434")
	cfgs := []config.ProviderConfig{
		{Name: "first", Type: "ollama", Model: "llama3", BaseURLEnv: "TIE_URL", Priority: 1, Enabled: true},
		{Name: "second", Type: "ollama", Model: "llama3", BaseURLEnv: "TIE_URL", Priority: 1, Enabled: true},
	}
	r, err := NewRegistry(cfgs, zap.NewNop())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	cands, _ := r.CandidatesFor("")
	if cands[0].Name != "first" || cands[1].Name != "second" {
		t.Errorf("tie order = %s, %s", cands[0].Name, cands[1].Name)
	}
}

func TestNewRegistryMissingCredentialFailsFast(t *testing.T) {
	cfgs := []config.ProviderConfig{
		{Name: "broken", Type: "gemini", Model: "gemini-1.5-pro", APIKeyEnv: "DEFINITELY_UNSET_KEY_VAR", Priority: 1, Enabled: true},
	}
	if _, err := NewRegistry(cfgs, zap.NewNop()); err == nil {
		t.Fatal("expected startup error for unset credential variable")
	}
}

func TestNewRegistryDisabledProviderSkipsValidation(t *testing.T) {
	cfgs := []config.ProviderConfig{
		{Name: "dormant", Type: "gemini", Model: "gemini-1.5-pro", APIKeyEnv: "DEFINITELY_UNSET_KEY_VAR", Priority: 1, Enabled: false},
	}
	r, err := NewRegistry(cfgs, zap.NewNop())
	if err != nil {
		t.Fatalf("disabled provider must not be validated: %v", err)
	}
	if _, err := r.CandidatesFor(""); !errors.Is(err, ErrNoProviderAvailable) {
		t.Errorf("expected ErrNoProviderAvailable, got %v", err)
	}
}

func TestNewRegistryUnknownTypeIsNotFatal(t *testing.T) {
	t.Setenv("KNOWN_URL", "http://localhost:11434")
	cfgs := []config.ProviderConfig{
		{Name: "mystery", Type: "quantum", Model: "q1", Priority: 1, Enabled: true},
		{Name: "real", Type: "ollama", Model: "llama3", BaseURLEnv: "KNOWN_URL", Priority: 2, Enabled: true},
	}
	r, err := NewRegistry(cfgs, zap.NewNop())
	if err != nil {
		t.Fatalf("unknown type should degrade, not fail: %v", err)
	}
	cands, _ := r.CandidatesFor("")
	if len(cands) != 1 || cands[0].Name != "real" {
		t.Errorf("candidates = %+v", cands)
	}

	var mysteryStatus string
	for _, st := range r.Statuses() {
		if st.Name == "mystery" {
			mysteryStatus = st.Status
		}
	}
	if mysteryStatus != "Error" {
		t.Errorf("mystery status = %q, want Error", mysteryStatus)
	}
}

func TestCandidatesForOverride(t *testing.T) {
	r, err := NewRegistry(testConfigs(t), zap.NewNop())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	cands, err := r.CandidatesFor("local-ollama")
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if len(cands) != 1 || cands[0].Name != "local-ollama" {
		t.Errorf("override candidates = %+v", cands)
	}

	// Unknown override falls back to priority order.
	cands, err = r.CandidatesFor("no-such-provider")
	if err != nil {
		t.Fatalf("unknown override: %v", err)
	}
	if len(cands) != 2 || cands[0].Name != "gemini-pro" {
		t.Errorf("fallback candidates = %+v", cands)
	}

	// A disabled provider cannot be forced through the override either.
	cands, err = r.CandidatesFor("openai-gpt4")
	if err != nil {
		t.Fatalf("disabled override: %v", err)
	}
	if len(cands) != 2 {
		t.Errorf("disabled override candidates = %+v", cands)
	}
}

func TestDuplicateProviderName(t *testing.T) {
	t.Setenv("DUP_URL", "http://localhost:11434")
	cfgs := []config.ProviderConfig{
		{Name: "same", Type: "ollama", Model: "a", BaseURLEnv: "DUP_URL", Priority: 1, Enabled: true},
		{Name: "same", Type: "ollama", Model: "b", BaseURLEnv: "DUP_URL", Priority: 2, Enabled: true},
	}
	if _, err := NewRegistry(cfgs, zap.NewNop()); err == nil {
		t.Fatal("expected error for duplicate provider name")
	}
}

func TestReloadSwapsPool(t *testing.T) {
	r, err := NewRegistry(testConfigs(t), zap.NewNop())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	t.Setenv("RELOAD_URL", "http://localhost:11434")
	if err := r.Reload([]config.ProviderConfig{
		{Name: "only-ollama", Type: "ollama", Model: "llama3", BaseURLEnv: "RELOAD_URL", Priority: 1, Enabled: true},
	}); err != nil {
		t.Fatalf("reload: %v", err)
	}

	cands, _ := r.CandidatesFor("")
	if len(cands) != 1 || cands[0].Name != "only-ollama" {
		t.Errorf("post-reload candidates = %+v", cands)
	}
	if _, ok := r.Get("gemini-pro"); ok {
		t.Error("old provider still resolvable after reload")
	}
}

func TestReloadFailureKeepsOldPool(t *testing.T) {
	r, err := NewRegistry(testConfigs(t), zap.NewNop())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	bad := []config.ProviderConfig{
		{Name: "broken", Type: "gemini", Model: "m", APIKeyEnv: "DEFINITELY_UNSET_KEY_VAR", Priority: 1, Enabled: true},
	}
	if err := r.Reload(bad); err == nil {
		t.Fatal("expected reload error")
	}

	cands, err := r.CandidatesFor("")
	if err != nil {
		t.Fatalf("old pool should survive failed reload: %v", err)
	}
	if len(cands) != 2 {
		t.Errorf("old pool candidates = %d, want 2", len(cands))
	}
}
