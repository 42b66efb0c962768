package provider

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/praximous/internal/config"
)

// ErrNoProviderAvailable is returned when the candidate list is empty.
var ErrNoProviderAvailable = errors.New("no provider available")

const defaultTimeout = 60 * time.Second

// Entry couples a validated provider config with its constructed client.
type Entry struct {
	Name     string
	Type     string
	Model    string
	Priority int
	Timeout  time.Duration
	Params   map[string]string
	Client   Client
}

// Status reports a configured provider's state for introspection.
type Status struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // Active | Disabled | Error
	Details string `json:"details,omitempty"`
}

// snapshot is an immutable view of the provider pool. Routing attempts
// capture one snapshot at request start and never observe a reload
// half-applied.
type snapshot struct {
	entries  []*Entry // enabled only, sorted by priority then declaration order
	byName   map[string]*Entry
	statuses []Status
}

// Registry materializes provider entries from configuration and hands out
// ordered candidate lists. Reload swaps a complete new snapshot in one
// atomic store.
type Registry struct {
	snap   atomic.Pointer[snapshot]
	logger *zap.Logger
}

// NewRegistry builds a registry from the given provider configs.
// An enabled provider whose declared credential variable is unreadable is
// a startup error; disabled providers are exempt from validation.
func NewRegistry(cfgs []config.ProviderConfig, logger *zap.Logger) (*Registry, error) {
	r := &Registry{logger: logger}
	if err := r.Reload(cfgs); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload rebuilds the provider pool from configuration and atomically
// swaps it in. In-flight routing keeps the snapshot it started with.
func (r *Registry) Reload(cfgs []config.ProviderConfig) error {
	snap, err := buildSnapshot(cfgs, r.logger)
	if err != nil {
		return err
	}
	r.snap.Store(snap)
	r.logger.Info("provider pool loaded",
		zap.Int("configured", len(cfgs)),
		zap.Int("enabled", len(snap.entries)))
	return nil
}

func buildSnapshot(cfgs []config.ProviderConfig, logger *zap.Logger) (*snapshot, error) {
	snap := &snapshot{byName: make(map[string]*Entry)}

	for _, pc := range cfgs {
		if pc.Name == "" {
			return nil, fmt.Errorf("provider config missing name")
		}
		if _, dup := snap.byName[pc.Name]; dup {
			return nil, fmt.Errorf("duplicate provider name %q", pc.Name)
		}
		if !pc.Enabled {
			snap.statuses = append(snap.statuses, Status{
				Name: pc.Name, Status: "Disabled", Details: "disabled in configuration",
			})
			snap.byName[pc.Name] = nil
			continue
		}

		apiKey, baseURL, err := resolveCredentials(pc)
		if err != nil {
			return nil, err
		}

		client, err := newClient(pc, apiKey, baseURL, logger)
		if err != nil {
			logger.Warn("provider excluded from pool",
				zap.String("provider", pc.Name), zap.Error(err))
			snap.statuses = append(snap.statuses, Status{
				Name: pc.Name, Status: "Error", Details: err.Error(),
			})
			snap.byName[pc.Name] = nil
			continue
		}

		timeout := defaultTimeout
		if pc.TimeoutSeconds > 0 {
			timeout = time.Duration(pc.TimeoutSeconds) * time.Second
		}
		entry := &Entry{
			Name:     pc.Name,
			Type:     pc.Type,
			Model:    pc.Model,
			Priority: pc.Priority,
			Timeout:  timeout,
			Params:   pc.Params,
			Client:   client,
		}
		snap.entries = append(snap.entries, entry)
		snap.byName[pc.Name] = entry
		snap.statuses = append(snap.statuses, Status{
			Name: pc.Name, Status: "Active", Details: "initialized and active",
		})
	}

	// Ties on priority keep declaration order.
	sort.SliceStable(snap.entries, func(i, j int) bool {
		return snap.entries[i].Priority < snap.entries[j].Priority
	})
	return snap, nil
}

// resolveCredentials reads the named environment variables for an enabled
// provider. A declared-but-empty variable fails fast so a misconfigured
// backend surfaces at startup, not on the first routed request.
func resolveCredentials(pc config.ProviderConfig) (apiKey, baseURL string, err error) {
	if pc.APIKeyEnv != "" {
		apiKey = os.Getenv(pc.APIKeyEnv)
		if apiKey == "" {
			return "", "", fmt.Errorf("provider %q: credential variable %s is not set", pc.Name, pc.APIKeyEnv)
		}
	}
	if pc.BaseURLEnv != "" {
		baseURL = os.Getenv(pc.BaseURLEnv)
		if baseURL == "" {
			return "", "", fmt.Errorf("provider %q: endpoint variable %s is not set", pc.Name, pc.BaseURLEnv)
		}
	}
	return apiKey, baseURL, nil
}

func newClient(pc config.ProviderConfig, apiKey, baseURL string, logger *zap.Logger) (Client, error) {
	switch pc.Type {
	case "gemini":
		return NewGeminiClient(pc.Name, apiKey, baseURL, logger), nil
	case "ollama":
		return NewOllamaClient(pc.Name, baseURL, logger), nil
	case "openai":
		return NewOpenAIClient(pc.Name, apiKey, baseURL, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", pc.Type)
	}
}

// CandidatesFor returns the ordered provider candidate list for one
// routing attempt. An override that names an enabled provider yields a
// single-element list; otherwise all enabled providers are returned in
// priority order.
func (r *Registry) CandidatesFor(override string) ([]*Entry, error) {
	snap := r.snap.Load()
	if override != "" {
		if e := snap.byName[override]; e != nil {
			return []*Entry{e}, nil
		}
		// Unknown or disabled override falls through to normal priority order.
		r.logger.Warn("provider override not available, using priority order",
			zap.String("override", override))
	}
	if len(snap.entries) == 0 {
		return nil, ErrNoProviderAvailable
	}
	return snap.entries, nil
}

// Get returns an enabled provider entry by name.
func (r *Registry) Get(name string) (*Entry, bool) {
	e := r.snap.Load().byName[name]
	return e, e != nil
}

// Statuses reports the state of every configured provider, enabled or not.
func (r *Registry) Statuses() []Status {
	snap := r.snap.Load()
	out := make([]Status, len(snap.statuses))
	copy(out, snap.statuses)
	return out
}
