package skill

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrSkillNotFound is returned by Resolve for an unknown task type.
	ErrSkillNotFound = errors.New("skill not found")
	// ErrDuplicateSkill is returned by Register when a name collides.
	// The first registration stays in place.
	ErrDuplicateSkill = errors.New("duplicate skill name")
)

// Registry holds the loaded skill instances keyed by name.
// Registration happens at startup; lookups are read-mostly and thread-safe.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
	logger *zap.Logger
}

// NewRegistry creates an empty Registry ready for use.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		skills: make(map[string]Skill),
		logger: logger,
	}
}

// Register adds a skill instance. A duplicate name is rejected so that
// dispatch stays deterministic: the first registration wins and the
// conflict is reported to the caller and the log.
func (r *Registry) Register(s Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.Name()
	if _, exists := r.skills[name]; exists {
		r.logger.Warn("skill name conflict, keeping first registration",
			zap.String("skill", name))
		return fmt.Errorf("%w: %s", ErrDuplicateSkill, name)
	}
	r.skills[name] = s
	r.logger.Info("registered skill", zap.String("skill", name))
	return nil
}

// Resolve returns the skill registered under name. The same instance is
// returned on every call until the process restarts.
func (r *Registry) Resolve(name string) (Skill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSkillNotFound, name)
	}
	return s, nil
}

// Names returns the registered skill names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for n := range r.skills {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ListCapabilities returns every skill's capability descriptor keyed by
// name. It is side-effect free and deterministic between calls.
func (r *Registry) ListCapabilities() map[string]Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Capability, len(r.skills))
	for name, s := range r.skills {
		out[name] = s.Capabilities()
	}
	return out
}
