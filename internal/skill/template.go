package skill

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

// TemplateSkill renders named text templates with caller-supplied
// parameters. Templates are registered at construction; the request picks
// one by name.
type TemplateSkill struct {
	templates map[string]*template.Template
	logger    *zap.Logger
}

// DefaultTemplates is the built-in template set.
var DefaultTemplates = map[string]string{
	"greeting":    "Hello {{.name}}, welcome to {{.place}}!",
	"signature":   "Best regards,\n{{.name}}\n{{.title}}",
	"status_line": "[{{.level}}] {{.component}}: {{.message}}",
}

// NewTemplateSkill creates the template skill from a name → template-text
// map. Invalid template text is a construction error.
func NewTemplateSkill(sources map[string]string, logger *zap.Logger) (*TemplateSkill, error) {
	ts := &TemplateSkill{
		templates: make(map[string]*template.Template, len(sources)),
		logger:    logger,
	}
	for name, text := range sources {
		tpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template %q: %w", name, err)
		}
		ts.templates[name] = tpl
	}
	return ts, nil
}

func (s *TemplateSkill) Name() string { return "template" }

func (s *TemplateSkill) Execute(ctx context.Context, in *Input) (*Response, error) {
	name := in.StringParam("template_name", "")
	if name == "" {
		return Fail(ErrKindValidation, "'template_name' is required."), nil
	}
	tpl, ok := s.templates[name]
	if !ok {
		return Fail(ErrKindValidation, fmt.Sprintf("Template %q is not registered. Available: %s",
			name, strings.Join(s.templateNames(), ", "))), nil
	}

	vars, _ := in.Params["variables"].(map[string]interface{})
	var sb strings.Builder
	if err := tpl.Execute(&sb, vars); err != nil {
		return Fail(ErrKindValidation, fmt.Sprintf("Template rendering failed: %v", err)), nil
	}

	return OK(map[string]interface{}{
		"template_name": name,
		"rendered":      sb.String(),
	}), nil
}

func (s *TemplateSkill) templateNames() []string {
	names := make([]string, 0, len(s.templates))
	for n := range s.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *TemplateSkill) Capabilities() Capability {
	return Capability{
		SkillName:   "template",
		Description: "Renders registered text templates with caller-supplied variables.",
		Operations: map[string]Operation{
			"render": {
				Description: "Renders a named template.",
				Parameters: map[string]interface{}{
					"template_name": map[string]interface{}{"type": "string", "enum": s.templateNames(), "description": "Name of the registered template."},
					"variables":     map[string]interface{}{"type": "object", "description": "Key/value pairs substituted into the template."},
				},
				Example: map[string]interface{}{
					"task_type":     "template",
					"template_name": "greeting",
					"variables":     map[string]interface{}{"name": "Ada", "place": "Praximous"},
				},
			},
		},
	}
}
