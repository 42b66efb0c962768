package skill

import "go.uber.org/zap"

// RegisterBuiltins adds the default skill set to the registry. Duplicate
// names are reported by the registry and skipped; startup continues.
func RegisterBuiltins(reg *Registry, mr ModelRouter, logger *zap.Logger) error {
	tplSkill, err := NewTemplateSkill(DefaultTemplates, logger)
	if err != nil {
		return err
	}

	builtins := []Skill{
		NewEchoSkill(logger),
		NewMathSkill(logger),
		NewTextSkill(logger),
		NewDateTimeSkill(logger),
		NewSummarySkill(logger),
		NewSentimentSkill(logger),
		NewCSVSkill(logger),
		tplSkill,
		NewLLMSkill(mr, logger),
	}
	for _, s := range builtins {
		if regErr := reg.Register(s); regErr != nil {
			logger.Warn("builtin skill skipped", zap.Error(regErr))
		}
	}
	return nil
}
