package pipeline

import (
	"strings"

	"scene-prompt-server/internal/models"
)

// StyleTemplate - закрытый набор стилевых шаблонов.
// Реализации есть только в этом пакете; новый шаблон требует нового типа и ветки в TemplateFor.
type StyleTemplate interface {
	Name() models.TemplateName
	directives() []string
	sealed()
}

type classicTemplate struct{}
type darkTemplate struct{}
type vividTemplate struct{}

func (classicTemplate) Name() models.TemplateName { return models.TemplateClassic }
func (darkTemplate) Name() models.TemplateName    { return models.TemplateDark }
func (vividTemplate) Name() models.TemplateName   { return models.TemplateVivid }

func (classicTemplate) directives() []string {
	return []string{
		"classic illustration style",
		"soft natural lighting",
		"balanced warm color palette",
		"fine detail",
	}
}

func (darkTemplate) directives() []string {
	return []string{
		"dark cinematic style",
		"low-key dramatic lighting with deep shadows",
		"muted desaturated color palette",
		"moody atmosphere",
	}
}

func (vividTemplate) directives() []string {
	return []string{
		"vivid stylized art",
		"bright high-contrast lighting",
		"saturated vibrant color palette",
		"energetic atmosphere",
	}
}

func (classicTemplate) sealed() {}
func (darkTemplate) sealed()    {}
func (vividTemplate) sealed()   {}

// TemplateFor возвращает шаблон по имени. Неизвестное имя дает classic.
func TemplateFor(name models.TemplateName) StyleTemplate {
	switch models.TemplateName(strings.ToLower(strings.TrimSpace(string(name)))) {
	case models.TemplateDark:
		return darkTemplate{}
	case models.TemplateVivid:
		return vividTemplate{}
	default:
		return classicTemplate{}
	}
}

// compositionFor - указания по кадрированию для соотношения сторон.
// Меняют только композицию, но не содержание кадра.
func compositionFor(ratio models.AspectRatio) string {
	switch ratio {
	case models.AspectRatioPortrait:
		return "vertical 9:16 composition, full-body framing, subject centered"
	case models.AspectRatioSquare:
		return "square 1:1 composition, centered subject, balanced framing"
	default:
		return "wide 16:9 cinematic composition, rule of thirds"
	}
}

// ApplyTemplate дополняет базовый промпт стилевыми указаниями шаблона.
// Чистая детерминированная функция.
func ApplyTemplate(basePrompt string, name models.TemplateName, ratio models.AspectRatio) string {
	tpl := TemplateFor(name)

	parts := make([]string, 0, 6)
	if base := strings.TrimRight(strings.TrimSpace(basePrompt), ",. "); base != "" {
		parts = append(parts, base)
	}
	parts = append(parts, compositionFor(ratio))
	parts = append(parts, tpl.directives()...)
	return strings.Join(parts, ", ")
}
