package models

// SceneInput - один фрагмент повествования, из которого строится визуальный промпт.
type SceneInput struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ElementCategory - категория визуальных элементов.
type ElementCategory string

const (
	CategorySubject     ElementCategory = "subject"
	CategoryEnvironment ElementCategory = "environment"
	CategoryCamera      ElementCategory = "camera"
	CategoryLighting    ElementCategory = "lighting"
	CategoryMood        ElementCategory = "mood"
)

// ElementCategories перечисляет категории в порядке подстановки в промпт.
var ElementCategories = []ElementCategory{
	CategorySubject,
	CategoryEnvironment,
	CategoryCamera,
	CategoryLighting,
	CategoryMood,
}

// VisualElements - извлеченные из сцены дескрипторы по категориям.
// Любая категория может быть пустой.
type VisualElements struct {
	Subject     []string `json:"subject"`
	Environment []string `json:"environment"`
	Camera      []string `json:"camera"`
	Lighting    []string `json:"lighting"`
	Mood        []string `json:"mood"`
}

// Get возвращает дескрипторы категории.
func (v VisualElements) Get(c ElementCategory) []string {
	switch c {
	case CategorySubject:
		return v.Subject
	case CategoryEnvironment:
		return v.Environment
	case CategoryCamera:
		return v.Camera
	case CategoryLighting:
		return v.Lighting
	case CategoryMood:
		return v.Mood
	}
	return nil
}

// Set заменяет дескрипторы категории. Неизвестная категория игнорируется.
func (v *VisualElements) Set(c ElementCategory, values []string) {
	switch c {
	case CategorySubject:
		v.Subject = values
	case CategoryEnvironment:
		v.Environment = values
	case CategoryCamera:
		v.Camera = values
	case CategoryLighting:
		v.Lighting = values
	case CategoryMood:
		v.Mood = values
	}
}

// IsEmpty сообщает, что ни одна категория не заполнена.
func (v VisualElements) IsEmpty() bool {
	for _, c := range ElementCategories {
		if len(v.Get(c)) > 0 {
			return false
		}
	}
	return true
}

// EmptyVisualElements возвращает набор с пустыми (не nil) категориями, чтобы в JSON были [] а не null.
func EmptyVisualElements() VisualElements {
	return VisualElements{
		Subject:     []string{},
		Environment: []string{},
		Camera:      []string{},
		Lighting:    []string{},
		Mood:        []string{},
	}
}

// SafetyEvaluation - результат проверки промпта политикой безопасности.
// FilteredPrompt задан тогда и только тогда, когда найдено хотя бы одно нарушение.
type SafetyEvaluation struct {
	Violations     []string `json:"violations"`
	FilteredPrompt *string  `json:"filtered_prompt,omitempty"`
}

// IsSafe - нарушений нет.
func (e SafetyEvaluation) IsSafe() bool {
	return len(e.Violations) == 0
}

// SafetyStatus - итоговый статус безопасности сцены.
type SafetyStatus string

const (
	SafetyStatusSafe     SafetyStatus = "safe"
	SafetyStatusFiltered SafetyStatus = "filtered"
	SafetyStatusReplaced SafetyStatus = "replaced"
	SafetyStatusSkipped  SafetyStatus = "skipped"
	SafetyStatusFailed   SafetyStatus = "failed"
)

// SceneStage - стадия обработки сцены.
type SceneStage string

const (
	StagePending      SceneStage = "PENDING"
	StageExtracting   SceneStage = "EXTRACTING"
	StageSynthesizing SceneStage = "SYNTHESIZING"
	StageTemplating   SceneStage = "TEMPLATING"
	StageValidating   SceneStage = "VALIDATING"
	StageResolved     SceneStage = "RESOLVED"
)

// PromptResult - результат обработки одной сцены. Создается один раз и не меняется.
type PromptResult struct {
	SceneID        string         `json:"scene_id"`
	Index          int            `json:"index"`
	OriginalText   string         `json:"original_text"`
	VisualElements VisualElements `json:"visual_elements"`
	VisualPrompt   string         `json:"visual_prompt"`
	SafetyStatus   SafetyStatus   `json:"safety_status"`
	Success        bool           `json:"success"`
	ErrorMessage   *string        `json:"error_message,omitempty"`
	ErrorCode      ErrorCode      `json:"error_code,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// ValidationResult - результат проверки отредактированного пользователем промпта.
type ValidationResult struct {
	IsValid        bool             `json:"is_valid"`
	SafetyResult   SafetyEvaluation `json:"safety_result"`
	SafetyStatus   SafetyStatus     `json:"safety_status"`
	ResolvedPrompt string           `json:"resolved_prompt"`
	Suggestions    []string         `json:"suggestions"`
}
