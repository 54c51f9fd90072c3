package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"scene-prompt-server/internal/models"

	"github.com/ilyakaznacheev/cleanenv"
)

// Lexicons - встроенные словари политики безопасности.
// Пустой словарь означает использование словаря по умолчанию.
type Lexicons struct {
	Strict   []string `yaml:"strict" env:"LEXICON_STRICT" env-separator:","`
	Adult    []string `yaml:"adult" env:"LEXICON_ADULT" env-separator:","`
	Violence []string `yaml:"violence" env:"LEXICON_VIOLENCE" env-separator:","`
}

// Policy - умолчания проекта и словари, общие для всех запросов.
type Policy struct {
	Defaults models.ProjectConfig `yaml:"defaults"`
	Lexicons Lexicons             `yaml:"lexicons"`
}

// LoadPolicy читает YAML файл политики. Переменные окружения перекрывают значения файла.
// Если файла нет, используются только переменные окружения и значения по умолчанию.
func LoadPolicy(path string) (*Policy, error) {
	var p Policy

	_, statErr := os.Stat(path)
	switch {
	case path != "" && statErr == nil:
		if err := cleanenv.ReadConfig(path, &p); err != nil {
			return nil, fmt.Errorf("ошибка чтения файла политики '%s': %w", path, err)
		}
	case path == "" || errors.Is(statErr, fs.ErrNotExist):
		if err := cleanenv.ReadEnv(&p); err != nil {
			return nil, fmt.Errorf("ошибка чтения политики из окружения: %w", err)
		}
	default:
		return nil, fmt.Errorf("файл политики '%s' недоступен: %w", path, statErr)
	}

	if err := p.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("некорректные умолчания проекта: %w", err)
	}
	return &p, nil
}
