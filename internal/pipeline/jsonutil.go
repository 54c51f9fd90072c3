package pipeline

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	jsonFenceRegex = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
)

// extractJSON ищет JSON в ответе модели: сначала в блоке ```json```, затем между первой
// и последней скобкой, затем пытается закрыть оборванный JSON. Пустая строка - ничего не найдено.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if m := jsonFenceRegex.FindStringSubmatch(raw); len(m) > 1 {
		if res := repairJSON(m[1]); res != "" {
			return res
		}
	}

	start := strings.IndexAny(raw, "{[")
	if start == -1 {
		return ""
	}
	closer := "}"
	if raw[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(raw, closer); end > start {
		if res := repairJSON(raw[start : end+1]); res != "" {
			return res
		}
	}
	// Оборванный ответ: берем все от открывающей скобки
	return repairJSON(raw[start:])
}

// repairJSON возвращает валидный JSON или пустую строку. Недостающие закрывающие скобки
// дописываются в правильном порядке, незакрытая строка закрывается.
func repairJSON(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if json.Valid([]byte(s)) {
		return s
	}

	var stack []byte
	inString, escape := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return ""
			}
			stack = stack[:len(stack)-1]
		}
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(s, ", \n\t"))
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	repaired := b.String()
	if json.Valid([]byte(repaired)) {
		return repaired
	}
	return ""
}
