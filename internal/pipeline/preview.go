package pipeline

import (
	"strings"
	"unicode"
)

// DefaultPreviewLength - ограничение длины превью в символах (рунах).
const DefaultPreviewLength = 120

const ellipsis = "..."

// Preview возвращает однострочное превью промпта длиной не более maxLen рун.
// Длинный промпт обрезается по границе слова, если она есть во второй половине, и дополняется "...".
// Preview(Preview(p)) == Preview(p).
func Preview(prompt string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultPreviewLength
	}
	s := strings.Join(strings.Fields(prompt), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= len(ellipsis) {
		return strings.TrimRightFunc(string(runes[:maxLen]), unicode.IsSpace)
	}

	limit := maxLen - len(ellipsis)
	cut := limit
	for i := limit; i > limit/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	head := strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if head == "" {
		head = string(runes[:limit])
	}
	return head + ellipsis
}
