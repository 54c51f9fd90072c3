package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCounter оценивает число токенов, когда провайдер не вернул usage.
// Кодировка загружается лениво: tiktoken может скачивать словарь при первом обращении.
type tokenCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

func newTokenCounter(model string) *tokenCounter {
	return &tokenCounter{model: model}
}

// Count возвращает число токенов; без словаря - грубая оценка 4 байта на токен.
func (c *tokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err == nil {
			c.enc = enc
		}
	})
	if c.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}
