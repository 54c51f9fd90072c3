package ai

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"scene-prompt-server/internal/models"

	"golang.org/x/time/rate"
)

// RateLimiter ведет бюджет запросов к модели: локальный token bucket
// плюс сведения провайдера из заголовков ответа и ошибок 429.
type RateLimiter struct {
	limiter *rate.Limiter
	every   time.Duration

	mu                sync.Mutex
	providerRemaining int // -1, если провайдер не сообщал
	providerReset     time.Time
	now               func() time.Time
}

// NewRateLimiter создает лимитер на perMinute запросов в минуту с burst = perMinute.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	every := time.Minute / time.Duration(perMinute)
	return &RateLimiter{
		limiter:           rate.NewLimiter(rate.Every(every), perMinute),
		every:             every,
		providerRemaining: -1,
		now:               time.Now,
	}
}

// Wait блокируется до появления бюджета.
// Если бюджет не появится до дедлайна контекста, возвращает models.ErrRateLimited.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if until, blocked := r.providerBlockedUntil(); blocked {
		if deadline, ok := ctx.Deadline(); ok && deadline.Before(until) {
			return fmt.Errorf("%w: provider budget exhausted until %s", models.ErrRateLimited, until.Format(time.RFC3339))
		}
		timer := time.NewTimer(until.Sub(r.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", models.ErrRateLimited, err)
	}
	return nil
}

// Observe сохраняет остаток и время сброса, сообщенные провайдером.
func (r *RateLimiter) Observe(remaining int, reset time.Time) {
	if remaining < 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providerRemaining = remaining
	r.providerReset = reset
}

// MarkExhausted фиксирует ответ 429. Нулевой reset означает минуту ожидания.
func (r *RateLimiter) MarkExhausted(reset time.Time) {
	if reset.IsZero() {
		reset = r.now().Add(time.Minute)
	}
	r.Observe(0, reset)
}

// Status возвращает минимальный из локального и провайдерского остатков.
func (r *RateLimiter) Status() RateLimitStatus {
	now := r.now()
	tokens := r.limiter.TokensAt(now)
	burst := r.limiter.Burst()

	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}
	missing := float64(burst) - tokens
	if missing < 0 {
		missing = 0
	}
	reset := now.Add(time.Duration(math.Ceil(missing * float64(r.every))))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providerRemaining >= 0 && now.Before(r.providerReset) {
		if r.providerRemaining < remaining {
			remaining = r.providerRemaining
		}
		if r.providerReset.After(reset) {
			reset = r.providerReset
		}
	}
	return RateLimitStatus{Remaining: remaining, ResetTime: reset}
}

func (r *RateLimiter) providerBlockedUntil() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providerRemaining == 0 && r.now().Before(r.providerReset) {
		return r.providerReset, true
	}
	return time.Time{}, false
}
