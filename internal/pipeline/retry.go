package pipeline

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"scene-prompt-server/internal/models"

	"go.uber.org/zap"
)

// retrier повторяет вызовы модели при временных ошибках.
type retrier struct {
	baseDelay time.Duration
	metrics   *Metrics
	logger    *zap.Logger
}

// isTransient - ошибка, которую имеет смысл повторить.
func isTransient(err error) bool {
	return errors.Is(err, models.ErrModelUnavailable) || errors.Is(err, models.ErrRateLimited)
}

// backoffDelay = base * 2^(attempt-1) с разбросом ±10%.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	jitter := delay * 0.1
	delay += jitter * (rand.Float64()*2 - 1)
	return time.Duration(delay)
}

// do вызывает fn до 1+retries раз. Ожидание между попытками прерывается контекстом.
func (r *retrier) do(ctx context.Context, stage models.SceneStage, retries int, fn func(context.Context) (string, error)) (string, error) {
	for attempt := 1; ; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !isTransient(err) || attempt > retries {
			return "", err
		}

		delay := backoffDelay(r.baseDelay, attempt)
		r.metrics.retries.WithLabelValues(string(stage)).Inc()
		r.logger.Warn("Model call failed, retrying",
			zap.String("stage", string(stage)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", retries+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}
