package handler

import (
	"context"
	"encoding/json"
	"sync"

	"scene-prompt-server/internal/messaging"
	"scene-prompt-server/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const subscriberBuffer = 256

// subscriber - одно WebSocket соединение, подписанное на батч.
type subscriber struct {
	batchID string
	conn    *websocket.Conn
	send    chan []byte
}

// ProgressHub раздает результаты сцен подписчикам батча.
// На один батч может быть подписано несколько соединений.
type ProgressHub struct {
	batches map[string]map[*subscriber]struct{}
	mu      sync.RWMutex
	logger  *zap.Logger
}

func NewProgressHub(logger *zap.Logger) *ProgressHub {
	return &ProgressHub{
		batches: make(map[string]map[*subscriber]struct{}),
		logger:  logger.Named("ProgressHub"),
	}
}

func (h *ProgressHub) subscribe(batchID string, conn *websocket.Conn) *subscriber {
	s := &subscriber{batchID: batchID, conn: conn, send: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	subs, ok := h.batches[batchID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.batches[batchID] = subs
	}
	subs[s] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Subscriber registered", zap.String("batch_id", batchID))
	return s
}

// unsubscribe закрывает канал отправки, если его еще не закрыло завершение батча.
func (h *ProgressHub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.batches[s.batchID]
	if !ok {
		return
	}
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	close(s.send)
	if len(subs) == 0 {
		delete(h.batches, s.batchID)
	}
	h.logger.Debug("Subscriber unregistered", zap.String("batch_id", s.batchID))
}

// Subscribers возвращает число подписчиков батча.
func (h *ProgressHub) Subscribers(batchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.batches[batchID])
}

// PublishResult отправляет результат сцены подписчикам. Медленный подписчик теряет сообщение.
func (h *ProgressHub) PublishResult(batchID string, result models.PromptResult) {
	h.broadcast(ProgressEvent{Type: EventSceneResult, BatchID: batchID, Result: &result})
}

// CompleteBatch отправляет итоговое событие и закрывает все подписки батча.
func (h *ProgressHub) CompleteBatch(batchID, status string, err error) {
	event := ProgressEvent{Type: EventBatchCompleted, BatchID: batchID, Status: status}
	if err != nil {
		event.Error = &models.ErrorResponse{Code: models.CodeOf(err), Message: err.Error()}
	}
	h.broadcast(event)

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.batches[batchID] {
		close(s.send)
	}
	delete(h.batches, batchID)
}

func (h *ProgressHub) broadcast(event ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := h.batches[event.BatchID]
	if len(subs) == 0 {
		return
	}
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal progress event", zap.String("batch_id", event.BatchID), zap.Error(err))
		return
	}
	for s := range subs {
		select {
		case s.send <- msg:
		default:
			h.logger.Warn("Subscriber queue is full, dropping event", zap.String("batch_id", event.BatchID), zap.String("type", event.Type))
		}
	}
}

var _ messaging.DeliveryHandler = (*ResultForwarder)(nil)

// ResultForwarder пересылает результаты асинхронных батчей из очереди в ProgressHub.
type ResultForwarder struct {
	hub    *ProgressHub
	logger *zap.Logger
}

func NewResultForwarder(hub *ProgressHub, logger *zap.Logger) *ResultForwarder {
	return &ResultForwarder{hub: hub, logger: logger.Named("ResultForwarder")}
}

func (f *ResultForwarder) Handle(_ context.Context, body []byte, correlationID string) messaging.Decision {
	var payload messaging.ScenePromptResultPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		f.logger.Error("Failed to unmarshal result payload", zap.String("correlation_id", correlationID), zap.Error(err))
		return messaging.Reject
	}

	for _, r := range payload.Results {
		f.hub.PublishResult(payload.BatchID, r)
	}
	var batchErr error
	if payload.ErrorMessage != nil {
		batchErr = &forwardedError{code: payload.ErrorCode, message: *payload.ErrorMessage}
	}
	f.hub.CompleteBatch(payload.BatchID, string(payload.Status), batchErr)

	f.logger.Info("Batch result forwarded",
		zap.String("batch_id", payload.BatchID),
		zap.String("status", string(payload.Status)),
		zap.Int("results", len(payload.Results)),
	)
	return messaging.Ack
}

// forwardedError сохраняет код ошибки, пришедший от воркера.
type forwardedError struct {
	code    models.ErrorCode
	message string
}

func (e *forwardedError) Error() string { return e.message }

// Is сопоставляет код воркера с sentinel ошибкой, чтобы CodeOf вернул исходный код.
func (e *forwardedError) Is(target error) bool {
	sentinel := models.SentinelOf(e.code)
	return sentinel != nil && sentinel == target
}
