package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"scene-prompt-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время ожидания следующего pong от клиента.
	pongWait = 60 * time.Second
	// Должно быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Клиент ничего не шлет, кроме управляющих кадров.
	maxMessageSize = 512
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ServeWS подписывает соединение на прогресс батча.
func (h *PromptHandler) ServeWS(c *gin.Context) {
	batchID := c.Param("batch_id")
	if strings.TrimSpace(batchID) == "" {
		handleServiceError(c, fmt.Errorf("%w: batch_id is required", models.ErrInvalidInput))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader уже записал ответ
		h.logger.Warn("Failed to upgrade connection", zap.String("batch_id", batchID), zap.Error(err))
		return
	}

	log := h.logger.With(zap.String("batch_id", batchID))
	log.Info("WebSocket subscription established")

	s := h.hub.subscribe(batchID, conn)
	go s.writePump(log)
	go s.readPump(h.hub, log)
}

// readPump читает управляющие кадры до закрытия соединения.
func (s *subscriber) readPump(hub *ProgressHub, log *zap.Logger) {
	defer func() {
		hub.unsubscribe(s)
		_ = s.conn.Close()
		log.Debug("readPump finished")
	}()
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		log.Debug("Ignoring message from subscriber")
	}
}

// writePump пишет события из send в соединение. Закрытый send означает завершение батча.
func (s *subscriber) writePump(log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		log.Debug("writePump finished")
	}()
	for {
		select {
		case message, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "batch completed"))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("Failed to write message", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}
