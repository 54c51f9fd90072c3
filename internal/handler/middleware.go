package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"scene-prompt-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	userIDKey       = "user_id"
)

// ZapLoggingMiddleware логирует запросы, кроме /health и /metrics.
func ZapLoggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("request_id", requestID),
		}

		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("Server error", append(fields, zap.String("errors", c.Errors.String()))...)
		case status >= http.StatusBadRequest:
			log.Warn("Client error", append(fields, zap.String("errors", c.Errors.String()))...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}

// AuthMiddleware проверяет HS256 JWT из заголовка Authorization или параметра token.
// С пустым секретом проверка отключена.
func AuthMiddleware(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	key := []byte(secret)

	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			zap.L().Warn("Authorization failed", zap.Error(err))
			handleServiceError(c, err)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			zap.L().Warn("Token verification failed", zap.Error(err))
			handleServiceError(c, fmt.Errorf("%w: %v", models.ErrUnauthorized, err))
			return
		}

		if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
			c.Set(userIDKey, sub)
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return "", fmt.Errorf("%w: invalid Authorization header format", models.ErrUnauthorized)
		}
		return parts[1], nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("%w: token is missing", models.ErrUnauthorized)
}
