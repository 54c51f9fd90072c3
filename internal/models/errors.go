package models

import (
	"errors"
)

// Ошибки конвейера генерации промптов
var (
	// Ошибки стадий обработки сцены
	ErrExtractionFailed  = errors.New("visual element extraction failed")
	ErrSynthesisFailed   = errors.New("prompt synthesis failed")
	ErrTimeout           = errors.New("scene processing timed out")
	ErrRateLimited       = errors.New("model rate limit exceeded")
	ErrSafetyViolation   = errors.New("prompt violates safety policy")
	ErrMalformedResponse = errors.New("malformed model response")

	// Ошибки модели и батча
	ErrModelUnavailable = errors.New("model is unavailable")
	ErrBatchCancelled   = errors.New("batch was cancelled")

	// Ошибки запроса
	ErrInvalidInput = errors.New("invalid input data")
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrorCode - машинно-читаемый код ошибки, отдаваемый клиентам.
type ErrorCode string

const (
	ErrCodeExtractionFailed  ErrorCode = "EXTRACTION_FAILED"
	ErrCodeSynthesisFailed   ErrorCode = "SYNTHESIS_FAILED"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"
	ErrCodeSafetyViolation   ErrorCode = "SAFETY_VIOLATION"
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeCancelled         ErrorCode = "CANCELLED"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// codePriority задает порядок проверки: первым выигрывает наиболее конкретный код.
var codePriority = []struct {
	err  error
	code ErrorCode
}{
	{ErrTimeout, ErrCodeTimeout},
	{ErrBatchCancelled, ErrCodeCancelled},
	{ErrRateLimited, ErrCodeRateLimited},
	{ErrSafetyViolation, ErrCodeSafetyViolation},
	{ErrExtractionFailed, ErrCodeExtractionFailed},
	{ErrSynthesisFailed, ErrCodeSynthesisFailed},
	{ErrMalformedResponse, ErrCodeMalformedResponse},
	{ErrInvalidInput, ErrCodeInvalidInput},
	{ErrUnauthorized, ErrCodeUnauthorized},
}

// CodeOf возвращает код ошибки для цепочки err. Для nil возвращает пустую строку.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	for _, p := range codePriority {
		if errors.Is(err, p.err) {
			return p.code
		}
	}
	return ErrCodeInternal
}

// SentinelOf возвращает sentinel ошибку для кода или nil, если у кода ее нет.
func SentinelOf(code ErrorCode) error {
	for _, p := range codePriority {
		if p.code == code {
			return p.err
		}
	}
	return nil
}

// ErrorResponse - стандартное тело ответа об ошибке.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
