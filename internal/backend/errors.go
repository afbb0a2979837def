package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class independent of the HTTP status that
// produced it.
type Code string

const (
	CodeNetwork      Code = "NETWORK_ERROR"
	CodeTimeout      Code = "TIMEOUT"
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeServer       Code = "SERVER_ERROR"
	CodeDownload     Code = "DOWNLOAD_ERROR"
)

// FieldError carries one field-level validation failure from the backend.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed failure every dispatcher call resolves to. Message is
// user-facing (Indonesian, matching the backend's audience); Code is for
// machine decisions.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details []FieldError

	// cause is the transport error behind NETWORK_ERROR/TIMEOUT, kept for
	// logs; it never reaches the user-facing Message.
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the failure is transient. 400/401/403/404/409 are
// terminal on first sight.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeNetwork, CodeTimeout, CodeRateLimited, CodeServer:
		return true
	default:
		return false
	}
}

// AsError unwraps err into *Error, or nil if it is not one.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details []FieldError    `json:"details"`
}

// classify maps a non-2xx response to a typed error. The server's own message
// wins when present; otherwise a generic localized one is used.
func classify(status int, body []byte) *Error {
	apiErr := &Error{Status: status}

	switch {
	case status == http.StatusBadRequest:
		apiErr.Code = CodeValidation
		apiErr.Message = "Data yang dikirim tidak valid."
	case status == http.StatusUnauthorized:
		apiErr.Code = CodeUnauthorized
		apiErr.Message = "Sesi Anda telah berakhir. Silakan masuk kembali."
	case status == http.StatusForbidden:
		apiErr.Code = CodeForbidden
		apiErr.Message = "Anda tidak memiliki akses untuk melakukan tindakan ini."
	case status == http.StatusNotFound:
		apiErr.Code = CodeNotFound
		apiErr.Message = "Data tidak ditemukan."
	case status == http.StatusConflict:
		apiErr.Code = CodeConflict
		apiErr.Message = "Data sudah terdaftar."
	case status == http.StatusTooManyRequests:
		apiErr.Code = CodeRateLimited
		apiErr.Message = "Terlalu banyak permintaan. Silakan coba beberapa saat lagi."
	case status >= 500:
		apiErr.Code = CodeServer
		apiErr.Message = "Terjadi kesalahan pada server. Silakan coba lagi nanti."
	default:
		apiErr.Code = CodeServer
		apiErr.Message = "Terjadi kesalahan yang tidak diketahui."
	}

	var env envelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		if env.Message != "" && status < 500 {
			apiErr.Message = env.Message
		}
		apiErr.Details = env.Details
	}

	return apiErr
}

func networkError(err error) *Error {
	return &Error{
		Code:    CodeNetwork,
		Message: "Tidak dapat terhubung ke server. Periksa koneksi internet Anda.",
		cause:   err,
	}
}

func timeoutError(err error) *Error {
	return &Error{
		Code:    CodeTimeout,
		Message: "Permintaan melebihi batas waktu. Silakan coba lagi.",
		cause:   err,
	}
}

func downloadError(message string) *Error {
	if message == "" {
		message = "File tidak ditemukan atau kosong."
	}
	return &Error{Code: CodeDownload, Message: message}
}
