package util

import (
	stderrors "errors"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorKind 错误分类，决定 HTTP 状态码以及调用方能否重试
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindForbidden   ErrorKind = "forbidden"
	KindConflict    ErrorKind = "conflict"
	KindPersistence ErrorKind = "persistence"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func Validation(message string) error {
	return &AppError{Kind: KindValidation, Message: message}
}

func NotFound(message string) error {
	return &AppError{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) error {
	return &AppError{Kind: KindForbidden, Message: message}
}

func Conflict(message string, err error) error {
	return &AppError{Kind: KindConflict, Message: message, Err: err}
}

// Persistence 包装存储层错误并保留调用栈
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return &AppError{Kind: KindPersistence, Message: "persistence failure", Err: errors.WithStack(err)}
}

var (
	ErrModuleNotFound     = NotFound("module not found")
	ErrDefinitionNotFound = NotFound("evaluation definition not found")
	ErrAttemptNotFound    = NotFound("attempt not found")
	ErrModuleNotAllowed   = Forbidden("learner cannot take this module")
	ErrAttemptNumberRace  = Conflict("attempt number already taken, retry the submission", nil)
)

// KindOf 未分类的错误按持久化错误处理
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistence
}

func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindPersistence:
		return true
	default:
		return false
	}
}

func StatusFor(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
