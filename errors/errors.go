package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the caller. It never leaks process output.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindExtraction     Kind = "extraction"
	KindTranscription  Kind = "transcription"
	KindInternal       Kind = "internal"
	KindNotImplemented Kind = "not_implemented"
)

const (
	MsgExtractionFailed    = "Failed to extract audio from video"
	MsgTranscriptionFailed = "Failed to transcribe audio"
	MsgInternal            = "Internal server error"
)

type AppError struct {
	Kind    Kind   `json:"-"`
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Validation(op string, err error, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    http.StatusBadRequest,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// TooLarge is a validation failure reported with 413.
func TooLarge(op string, err error, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    http.StatusRequestEntityTooLarge,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Extraction(op string, err error) *AppError {
	return &AppError{
		Kind:    KindExtraction,
		Code:    http.StatusInternalServerError,
		Message: MsgExtractionFailed,
		Op:      op,
		Err:     err,
	}
}

func Transcription(op string, err error) *AppError {
	return &AppError{
		Kind:    KindTranscription,
		Code:    http.StatusInternalServerError,
		Message: MsgTranscriptionFailed,
		Op:      op,
		Err:     err,
	}
}

func Internal(op string, err error, message string) *AppError {
	if message == "" {
		message = MsgInternal
	}
	return &AppError{
		Kind:    KindInternal,
		Code:    http.StatusInternalServerError,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func NotImplemented(op string, message string) *AppError {
	return &AppError{
		Kind:    KindNotImplemented,
		Code:    http.StatusNotImplemented,
		Message: message,
		Op:      op,
	}
}

// AsAppError finds the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns KindInternal for anything that is not an *AppError.
func KindOf(err error) Kind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
