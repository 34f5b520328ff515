package validation

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nijaru/vid-text/errors"
)

// AllowedExtensions is the fixed container allow-list.
var AllowedExtensions = map[string]bool{
	"mp4":  true,
	"mov":  true,
	"avi":  true,
	"webm": true,
	"mkv":  true,
	"flv":  true,
	"wmv":  true,
}

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 1 << 20

type Validator struct {
	maxFileBytes int64
}

func NewValidator(maxFileBytes int64) *Validator {
	return &Validator{maxFileBytes: maxFileBytes}
}

// MaxBodyBytes bounds the whole multipart request body.
func (v *Validator) MaxBodyBytes() int64 {
	return v.maxFileBytes + multipartOverhead
}

// ValidateRequest checks method, content type and declared length.
func (v *Validator) ValidateRequest(r *http.Request) error {
	const op = "Validator.ValidateRequest"

	if r.Method != http.MethodPost {
		return errors.Validation(op, nil, fmt.Sprintf("Method %s not allowed", r.Method))
	}

	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
		return errors.Validation(op, nil, "Content-Type must be multipart/form-data")
	}

	if r.ContentLength > v.MaxBodyBytes() {
		return errors.TooLarge(op, nil, v.tooLargeMessage())
	}

	return nil
}

// ValidateFile checks the declared extension and size of one upload.
func (v *Validator) ValidateFile(filename string, size int64) error {
	const op = "Validator.ValidateFile"

	if strings.TrimSpace(filename) == "" {
		return errors.Validation(op, nil, "No video file provided")
	}

	ext := Extension(filename)
	if ext == "" {
		return errors.Validation(op, nil, "File has no extension")
	}
	if !AllowedExtensions[ext] {
		return errors.Validation(op, nil, fmt.Sprintf("Unsupported file type %q. Allowed: %s", ext, allowedList()))
	}

	if size <= 0 {
		return errors.Validation(op, nil, "Uploaded file is empty")
	}
	if size > v.maxFileBytes {
		return errors.TooLarge(op, nil, v.tooLargeMessage())
	}

	return nil
}

func (v *Validator) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %d MB", v.maxFileBytes>>20)
}

// Extension returns the lower-cased extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func allowedList() string {
	return "mp4, mov, avi, webm, mkv, flv, wmv"
}
