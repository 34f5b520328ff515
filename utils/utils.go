package utils

import (
	"encoding/json"
	"net/http"

	"github.com/nijaru/vid-text/errors"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func HandleError(w http.ResponseWriter, message string, statusCode int) {
	RespondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// RespondWithError writes an AppError's public message and status. Any other
// error becomes a generic 500. Causes are logged, never sent.
func RespondWithError(w http.ResponseWriter, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal("RespondWithError", err, "")
	}

	entry := logrus.WithFields(logrus.Fields{
		"status_code": appErr.Code,
		"kind":        appErr.Kind,
		"op":          appErr.Op,
	})
	if appErr.Err != nil {
		entry = entry.WithError(appErr.Err)
	}
	if appErr.Code >= http.StatusInternalServerError {
		entry.Error(appErr.Message)
	} else {
		entry.Warn(appErr.Message)
	}

	HandleError(w, appErr.Message, appErr.Code)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
	}
}
