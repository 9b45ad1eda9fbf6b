package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"sunquote/backend/services/quote-service/internal/apierror"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apierror.Body{Error: message})
}

// writeServiceError maps err to a status and logs failures that are not the caller's fault.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status, body := apierror.From(err)
	switch {
	case status >= http.StatusInternalServerError && apierror.Retryable(status):
		w.Header().Set("Retry-After", "5")
		logger.Warn(op+" unavailable", zap.Error(err))
	case status >= http.StatusInternalServerError:
		logger.Error(op+" failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}
