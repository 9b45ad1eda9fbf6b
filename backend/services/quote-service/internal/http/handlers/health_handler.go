package handlers

import (
	"context"
	"net/http"
)

// VersionReporter reports the reference data version in service.
type VersionReporter interface {
	SnapshotVersion(ctx context.Context) (string, error)
}

// NewHealthHandler returns GET /health handler. It reports 503 while reference data cannot be loaded.
func NewHealthHandler(reporter VersionReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reporter == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		version, err := reporter.SnapshotVersion(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  "reference data unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":           "ok",
			"referenceVersion": version,
		})
	}
}
