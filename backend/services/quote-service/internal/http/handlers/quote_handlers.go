package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"sunquote/backend/services/quote-service/internal/http/middleware"
	"sunquote/backend/services/quote-service/internal/models"
	"sunquote/backend/services/quote-service/internal/service"
)

// QuoteService is the pricing surface exposed over HTTP.
type QuoteService interface {
	CreateQuote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error)
	EstimateInstallation(ctx context.Context, job models.InstallationJob) (*models.InstallationEstimate, error)
	CompareInstallation(ctx context.Context, job models.InstallationJob) (*models.InstallationComparison, error)
	CalculateRebates(ctx context.Context, req service.RebateRequest) (*models.RebateResult, error)
	LookupZone(ctx context.Context, postcode string) (*models.ZoneInfo, error)
}

// QuoteHandlers serves the quote, installation, rebate and zone endpoints.
type QuoteHandlers struct {
	svc    QuoteService
	logger *zap.Logger
}

// NewQuoteHandlers returns handler.
func NewQuoteHandlers(svc QuoteService, logger *zap.Logger) *QuoteHandlers {
	return &QuoteHandlers{svc: svc, logger: logger}
}

// Create handles POST /quotes.
func (h *QuoteHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req models.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.AuthorizeQuote(r.Context(), req); err != nil {
		writeServiceError(w, h.logger, "quote", err)
		return
	}

	q, err := h.svc.CreateQuote(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "quote", err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// EstimateInstallation handles POST /installation/estimate.
func (h *QuoteHandlers) EstimateInstallation(w http.ResponseWriter, r *http.Request) {
	var job models.InstallationJob
	if err := decodeJSON(w, r, &job); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	est, err := h.svc.EstimateInstallation(r.Context(), job)
	if err != nil {
		writeServiceError(w, h.logger, "installation estimate", err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// CompareInstallation handles POST /installation/compare.
func (h *QuoteHandlers) CompareInstallation(w http.ResponseWriter, r *http.Request) {
	var job models.InstallationJob
	if err := decodeJSON(w, r, &job); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cmp, err := h.svc.CompareInstallation(r.Context(), job)
	if err != nil {
		writeServiceError(w, h.logger, "installation compare", err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// CalculateRebates handles POST /rebates/calculate.
func (h *QuoteHandlers) CalculateRebates(w http.ResponseWriter, r *http.Request) {
	var req service.RebateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.CalculateRebates(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "rebates", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Zone handles GET /zones/{postcode}.
func (h *QuoteHandlers) Zone(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.LookupZone(r.Context(), r.PathValue("postcode"))
	if err != nil {
		writeServiceError(w, h.logger, "zone lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
