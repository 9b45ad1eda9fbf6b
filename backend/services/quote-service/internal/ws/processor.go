package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"sunquote/backend/services/quote-service/internal/apierror"
	"sunquote/backend/services/quote-service/internal/http/middleware"
	"sunquote/backend/services/quote-service/internal/models"
)

// Reply types.
const (
	TypeQuote = "quote"
	TypeError = "error"
)

// QuoteCreator prices quote requests.
type QuoteCreator interface {
	CreateQuote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error)
}

// Envelope is a reply frame.
type Envelope struct {
	Type      string         `json:"type"`
	Quote     *models.Quote  `json:"quote,omitempty"`
	Status    int            `json:"status,omitempty"`
	Error     *apierror.Body `json:"error,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// QuoteProcessor answers each QuoteRequest frame with a quote or an error envelope.
type QuoteProcessor struct {
	quotes QuoteCreator
	logger *zap.Logger
}

// NewQuoteProcessor returns processor.
func NewQuoteProcessor(quotes QuoteCreator, logger *zap.Logger) *QuoteProcessor {
	return &QuoteProcessor{quotes: quotes, logger: logger}
}

func (p *QuoteProcessor) Process(ctx context.Context, clientID string, raw []byte) ([]byte, error) {
	var req models.QuoteRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return json.Marshal(Envelope{
			Type:   TypeError,
			Status: 400,
			Error:  &apierror.Body{Error: "invalid JSON frame"},
		})
	}

	q, err := p.create(ctx, req)
	if err != nil {
		status, body := apierror.From(err)
		if status >= 500 {
			p.logger.Error("stream quote failed", zap.String("client_id", clientID), zap.Error(err))
		}
		return json.Marshal(Envelope{
			Type:      TypeError,
			Status:    status,
			Error:     &body,
			Retryable: apierror.Retryable(status),
		})
	}
	return json.Marshal(Envelope{Type: TypeQuote, Quote: q})
}

func (p *QuoteProcessor) create(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	if err := middleware.AuthorizeQuote(ctx, req); err != nil {
		return nil, err
	}
	return p.quotes.CreateQuote(ctx, req)
}
