package httpserver

import (
	"net/http"

	"github.com/rs/cors"

	"sunquote/backend/services/quote-service/internal/http/handlers"
	"sunquote/backend/services/quote-service/internal/http/middleware"
)

// Routes groups HTTP handlers.
type Routes struct {
	Quotes *handlers.QuoteHandlers
	Stream http.HandlerFunc
	Health http.HandlerFunc
}

// NewRouter registers service endpoints. Everything except /health passes through staff auth.
func NewRouter(routes Routes, auth func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}

	authenticated := func(handler http.HandlerFunc) http.Handler {
		if auth == nil {
			return handler
		}
		return middleware.Chain(handler, auth)
	}

	if q := routes.Quotes; q != nil {
		mux.Handle("/quotes", method(http.MethodPost, authenticated(q.Create)))
		mux.Handle("/installation/estimate", method(http.MethodPost, authenticated(q.EstimateInstallation)))
		mux.Handle("/installation/compare", method(http.MethodPost, authenticated(q.CompareInstallation)))
		mux.Handle("/rebates/calculate", method(http.MethodPost, authenticated(q.CalculateRebates)))
		mux.Handle("/zones/{postcode}", method(http.MethodGet, authenticated(q.Zone)))
	}
	if routes.Stream != nil {
		mux.Handle("/ws/quotes", method(http.MethodGet, authenticated(routes.Stream)))
	}
	return mux
}

// CORS wraps the handler with the allowed browser origins. An empty list allows any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	})
	return c.Handler
}

// OriginAllowed reports whether a websocket origin is in the CORS list.
func OriginAllowed(allowedOrigins []string) func(string) bool {
	return func(origin string) bool {
		if len(allowedOrigins) == 0 {
			return true
		}
		for _, o := range allowedOrigins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
