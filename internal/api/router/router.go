package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nmoretto/turnero/internal/channels/instagram"
	httpmiddleware "github.com/nmoretto/turnero/internal/http/middleware"
	"github.com/nmoretto/turnero/pkg/logging"
)

// Config holds the router wiring.
type Config struct {
	Logger         *logging.Logger
	Webhook        *instagram.WebhookHandler
	PaymentHook    http.Handler
	MetricsHandler http.Handler
}

// New builds the chi router: the Instagram webhook pair, health and metrics.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if cfg.Webhook != nil {
		r.Route("/webhooks/instagram", func(r chi.Router) {
			r.Get("/", cfg.Webhook.HandleVerification)
			r.Post("/", cfg.Webhook.HandleInbound)
		})
	}

	if cfg.PaymentHook != nil {
		r.Method(http.MethodPost, "/webhooks/mercadopago", cfg.PaymentHook)
	}

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	return r
}
