package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"smatact/go_backend/internal/app/http/handlers"
	"smatact/go_backend/internal/app/http/middleware"
)

func NewRouter(h *handlers.Handlers, internalToken string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logging(log))

	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {

		// Customer-facing signals arrive without the internal token.
		r.Post("/quotations/{id}/view", h.MarkViewed)
		r.Post("/quotations/{id}/sign", h.SignQuotation)

		r.Group(func(r chi.Router) {
			r.Use(middleware.InternalAuth(internalToken))

			r.Post("/quotations", h.CreateQuotation)
			r.Get("/quotations/{id}", h.GetQuotation)
			r.Post("/quotations/{id}/generate", h.GenerateDraft)
			r.Post("/quotations/{id}/approve", h.ApproveQuotation)
			r.Get("/quotations/{id}/document", h.Document)
			r.Post("/quotations/{id}/send", h.SendQuotation)
			r.Post("/quotations/{id}/cancel", h.CancelQuotation)
			r.Put("/quotations/{id}/items", h.EditItems)
			r.Get("/quotations/{id}/receipts", h.Receipts)
		})
	})

	return r
}
