package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"smatact/go_backend/internal/domain/quotation"
)

type Handlers struct {
	Quotes *quotation.Service
	Log    *zap.Logger
}

func New(quotes *quotation.Service, log *zap.Logger) *Handlers {
	return &Handlers{Quotes: quotes, Log: log}
}

// writeError maps the pipeline error taxonomy onto HTTP statuses. The
// message names the failing step; internal defects stay opaque.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var (
		transition  *quotation.TransitionError
		stale       *quotation.StaleDocumentError
		genUnavail  *quotation.GenerationUnavailableError
		permFail    *quotation.DeliveryPermanentError
		sendFail    *quotation.DeliveryFailedError
		determinism *quotation.RenderDeterminismViolation
		fontErr     *quotation.FontRegistrationError
	)
	switch {
	case errors.Is(err, quotation.ErrNotFound):
		http.Error(w, "quotation not found", http.StatusNotFound)
	case errors.As(err, &transition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &stale):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &genUnavail):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &permFail):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &sendFail):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.As(err, &determinism), errors.As(err, &fontErr):
		h.Log.Error("render pipeline defect", zap.Error(err))
		http.Error(w, "document rendering failed", http.StatusInternalServerError)
	default:
		h.Log.Error("request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
