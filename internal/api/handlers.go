package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/command"
	"github.com/example/caprieux-storefront/internal/domain/checkout"
	"github.com/example/caprieux-storefront/internal/domain/order"
	"github.com/example/caprieux-storefront/internal/domain/session"
	"github.com/example/caprieux-storefront/internal/query"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	logger       *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		logger:       logger.Named("api"),
	}
}

// Payment return handlers

// ReturnResponse is the body of the payment return routes.
type ReturnResponse struct {
	checkout.Result
	ReconcileError string `json:"reconcileError,omitempty"`
}

func (h *Handlers) OrderSuccess(w http.ResponseWriter, r *http.Request) {
	h.completePayment(w, r, checkout.OutcomeSuccess)
}

func (h *Handlers) OrderFailed(w http.ResponseWriter, r *http.Request) {
	h.completePayment(w, r, checkout.OutcomeFailure)
}

func (h *Handlers) completePayment(w http.ResponseWriter, r *http.Request, outcome checkout.Outcome) {
	res, err := h.cmdHandler.CompletePayment(r.Context(), command.CompletePayment{
		Outcome: outcome,
		Query:   r.URL.Query(),
	})
	if err != nil {
		h.logger.Error("payment return not reconciled", zap.String("outcome", string(outcome)), zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, ReturnResponse{Result: res, ReconcileError: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, ReturnResponse{Result: res})
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queryHandler.GetCart())
}

// Admin Handlers

func (h *Handlers) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListAllOrders(r.Context())
	if err != nil {
		h.respondQueryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// ExportOrders serves the admin order list as a CSV download.
func (h *Handlers) ExportOrders(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := h.queryHandler.ExportOrders(r.Context(), &buf)
	if err != nil {
		h.respondQueryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) respondQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrForbidden):
		respondJSONError(w, command.Message(err), http.StatusForbidden)
	case errors.Is(err, order.ErrNoOrders):
		respondJSONError(w, query.NoOrdersMessage, http.StatusNotFound)
	default:
		h.logger.Warn("backend query failed", zap.Error(err))
		respondJSONError(w, err.Error(), http.StatusBadGateway)
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}
