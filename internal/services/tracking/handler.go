package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"petshop/internal/logger"
	"petshop/internal/models"
)

// Handler handles HTTP requests for order tracking
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new tracking handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// Register mounts the tracking routes on the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/orders/track", h.TrackOrder)
}

// TrackOrder handles GET /orders/track requests. Lookups accept either
// ?code= (an identifier fragment) or ?contact= (exact contact number);
// code wins when both are present.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	code := r.URL.Query().Get("code")
	contact := r.URL.Query().Get("contact")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var order *models.Order
	var err error
	switch {
	case code != "":
		order, err = h.service.FindByIdentifierFragment(ctx, code, requestID)
	case contact != "":
		order, err = h.service.FindMostRecentByContact(ctx, contact, requestID)
	default:
		h.writeErrorResponse(w, http.StatusBadRequest, "Provide a code or contact query parameter", requestID)
		return
	}
	if err != nil {
		h.writeLookupError(w, err, requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(order); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error, requestID string) {
	var validationErr *models.ValidationError

	switch {
	case errors.As(err, &validationErr):
		h.writeErrorResponse(w, http.StatusBadRequest, validationErr.Error(), requestID)
	case errors.Is(err, models.ErrOrderNotFound):
		h.writeErrorResponse(w, http.StatusNotFound, "No matching order found", requestID)
	default:
		h.writeErrorResponse(w, http.StatusInternalServerError, "Order lookup failed, please try again", requestID)
	}
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}
