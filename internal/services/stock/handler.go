package stock

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"petshop/internal/logger"
	"petshop/internal/models"
)

// Handler exposes the admin-side stock endpoints. Every route is gated
// by the shared admin token; the submit path never goes through here.
type Handler struct {
	ledger     *Ledger
	logger     *logger.Logger
	adminToken string
}

func NewHandler(ledger *Ledger, log *logger.Logger, adminToken string) *Handler {
	return &Handler{
		ledger:     ledger,
		logger:     log,
		adminToken: adminToken,
	}
}

// Register mounts the stock routes on the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/stock/", h.withAuth(h.handleStock))
}

// withAuth checks the shared admin token header
func (h *Handler) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" || r.Header.Get("X-Admin-Token") != h.adminToken {
			h.writeErrorResponse(w, http.StatusUnauthorized, "Invalid admin token", "")
			return
		}
		next(w, r)
	}
}

// handleStock dispatches /admin/stock/{id} and /admin/stock/{id}/availability
func (h *Handler) handleStock(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	rest := strings.TrimPrefix(r.URL.Path, "/admin/stock/")
	idPart, action, _ := strings.Cut(rest, "/")

	itemID, err := uuid.Parse(idPart)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid item id", requestID)
		return
	}

	switch {
	case action == "availability" && r.Method == http.MethodPost:
		h.setAvailability(w, r, itemID, requestID)
	case action == "" && r.Method == http.MethodGet:
		h.getStock(w, r, itemID, requestID)
	case action == "" && r.Method == http.MethodPatch:
		h.updateStock(w, r, itemID, requestID)
	default:
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
	}
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request, itemID uuid.UUID, requestID string) {
	rec, err := h.ledger.Record(r.Context(), itemID)
	if err != nil {
		h.writeStockError(w, err, itemID, requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, rec, requestID)
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request, itemID uuid.UUID, requestID string) {
	var update models.StockUpdate
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&update); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	rec, err := h.ledger.UpdateStock(r.Context(), itemID, update)
	if err != nil {
		h.writeStockError(w, err, itemID, requestID)
		return
	}

	h.logger.Info("stock_updated", "Admin updated stock record", requestID, map[string]interface{}{
		"item_id":        itemID.String(),
		"stock_quantity": rec.Quantity,
	})
	h.writeJSON(w, http.StatusOK, rec, requestID)
}

func (h *Handler) setAvailability(w http.ResponseWriter, r *http.Request, itemID uuid.UUID, requestID string) {
	var req struct {
		IsAvailable *bool `json:"is_available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsAvailable == nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "is_available is required", requestID)
		return
	}

	if err := h.ledger.SetAvailability(r.Context(), itemID, *req.IsAvailable); err != nil {
		h.writeStockError(w, err, itemID, requestID)
		return
	}

	h.logger.Info("availability_overridden", "Admin overrode item availability", requestID, map[string]interface{}{
		"item_id":      itemID.String(),
		"is_available": *req.IsAvailable,
	})
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"item_id":      itemID,
		"is_available": *req.IsAvailable,
	}, requestID)
}

func (h *Handler) writeStockError(w http.ResponseWriter, err error, itemID uuid.UUID, requestID string) {
	if errors.Is(err, models.ErrItemNotFound) {
		h.writeErrorResponse(w, http.StatusNotFound, "Menu item not found", requestID)
		return
	}
	h.logger.Error("stock_request_failed", "Stock operation failed", requestID, err, map[string]interface{}{
		"item_id": itemID.String(),
	})
	h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
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
