package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"petshop/internal/logger"
	"petshop/internal/models"
)

// rateLimitedMessage deliberately covers both the cooldown rejection
// and the missing-identifier case, so abusive clients cannot tell
// which check fired.
const rateLimitedMessage = "Please wait a moment before placing another order"

// Handler handles HTTP requests for order submission
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// Register mounts the order routes on the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/orders", h.WithLogging(h.SubmitOrder))
}

// SubmitOrder handles POST /orders requests
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodPost {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.writeErrorResponse(w, http.StatusBadRequest, "Content-Type must be application/json", requestID)
		return
	}

	var req models.SubmitOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	// The origin address comes from the connection, never the payload.
	req.IPAddress = clientIP(r)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	response, err := h.service.SubmitOrder(ctx, &req, requestID)
	if err != nil {
		h.writeSubmitError(w, err, requestID, &req)
		return
	}

	h.logger.Debug("order_submitted", "Order submitted successfully", requestID, map[string]interface{}{
		"order_id": response.OrderID.String(),
		"total":    response.Total.StringFixed(2),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

// writeSubmitError maps each failure to its own specific message
func (h *Handler) writeSubmitError(w http.ResponseWriter, err error, requestID string, req *models.SubmitOrderRequest) {
	var validationErr *models.ValidationError
	var stockErr *models.InsufficientStockError

	switch {
	case errors.As(err, &validationErr):
		h.writeErrorResponse(w, http.StatusBadRequest, validationErr.Error(), requestID)
	case errors.Is(err, models.ErrRateLimited):
		h.writeErrorResponse(w, http.StatusTooManyRequests, rateLimitedMessage, requestID)
	case errors.As(err, &stockErr):
		h.writeErrorResponse(w, http.StatusConflict,
			fmt.Sprintf("Not enough stock for %s: only %d left", stockErr.Name, stockErr.Available), requestID)
	default:
		h.logger.Error("order_submission_failed", "Failed to submit order", requestID, err, map[string]interface{}{
			"customer_name": req.CustomerName,
			"service_type":  req.ServiceType,
		})
		h.writeErrorResponse(w, http.StatusInternalServerError, "We couldn't save your order, please try again", requestID)
	}
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(healthy func(ctx context.Context) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ok := healthy(ctx)

		response := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "order-service",
		}

		w.Header().Set("Content-Type", "application/json")
		if ok {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			response["status"] = "unhealthy"
		}

		json.NewEncoder(w).Encode(response)
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

// WithLogging adds request logging middleware
func (h *Handler) WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.Header.Get("User-Agent"),
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}

		next(rw, r)

		duration := time.Since(start)
		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// clientIP extracts the best-effort client address, preferring proxy
// headers over the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
