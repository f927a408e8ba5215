package decision

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claimsight-ai/platform/pkg/common/logger"
	"github.com/claimsight-ai/platform/pkg/common/models"
	"github.com/claimsight-ai/platform/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
	audit   AuditStore
	maxBody int64
}

func NewHTTPHandler(service *Service, audit AuditStore, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, audit: audit, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/decisions", h.handleEvaluate).Methods(http.MethodPost)
	router.HandleFunc("/decisions", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/decisions/{id}", h.handleGet).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var c models.ClinicalCase
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		logger.Log.WithError(err).Warn("invalid decision payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Evaluate(r.Context(), c)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientData) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to evaluate case")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	metrics.ObserveDecision(result.Tier, result.Degraded)
	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		http.Error(w, "decision audit store disabled", http.StatusNotImplemented)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	records, err := h.audit.List(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list decision records")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": records})
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		http.Error(w, "decision audit store disabled", http.StatusNotImplemented)
		return
	}

	rec, err := h.audit.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			http.Error(w, "decision not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch decision record")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
