package policy

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claimsight-ai/platform/pkg/common/logger"
	"github.com/claimsight-ai/platform/pkg/common/models"
	"github.com/gorilla/mux"
)

// HTTPHandler exposes corpus management out-of-band from per-case decisions.
type HTTPHandler struct {
	service   *Service
	indexPath string
	maxBody   int64
}

func NewHTTPHandler(service *Service, indexPath string, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, indexPath: indexPath, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/policies", h.handleIngest).Methods(http.MethodPost)
	router.HandleFunc("/policies/{id}/reindex", h.handleReindex).Methods(http.MethodPost)
	router.HandleFunc("/index/persist", h.handlePersist).Methods(http.MethodPost)
	router.HandleFunc("/index/reload", h.handleReload).Methods(http.MethodPost)
	router.HandleFunc("/index/rebuild", h.handleRebuild).Methods(http.MethodPost)
	router.HandleFunc("/index/summary", h.handleSummary).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.IngestPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid policy payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Text == "" {
		http.Error(w, "name and text are required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.IngestDocument(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).Error("failed to ingest policy document")
		http.Error(w, "failed to ingest policy", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *HTTPHandler) handleReindex(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	chunks, err := h.service.ReindexDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "policy document not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to reindex policy document")
		http.Error(w, "failed to reindex policy", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"document_id": id, "chunks": chunks})
}

func (h *HTTPHandler) handlePersist(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Index().Persist(h.indexPath); err != nil {
		logger.Log.WithError(err).Error("failed to persist policy index")
		http.Error(w, "failed to persist index", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"path": h.indexPath})
}

func (h *HTTPHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Index().Load(h.indexPath); err != nil {
		logger.Log.WithError(err).Error("failed to reload policy index")
		http.Error(w, "failed to reload index", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.summary())
}

func (h *HTTPHandler) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RebuildFromCorpus(r.Context()); err != nil {
		logger.Log.WithError(err).Error("failed to rebuild policy index")
		http.Error(w, "failed to rebuild index", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.summary())
}

func (h *HTTPHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.summary())
}

func (h *HTTPHandler) summary() map[string]interface{} {
	index := h.service.Index()
	return map[string]interface{}{
		"chunks":         index.Size(),
		"documents":      len(index.Documents()),
		"dimension":      index.Dimension(),
		"corpus_version": index.CorpusVersion(),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
