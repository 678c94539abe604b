package review

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/medreview-ai/platform/pkg/common/logger"
	"github.com/medreview-ai/platform/pkg/common/models"
	"github.com/medreview-ai/platform/pkg/highlight"
	"github.com/medreview-ai/platform/pkg/reconcile"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/chases/{id}/nlp/system-results", h.handleGetSystemResults).Methods(http.MethodGet)
	r.HandleFunc("/chases/{id}/nlp/system-results", h.handleSaveSystemResults).Methods(http.MethodPost)
	r.HandleFunc("/chases/{id}/nlp/annotations", h.handleSyncAnnotations).Methods(http.MethodPost)
	r.HandleFunc("/chases/{id}/nlp/highlights/diagnosis", h.handleDiagnosisHighlights).Methods(http.MethodGet)
	r.HandleFunc("/chases/{id}/nlp/highlights/diagnosis-dos", h.handleDiagnosisDOSHighlights).Methods(http.MethodGet)
	r.HandleFunc("/chases/{id}/nlp/highlights/negative-exclusions", h.handleNegativeExclusionHighlights).Methods(http.MethodGet)
	r.HandleFunc("/chases/{id}/nlp/highlights/templates", h.handleTemplateHighlights).Methods(http.MethodGet)
	r.HandleFunc("/chases/{id}/nlp/highlights/member", h.handleMemberHighlights).Methods(http.MethodGet)
	r.HandleFunc("/chases/{id}/moveback", h.handleMoveBack).Methods(http.MethodPost)
	r.HandleFunc("/projects/{projectId}/measures/{measureId}/numerators", h.handleNumeratorsByMeasure).Methods(http.MethodGet)
}

func (h *Handler) handleGetSystemResults(w http.ResponseWriter, r *http.Request) {
	chaseID, err := parseChaseID(r)
	if err != nil {
		http.Error(w, "invalid chase id", http.StatusBadRequest)
		return
	}
	data := h.service.SystemResults(r.Context(), chaseID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"chaseNlpData": data})
}

func (h *Handler) handleSaveSystemResults(w http.ResponseWriter, r *http.Request) {
	chaseID, err := parseChaseID(r)
	if err != nil {
		http.Error(w, "invalid chase id", http.StatusBadRequest)
		return
	}
	var data models.ChaseNlpData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	data.ChaseID = chaseID

	if err := h.service.SaveReviewedData(r.Context(), &data, resolveCallerUserID(r, data.CallerUserID)); err != nil {
		var validationErr *reconcile.ValidationError
		if errors.As(err, &validationErr) {
			http.Error(w, validationErr.Message, http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).WithField("chase_id", chaseID).Error("failed to save reviewed system results")
		http.Error(w, "failed to save system results", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSyncAnnotations(w http.ResponseWriter, r *http.Request) {
	chaseID, err := parseChaseID(r)
	if err != nil {
		http.Error(w, "invalid chase id", http.StatusBadRequest)
		return
	}
	var req models.ChaseNlpAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	req.ChaseID = chaseID
	req.CallerUserID = resolveCallerUserID(r, req.CallerUserID)

	if err := h.service.SyncAnnotations(r.Context(), req); err != nil {
		logger.Log.WithError(err).WithField("chase_id", chaseID).Error("failed to sync nlp annotations")
		http.Error(w, "failed to sync annotations", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDiagnosisHighlights(w http.ResponseWriter, r *http.Request) {
	chaseID, err := parseChaseID(r)
	if err != nil {
		http.Error(w, "invalid chase id", http.StatusBadRequest)
		return
	}
	matches := h.service.DiagnosisHighlights(r.Context(), chaseID, parseDiagnosisQuery(r))
	writeHighlights(w, matches)
}

func (h *Handler) handleDiagnosisDOSHighlights(w http.ResponseWriter, r *http.Request) {
	chaseID, err := parseChaseID(r)
	if err != nil {
		http.Error(w, "invalid chase id", http.StatusBadRequest)
		return
	}
	matches := h.service.DiagnosisDOSHighlights(r.Context(), chaseID, parseDiagnosisQuery(r))
	writeHighlights(w, matches)
}

func (h *Handler) handleNegativeExclusionHighlights(w http.ResponseWriter, r *http.Request) {
	chaseID, err := parseChaseID(r)
	if err != nil {
		http.Error(w, "invalid chase id", http.StatusBadRequest)
		return
	}
	writeHighlights(w, h.service.NegativeExclusionHighlights(r.Context(), chaseID))
}

func (h *Handler) handleTemplateHighlights(w http.ResponseWriter, r *http.Request) {
	chaseID, err := parseChaseID(r)
	if err != nil {
		http.Error(w, "invalid chase id", http.StatusBadRequest)
		return
	}
	writeHighlights(w, h.service.TemplateHighlights(r.Context(), chaseID))
}

func (h *Handler) handleMemberHighlights(w http.ResponseWriter, r *http.Request) {
	chaseID, err := parseChaseID(r)
	if err != nil {
		http.Error(w, "invalid chase id", http.StatusBadRequest)
		return
	}
	writeHighlights(w, h.service.MemberHighlights(r.Context(), chaseID))
}

func (h *Handler) handleMoveBack(w http.ResponseWriter, r *http.Request) {
	chaseID, err := parseChaseID(r)
	if err != nil {
		http.Error(w, "invalid chase id", http.StatusBadRequest)
		return
	}
	if err := h.service.MoveBack(r.Context(), chaseID); err != nil {
		logger.Log.WithError(err).WithField("chase_id", chaseID).Error("failed to process chase move-back")
		http.Error(w, "failed to process move-back", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleNumeratorsByMeasure(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID, err := strconv.Atoi(vars["projectId"])
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}
	measureID, err := strconv.Atoi(vars["measureId"])
	if err != nil {
		http.Error(w, "invalid measure id", http.StatusBadRequest)
		return
	}
	numerators, err := h.service.NumeratorsByMeasure(r.Context(), projectID, measureID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list measure numerators")
		http.Error(w, "failed to list numerators", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": numerators})
}

func parseChaseID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}

func parseDiagnosisQuery(r *http.Request) highlight.DiagnosisQuery {
	q := r.URL.Query()
	encounterID, _ := strconv.Atoi(q.Get("encounterId"))
	return highlight.DiagnosisQuery{
		EncounterID:   encounterID,
		DOSFrom:       q.Get("dosFrom"),
		DOSThrough:    q.Get("dosThrough"),
		DiagnosisCode: q.Get("diagnosisCode"),
	}
}

// resolveCallerUserID prefers the gateway-injected header over the body field.
func resolveCallerUserID(r *http.Request, fallback int) int {
	if raw := r.Header.Get("X-Caller-User-Id"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil && id > 0 {
			return id
		}
	}
	return fallback
}

func writeHighlights(w http.ResponseWriter, matches *models.DocumentPageNlpMatches) {
	if matches == nil {
		matches = &models.DocumentPageNlpMatches{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
