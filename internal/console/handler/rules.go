package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/console/service"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
)

type RuleHandler struct {
	service *service.RuleService
}

func NewRuleHandler(s *service.RuleService) *RuleHandler {
	return &RuleHandler{service: s}
}

// List возвращает все правила для админки
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.List())
}

// Get возвращает детали конкретного правила по его ID.
// GET /api/v1/rules/{id}
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rule, err := h.service.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, rule)
}

// Create создает новое правило
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rule domain.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), actorFrom(r), rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, created)
}

// Update обновляет существующее правило (порог, длительность, severity)
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var rule domain.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(r.Context(), actorFrom(r), id, rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, updated)
}

// Delete удаляет правило
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "dashboard"
}
