package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/console/service"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/engine"
)

type MonitorHandler struct {
	service *service.MonitorService
}

func NewMonitorHandler(s *service.MonitorService) *MonitorHandler {
	return &MonitorHandler{service: s}
}

// GetInfrastructure возвращает сводку для главного экрана.
// GET /api/v1/infrastructure
func (h *MonitorHandler) GetInfrastructure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Infrastructure())
}

// GetServiceDetail возвращает карточку сервиса с историей.
// GET /api/v1/services/{id}
func (h *MonitorHandler) GetServiceDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := h.service.ServiceDetail(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, detail)
}

// GetServiceSLA — SLA по четырем окнам.
// GET /api/v1/services/{id}/sla
func (h *MonitorHandler) GetServiceSLA(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	records, err := h.service.ServiceSLA(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, records)
}

// GetAlerts — список с фильтрами ?status=&severity=
func (h *MonitorHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	f := engine.AlertFilter{
		Status:   domain.AlertStatus(r.URL.Query().Get("status")),
		Severity: domain.Severity(r.URL.Query().Get("severity")),
	}
	writeJSON(w, h.service.Alerts(f))
}

// AcknowledgeAlert подтверждает алерт от имени актора из X-Actor.
// POST /api/v1/alerts/{id}/acknowledge
func (h *MonitorHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := r.Header.Get("X-Actor")
	if actor == "" {
		actor = "dashboard"
	}

	alert, err := h.service.AcknowledgeAlert(r.Context(), id, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, alert)
}

func (h *MonitorHandler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Anomalies())
}

func (h *MonitorHandler) GetCost(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Costs())
}

func (h *MonitorHandler) GetCostForecast(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Forecast())
}

// GetIncidents — список с фильтром ?status=
func (h *MonitorHandler) GetIncidents(w http.ResponseWriter, r *http.Request) {
	status := domain.IncidentStatus(r.URL.Query().Get("status"))
	writeJSON(w, h.service.Incidents(status))
}

// GetSystemStatus — диагностика: журнал ошибок, staleness, предохранитель.
// GET /api/v1/system/status
func (h *MonitorHandler) GetSystemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.SystemStatus())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Encoding error", http.StatusInternalServerError)
	}
}

// writeJSONStatus — как writeJSON, но с явным кодом ответа. Заголовки
// выставляются до статусной строки, после нее они уже не уходят.
func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит доменные ошибки в коды HTTP
func writeError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.As(err, &vErr):
		http.Error(w, vErr.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal error: "+err.Error(), http.StatusInternalServerError)
	}
}
