package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-fleet-monitor/internal/audit"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/broadcast"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/catalog"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/console/handler"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/console/service"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/domain"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/engine"
	"github.com/xela07ax/spaceai-fleet-monitor/internal/infra"
)

type closedBreaker struct{}

func (closedBreaker) Open() bool { return false }

// testConsole собирает консоль поверх чистого снапшота без БД и Redis
func testConsole(t *testing.T) (*ConsoleServer, *engine.State) {
	t.Helper()

	logger := zap.NewNop()
	state := engine.NewState(engine.DefaultLimits())
	storage := engine.NullStorage{}
	trail := audit.NewTrail(audit.NullStorage{}, logger, 100, 50*time.Millisecond)
	trail.Start()
	t.Cleanup(trail.Stop)

	api := &catalog.MockCatalog{}
	notify := broadcast.NopPublisher{}

	monitorSvc := service.NewMonitorService(state, storage, api, closedBreaker{}, trail, notify, logger)
	ruleSvc := service.NewRuleService(state, storage, trail, notify, logger)

	srv := NewConsoleServer(&infra.Config{}, logger,
		handler.NewMonitorHandler(monitorSvc),
		handler.NewRuleHandler(ruleSvc),
		prometheus.NewRegistry(),
	)
	return srv, state
}

func doJSON(t *testing.T, srv http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := testConsole(t)

	assert.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/metrics", nil).Code)
}

func TestGetInfrastructure(t *testing.T) {
	srv, state := testConsole(t)
	state.SyncServices([]domain.Service{
		{ID: "svc-1", Name: "api", Status: domain.ServiceActive},
		{ID: "svc-2", Name: "worker", Status: domain.ServiceCrashed},
	}, true)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/infrastructure", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sum domain.InfrastructureSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 2, sum.TotalServices)
	assert.Equal(t, 1, sum.ActiveServices)
}

func TestGetServiceDetail_NotFound(t *testing.T) {
	srv, _ := testConsole(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/services/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetServiceDetail_IncludesWindowedStats(t *testing.T) {
	srv, state := testConsole(t)
	state.SyncServices([]domain.Service{{ID: "svc-1", Name: "api", Status: domain.ServiceActive}}, true)
	for i := 1; i <= 3; i++ {
		state.RecordSample(domain.MetricSample{
			Timestamp: time.Now().Add(-time.Duration(i) * time.Minute),
			ServiceID: "svc-1",
			CPU:       float64(i * 10),
		})
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/services/svc-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail domain.ServiceDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Len(t, detail.Samples, 3)
	require.NotEmpty(t, detail.Stats)

	var hourCPU *domain.MetricStats
	for i := range detail.Stats {
		if detail.Stats[i].Metric == "cpu" && detail.Stats[i].Window == "1h" {
			hourCPU = &detail.Stats[i]
		}
	}
	require.NotNil(t, hourCPU)
	assert.Equal(t, 3, hourCPU.Count)
	assert.InDelta(t, 20.0, hourCPU.Mean, 1e-9)
}

func TestRuleLifecycle(t *testing.T) {
	srv, state := testConsole(t)

	rule := domain.AlertRule{
		Name:             "High CPU",
		Metric:           domain.RuleMetricCPU,
		Condition:        domain.CondGreaterThan,
		Threshold:        80,
		SustainedMinutes: 5,
		Severity:         domain.SeverityHigh,
		Enabled:          true,
	}

	// Create
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/rules", rule)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var created domain.AlertRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	// List
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rules []domain.AlertRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	require.Len(t, rules, 1)

	// Update
	created.Threshold = 90
	rec = doJSON(t, srv, http.MethodPut, "/api/v1/rules/"+created.ID, created)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := state.Rule(created.ID)
	require.NoError(t, err)
	assert.InDelta(t, 90.0, got.Threshold, 1e-9)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)

	// Delete
	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/rules/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, state.Rules())

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRule_ValidationFails(t *testing.T) {
	srv, _ := testConsole(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/rules", domain.AlertRule{
		Name:      "broken",
		Metric:    "latency", // неподдерживаемая метрика
		Condition: domain.CondGreaterThan,
		Severity:  domain.SeverityHigh,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertsFilterAndAcknowledge(t *testing.T) {
	srv, state := testConsole(t)

	state.ApplyAlerts([]domain.Alert{
		{ID: "a-1", ServiceID: "svc-1", RuleID: "r-1", Severity: domain.SeverityHigh, Status: domain.AlertNew},
		{ID: "a-2", ServiceID: "svc-2", RuleID: "r-2", Severity: domain.SeverityLow, Status: domain.AlertNew},
	}, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/alerts?severity=high", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []domain.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "a-1", alerts[0].ID)

	// Подтверждение с актором из заголовка
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a-1/acknowledge", nil)
	req.Header.Set("X-Actor", "oncall")
	ackRec := httptest.NewRecorder()
	srv.ServeHTTP(ackRec, req)
	require.Equal(t, http.StatusOK, ackRec.Code)

	var acked domain.Alert
	require.NoError(t, json.Unmarshal(ackRec.Body.Bytes(), &acked))
	assert.Equal(t, domain.AlertAcknowledged, acked.Status)
	require.NotNil(t, acked.AcknowledgedAt)

	// Повторно подтверждать закрытый алерт нельзя
	state.ApplyAlerts(nil, []string{"a-1"})
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/alerts/a-1/acknowledge", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/alerts/missing/acknowledge", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSystemStatus(t *testing.T) {
	srv, state := testConsole(t)
	state.RecordError("metrics", "svc-1", "metrics endpoint 500")
	state.FinishPoll(true)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/system/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status domain.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.LastPollOK)
	assert.Equal(t, "memory-only", status.StorageMode)
	require.Len(t, status.RecentErrors, 1)
	assert.Equal(t, "metrics", status.RecentErrors[0].Step)
}

func TestIncidentsFilter(t *testing.T) {
	srv, state := testConsole(t)
	state.SetIncidents([]*domain.Incident{
		{ID: "i-1", Status: domain.IncidentActive},
		{ID: "i-2", Status: domain.IncidentResolved},
	})

	rec := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/incidents?status=%s", domain.IncidentActive), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var incidents []domain.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &incidents))
	require.Len(t, incidents, 1)
	assert.Equal(t, "i-1", incidents[0].ID)
}
