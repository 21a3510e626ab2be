package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"BilgiNotifier/internal/delivery/handlers"
	"BilgiNotifier/internal/domain"
	"BilgiNotifier/internal/templates"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotificationService мок для NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendNotification(ctx context.Context, params domain.EnqueueParams) domain.SendResult {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.SendResult)
}

func (m *MockNotificationService) GetQueueStats() domain.ServiceStats {
	return m.Called().Get(0).(domain.ServiceStats)
}

func (m *MockNotificationService) GetJobStatus(ctx context.Context, id uuid.UUID) (*domain.JobSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JobSnapshot), args.Error(1)
}

func (m *MockNotificationService) ListTemplates() []domain.Template {
	return m.Called().Get(0).([]domain.Template)
}

func newContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	req, _ := http.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// TestSendNotificationHandler_Accepted проверяет постановку уведомления в очередь
func TestSendNotificationHandler_Accepted(t *testing.T) {
	mockService := new(MockNotificationService)
	h := handlers.NewHandlersSet(mockService)
	id := uuid.New()

	mockService.On("SendNotification", mock.Anything, mock.MatchedBy(func(p domain.EnqueueParams) bool {
		return p.TemplateName == "welcome" &&
			p.Priority == domain.PriorityHigh &&
			len(p.Recipients) == 1 &&
			p.Recipients[0].Address == "ayse@example.com" &&
			p.Recipients[0].DisplayName == "Ayşe" &&
			p.Recipients[0].Variables["userName"] == "Ayşe" &&
			p.Variables["appUrl"] == "https://bilgibite.com"
	})).Return(domain.SendResult{Success: true, MessageID: id.String()})

	body := `{
		"template": "welcome",
		"recipients": [{"address": "ayse@example.com", "display_name": "Ayşe", "variables": {"userName": "Ayşe"}}],
		"variables": {"appUrl": "https://bilgibite.com"},
		"priority": "high"
	}`
	c, w := newContext("POST", "/notify/", body)

	h.SendNotificationHandler(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	response := decode(t, w)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, id.String(), response["messageId"])
	mockService.AssertExpectations(t)
}

// TestSendNotificationHandler_IntegerVariables проверяет, что целые числа из JSON рендерятся без экспоненты
func TestSendNotificationHandler_IntegerVariables(t *testing.T) {
	mockService := new(MockNotificationService)
	h := handlers.NewHandlersSet(mockService)
	var captured domain.EnqueueParams
	mockService.On("SendNotification", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(domain.EnqueueParams) }).
		Return(domain.SendResult{Success: true, MessageID: uuid.New().String()})

	body := `{
		"template": "level-up",
		"recipients": [{"address": "ayse@example.com", "variables": {"level": 12}}],
		"variables": {"userName": "Ayşe", "totalXp": 1500000}
	}`
	c, w := newContext("POST", "/notify/", body)

	h.SendNotificationHandler(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	store := templates.NewStore()
	require.NoError(t, templates.RegisterBuiltin(store))
	job := &domain.Job{Variables: captured.Variables}
	out, err := store.Render(captured.TemplateName, job.VariablesFor(captured.Recipients[0]))
	require.NoError(t, err)
	assert.Contains(t, out.TextBody, "Toplam 1500000 XP ile 12. seviyeye")
	assert.Equal(t, "Seviye atladın! Artık 12. seviyedesin", out.Subject)
	assert.NotContains(t, out.HTMLBody, "e+06")
}

// TestSendNotificationHandler_UnknownTemplate проверяет отказ сервиса
func TestSendNotificationHandler_UnknownTemplate(t *testing.T) {
	mockService := new(MockNotificationService)
	h := handlers.NewHandlersSet(mockService)
	mockService.On("SendNotification", mock.Anything, mock.Anything).
		Return(domain.SendResult{Success: false, Error: "unknown template: missing"})

	c, w := newContext("POST", "/notify/", `{"template": "missing", "recipients": [{"address": "a@example.com"}]}`)

	h.SendNotificationHandler(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decode(t, w)
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "unknown template: missing", response["error"])
}

// TestSendNotificationHandler_InvalidJSON проверяет обработку некорректного JSON
func TestSendNotificationHandler_InvalidJSON(t *testing.T) {
	mockService := new(MockNotificationService)
	h := handlers.NewHandlersSet(mockService)

	c, w := newContext("POST", "/notify/", `{"template": welcome}`)

	h.SendNotificationHandler(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Некорректный JSON")
	mockService.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything)
}

// TestSendNotificationHandler_ValidationError проверяет обработку ошибок валидации
func TestSendNotificationHandler_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty template", body: `{"template": "", "recipients": [{"address": "a@example.com"}]}`},
		{name: "no recipients", body: `{"template": "welcome", "recipients": []}`},
		{name: "bad address", body: `{"template": "welcome", "recipients": [{"address": "not-an-email"}]}`},
		{name: "bad priority", body: `{"template": "welcome", "recipients": [{"address": "a@example.com"}], "priority": "urgent"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockNotificationService)
			h := handlers.NewHandlersSet(mockService)
			c, w := newContext("POST", "/notify/", tt.body)

			h.SendNotificationHandler(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode(t, w), "errors")
			mockService.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything)
		})
	}
}

func TestGetJobStatusHandler_Success(t *testing.T) {
	mockService := new(MockNotificationService)
	h := handlers.NewHandlersSet(mockService)
	id := uuid.New()
	mockService.On("GetJobStatus", mock.Anything, id).
		Return(&domain.JobSnapshot{ID: id, TemplateName: "welcome", Status: domain.StatusSent}, nil)

	c, w := newContext("GET", "/notify/"+id.String(), "")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.GetJobStatusHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	result := decode(t, w)["result"].(map[string]interface{})
	assert.Equal(t, "sent", result["status"])
	assert.Equal(t, "welcome", result["template"])
}

func TestGetJobStatusHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: domain.ErrNotFound, status: http.StatusNotFound},
		{name: "store disabled", err: domain.ErrStatusStoreDisabled, status: http.StatusServiceUnavailable},
		{name: "redis down", err: errors.New("connection refused"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockNotificationService)
			h := handlers.NewHandlersSet(mockService)
			id := uuid.New()
			mockService.On("GetJobStatus", mock.Anything, id).Return(nil, tt.err)

			c, w := newContext("GET", "/notify/"+id.String(), "")
			c.Params = gin.Params{{Key: "id", Value: id.String()}}

			h.GetJobStatusHandler(c)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.err.Error(), decode(t, w)["error"])
		})
	}
}

func TestGetJobStatusHandler_InvalidID(t *testing.T) {
	mockService := new(MockNotificationService)
	h := handlers.NewHandlersSet(mockService)

	c, w := newContext("GET", "/notify/abc", "")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.GetJobStatusHandler(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id is invalid", decode(t, w)["error"])
}

func TestStatsHandler(t *testing.T) {
	mockService := new(MockNotificationService)
	h := handlers.NewHandlersSet(mockService)
	mockService.On("GetQueueStats").Return(domain.ServiceStats{
		TotalQueued:        3,
		Pending:            3,
		Failed:             1,
		HighPriority:       2,
		IsProcessing:       true,
		AvailableTemplates: []string{"level-up", "welcome"},
	})

	c, w := newContext("GET", "/stats", "")

	h.StatsHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Equal(t, float64(3), response["totalQueued"])
	assert.Equal(t, float64(1), response["failed"])
	assert.Equal(t, float64(2), response["highPriority"])
	assert.Equal(t, true, response["isProcessing"])
	assert.Equal(t, []interface{}{"level-up", "welcome"}, response["availableTemplates"])
}

func TestTemplatesHandler(t *testing.T) {
	mockService := new(MockNotificationService)
	h := handlers.NewHandlersSet(mockService)
	mockService.On("ListTemplates").Return([]domain.Template{
		{Name: "welcome", Subject: "Hoş geldin", HTMLBody: "<p>Selam</p>"},
	})

	c, w := newContext("GET", "/templates", "")

	h.TemplatesHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	result := decode(t, w)["result"].([]interface{})
	require.Len(t, result, 1)
	first := result[0].(map[string]interface{})
	assert.Equal(t, "welcome", first["name"])
	assert.NotContains(t, first, "text_body")
}
