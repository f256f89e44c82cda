package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"aiswo-backend/internal/alerts"
	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/database"
	"aiswo-backend/internal/middleware"
	"aiswo-backend/internal/models"
	"aiswo-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handlers-test-secret"

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "generated answer", nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alerts.Alert
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(ctx context.Context, alert alerts.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

type testServer struct {
	handler  http.Handler
	store    *store.MemoryStore
	notifier *recordingNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, database.SeedDemo(context.Background(), st, zap.NewNop()))

	cache := store.NewSnapshotCache(st, 0)
	assistant := chatbot.NewAssistant(cache, stubGenerator{}, chatbot.NewHistory(10), st, zap.NewNop())
	notifier := &recordingNotifier{}
	monitor := alerts.NewMonitor(alerts.DefaultThreshold, zap.NewNop(), notifier)

	return &testServer{
		handler: NewRouter(Deps{
			Store:     st,
			Assistant: assistant,
			Monitor:   monitor,
			Cache:     cache,
			JWTSecret: testSecret,
			Backend:   "memory",
			Logger:    zap.NewNop(),
		}),
		store:    st,
		notifier: notifier,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, middleware.UserClaims{UserID: userID, Email: userID + "@aiswo.io", Role: role}, time.Now())
	require.NoError(t, err)
	return tok
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status        string           `json:"status"`
		Backend       string           `json:"backend"`
		SnapshotCache store.CacheStats `json:"snapshotCache"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "memory", body.Backend)

	s.do(t, http.MethodPost, "/chatbot/message", chatMessageRequest{UserID: "u1", Message: "show all bins"}, "")
	rec = s.do(t, http.MethodGet, "/health", nil, "")
	decode(t, rec, &body)
	assert.Equal(t, int64(1), body.SnapshotCache.Misses)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		email    string
		password string
		want     int
		role     string
	}{
		{"admin", database.DemoAdminEmail, database.DemoAdminPassword, http.StatusOK, models.RoleAdmin},
		{"operator", "john@aiswo.io", database.DemoOperatorPassword, http.StatusOK, models.RoleOperator},
		{"wrong password", "john@aiswo.io", "nope", http.StatusUnauthorized, ""},
		{"unknown email", "ghost@aiswo.io", "whatever", http.StatusUnauthorized, ""},
		{"missing password", "john@aiswo.io", "", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/login", models.LoginRequest{Email: tt.email, Password: tt.password}, "")
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want != http.StatusOK {
				return
			}

			var resp models.LoginResponse
			decode(t, rec, &resp)
			assert.True(t, resp.OK)
			require.NotNil(t, resp.User)
			assert.Equal(t, tt.role, resp.User.Role)

			claims, err := middleware.ParseToken(testSecret, resp.Token)
			require.NoError(t, err)
			assert.Equal(t, resp.User.UserID, claims.UserID)
		})
	}
}

func TestGetBinsAndStats(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/bins", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bins []models.Bin
	decode(t, rec, &bins)
	require.Len(t, bins, 6)
	assert.Equal(t, "bin1", bins[0].ID)

	assert.Eventually(t, func() bool {
		s.notifier.mu.Lock()
		defer s.notifier.mu.Unlock()
		return len(s.notifier.alerts) == 2
	}, time.Second, 10*time.Millisecond)

	rec = s.do(t, http.MethodGet, "/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.Stats
	decode(t, rec, &stats)
	assert.Equal(t, 6, stats.TotalBins)
	assert.Equal(t, 2, stats.FullBins)
}

func TestGetBinNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/bins/bin99", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBinWritesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	req := models.CreateBinRequest{ID: "bin7", Name: "Gym", Location: "Gym Entrance"}

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/bins", req, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/bins", req, token(t, "op1", models.RoleOperator)).Code)

	admin := token(t, "admin", models.RoleAdmin)
	rec := s.do(t, http.MethodPost, "/bins", req, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/bins", req, admin).Code)

	rec = s.do(t, http.MethodPut, "/bins/bin7", models.UpdateBinRequest{FillPct: models.Float(40)}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Message string     `json:"message"`
		Bin     models.Bin `json:"bin"`
	}
	decode(t, rec, &updated)
	assert.Equal(t, "Bin updated successfully", updated.Message)
	require.NotNil(t, updated.Bin.FillPct)
	assert.Equal(t, 40.0, *updated.Bin.FillPct)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/bins/bin7", nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/bins/bin7", nil, admin).Code)
}

func TestClearBin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/operators/op1/bins/bin2/clear", nil, token(t, "op2", models.RoleOperator))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/operators/op1/bins/bin2/clear", models.ClearBinRequest{Note: "emptied"}, token(t, "op1", models.RoleOperator))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cleared struct {
		CompletedBins []string   `json:"completedBins"`
		Bin           models.Bin `json:"bin"`
	}
	decode(t, rec, &cleared)
	assert.Equal(t, []string{"bin2"}, cleared.CompletedBins)
	assert.Equal(t, "bin2", cleared.Bin.ID)

	bin, err := s.store.GetBin(context.Background(), "bin2")
	require.NoError(t, err)
	assert.Equal(t, 0.0, *bin.FillPct)
	assert.Equal(t, "op1", bin.LastClearedBy)

	rec = s.do(t, http.MethodGet, "/bins/bin2/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []models.BinEvent
	decode(t, rec, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "op1", events[0].OperatorID)
	assert.Equal(t, "emptied", events[0].Note)

	rec = s.do(t, http.MethodPost, "/operators/op1/bins/bin99/clear", nil, token(t, "admin", models.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperatorProgressAndTasks(t *testing.T) {
	s := newTestServer(t)
	op1 := token(t, "op1", models.RoleOperator)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/operators/op1/progress", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/operators/op1/progress", nil, token(t, "op2", models.RoleOperator)).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/operators/op9/progress", nil, token(t, "admin", models.RoleAdmin)).Code)

	rec := s.do(t, http.MethodGet, "/operators/op1/progress", nil, op1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var progress models.OperatorProgress
	decode(t, rec, &progress)
	assert.Empty(t, progress.CompletedBins)
	require.Len(t, progress.Tasks, 3)

	rec = s.do(t, http.MethodPost, "/operators/op1/tasks/"+models.TaskReport, models.UpdateTaskRequest{Completed: true}, op1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		Tasks []models.OperatorTask `json:"tasks"`
	}
	decode(t, rec, &updated)
	require.Len(t, updated.Tasks, 3)
	assert.Equal(t, models.TaskReport, updated.Tasks[1].ID)
	assert.True(t, updated.Tasks[1].Completed)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/operators/op1/tasks/dance", models.UpdateTaskRequest{Completed: true}, op1).Code)

	rec = s.do(t, http.MethodPost, "/operators/op1/bins/bin1/clear", nil, op1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/operators/op1/progress", nil, op1)
	decode(t, rec, &progress)
	assert.Equal(t, []string{"bin1"}, progress.CompletedBins)
	assert.True(t, progress.Tasks[1].Completed)

	undo := false
	rec = s.do(t, http.MethodPost, "/operators/op1/bins/bin1/clear", models.ClearBinRequest{Completed: &undo}, op1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var undone struct {
		CompletedBins []string `json:"completedBins"`
	}
	decode(t, rec, &undone)
	assert.Empty(t, undone.CompletedBins)

	events, err := s.store.BinHistory(context.Background(), "bin1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestOperatorLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, "admin", models.RoleAdmin)

	create := models.CreateOperatorRequest{ID: "op4", Name: "Meera", Email: "meera@aiswo.io", Password: "secret1", AssignedBins: []string{"bin6"}}
	rec := s.do(t, http.MethodPost, "/operators", create, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret1")

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/operators", create, admin).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/operators", models.CreateOperatorRequest{Name: "x"}, admin).Code)

	rec = s.do(t, http.MethodPost, "/login", models.LoginRequest{Email: "meera@aiswo.io", Password: "secret1"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/operators/op4", models.UpdateOperatorRequest{Password: "secret2"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/login", models.LoginRequest{Email: "meera@aiswo.io", Password: "secret2"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/operators/op4", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var op models.Operator
	decode(t, rec, &op)
	assert.Equal(t, "Meera", op.Name)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/operators/op4", nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/operators/op4", nil, "").Code)
}

func TestChatbotEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/chatbot/message", chatMessageRequest{UserID: "u1", Message: "Is bin2 full?"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reply chatbot.Reply
	decode(t, rec, &reply)
	assert.Equal(t, chatbot.SourceRules, reply.Source)
	assert.Equal(t, "u1", reply.ConversationID)

	rec = s.do(t, http.MethodPost, "/chatbot/message", chatMessageRequest{UserID: "u1", Message: "  "}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/chatbot/history/u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		UserID       string         `json:"userId"`
		History      []chatbot.Turn `json:"history"`
		MessageCount int            `json:"messageCount"`
	}
	decode(t, rec, &history)
	assert.Equal(t, 2, history.MessageCount)

	rec = s.do(t, http.MethodDelete, "/chatbot/history/u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/chatbot/history/u1", nil, "")
	decode(t, rec, &history)
	assert.Equal(t, 0, history.MessageCount)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/chatbot/stats", nil, "").Code)
}

func TestReportIssue(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/chatbot/report", models.ReportRequest{UserID: "u1", BinID: "bin3", Issue: "lid damaged"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Ticket  models.Ticket `json:"ticket"`
		Message string        `json:"message"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "bin3", body.Ticket.BinID)
	assert.Equal(t, "Issue reported successfully", body.Message)
	assert.Len(t, s.store.Tickets(), 1)

	rec = s.do(t, http.MethodPost, "/chatbot/report", models.ReportRequest{UserID: "u1"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendTestAlert(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/test-alert/bin3", map[string]float64{"fillPct": 95}, token(t, "admin", models.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	s.notifier.mu.Lock()
	defer s.notifier.mu.Unlock()
	require.Len(t, s.notifier.alerts, 1)
	assert.Equal(t, "bin3", s.notifier.alerts[0].BinID)
	assert.Equal(t, "op2", s.notifier.alerts[0].OperatorID)
	assert.Equal(t, 95.0, s.notifier.alerts[0].FillPercent)
}
