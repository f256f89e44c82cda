package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aiswo-backend/internal/alerts"
	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/middleware"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "ws-secret"

var _ alerts.Notifier = (*Hub)(nil)

type echoChat struct{}

func (echoChat) Chat(ctx context.Context, userID, message string) (chatbot.Reply, error) {
	return chatbot.Reply{Response: userID + ": " + message, Source: chatbot.SourceRules, Timestamp: time.Now()}, nil
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(echoChat{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(HandleWebSocket(hub, testSecret))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, user middleware.UserClaims) *websocket.Conn {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, user, time.Now())
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestRejectsMissingOrBadToken(t *testing.T) {
	_, srv := startHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url+"/", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"/?token=nope", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestNotifyReachesAdminsAndAssignedOperator(t *testing.T) {
	hub, srv := startHub(t)
	admin := dial(t, srv, middleware.UserClaims{UserID: "admin1", Role: "admin"})
	operator := dial(t, srv, middleware.UserClaims{UserID: "op1", Role: "operator"})
	other := dial(t, srv, middleware.UserClaims{UserID: "op2", Role: "operator"})
	_ = other

	require.Eventually(t, func() bool { return hub.GetClientCount() == 3 }, 2*time.Second, 10*time.Millisecond)

	err := hub.Notify(context.Background(), alerts.Alert{BinID: "bin2", BinName: "Cafeteria", FillPercent: 91, OperatorID: "op1", RaisedAt: time.Now()})
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{admin, operator} {
		msg := readEnvelope(t, conn)
		assert.Equal(t, TypeBinAlert, msg["type"])
		data := msg["data"].(map[string]interface{})
		assert.Equal(t, "bin2", data["binId"])
	}
}

func TestPingAndChat(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, middleware.UserClaims{UserID: "op1", Role: "operator"})
	require.Eventually(t, func() bool { return hub.IsUserConnected("op1") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping"}))
	assert.Equal(t, TypePong, readEnvelope(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "chat", "data": map[string]string{"message": "is bin2 full?"}}))
	msg := readEnvelope(t, conn)
	assert.Equal(t, TypeChatReply, msg["type"])
	data := msg["data"].(map[string]interface{})
	assert.Equal(t, "op1: is bin2 full?", data["response"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "chat", "data": map[string]string{}}))
	assert.Equal(t, TypeError, readEnvelope(t, conn)["type"])
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, middleware.UserClaims{UserID: "op1", Role: "operator"})
	require.Eventually(t, func() bool { return hub.IsUserConnected("op1") }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return !hub.IsUserConnected("op1") }, 2*time.Second, 10*time.Millisecond)
}
