package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karenbot/karen/internal/conversation"
	"github.com/karenbot/karen/internal/models"
	"github.com/karenbot/karen/internal/responder"
	"github.com/karenbot/karen/internal/storage"
)

func newTestServer() (*Server, *conversation.Manager) {
	m := conversation.NewManager(storage.NewMemoryStorage(), conversation.Config{}, zap.NewNop())
	s := NewServer(":0", m, responder.NewTemplateResponder(), zap.NewNop())
	return s, m
}

func postSMS(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/sms", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleSMSHappyPath(t *testing.T) {
	s, _ := newTestServer()
	handler := s.Handler()

	rec := postSMS(t, handler, `{"phone_number":"+17575551234","text":"Hi, I need to schedule a plumbing appointment"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp smsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StateScheduling, resp.State)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Contains(t, resp.Reply, "plumbing")

	// The reply must be on the record too.
	rec = get(t, handler, "/context/+17575551234")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.ContextSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.True(t, summary.HasConversation)
	assert.Equal(t, 2, summary.MessageCount)
	assert.Equal(t, models.DirectionOutbound, summary.RecentMessages[1].Direction)
}

func TestHandleSMSEmergency(t *testing.T) {
	s, _ := newTestServer()
	handler := s.Handler()

	rec := postSMS(t, handler, `{"phone_number":"+17575559999","text":"EMERGENCY! My basement is flooding!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp smsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StateComplete, resp.State)
	assert.Contains(t, resp.Reply, "emergency")

	rec = get(t, handler, "/context/+17575559999")
	var summary models.ContextSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, true, summary.Context[models.ContextRequiresHuman])
}

func TestHandleSMSCustomerInfo(t *testing.T) {
	s, _ := newTestServer()
	handler := s.Handler()

	rec := postSMS(t, handler, `{"phone_number":"+17575551234","text":"hello","customer_info":{"name":"Dana"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, handler, "/context/+17575551234")
	var summary models.ContextSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Contains(t, summary.ConversationSummary, "Dana")
}

func TestHandleSMSOutboundRecordOnly(t *testing.T) {
	s, _ := newTestServer()
	handler := s.Handler()

	rec := postSMS(t, handler, `{"phone_number":"+17575551234","text":"Reminder: our crew arrives at 9am","direction":"outbound"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp smsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Reply, "outbound events get no reply")
	assert.NotEmpty(t, resp.ConversationID)

	rec = get(t, handler, "/context/+17575551234")
	var summary models.ContextSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.MessageCount)
}

func TestHandleSMSEmptyPhone(t *testing.T) {
	s, _ := newTestServer()

	rec := postSMS(t, s.Handler(), `{"phone_number":"","text":"hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSMSMalformedBody(t *testing.T) {
	s, _ := newTestServer()

	rec := postSMS(t, s.Handler(), `this is not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSMSMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer()

	rec := get(t, s.Handler(), "/webhook/sms")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type downStore struct{}

func (downStore) LoadThread(ctx context.Context, phone string) (*models.Thread, error) {
	return nil, errors.New("backend down")
}
func (downStore) SaveThread(ctx context.Context, thread *models.Thread) error {
	return errors.New("backend down")
}
func (downStore) DeleteThread(ctx context.Context, phone string) error {
	return errors.New("backend down")
}
func (downStore) ListActiveThreads(ctx context.Context) ([]*models.Thread, error) {
	return nil, errors.New("backend down")
}
func (downStore) Type() string { return "down" }
func (downStore) Close() error { return nil }

func TestHandleSMSStoreFailure(t *testing.T) {
	m := conversation.NewManager(downStore{}, conversation.Config{}, zap.NewNop())
	s := NewServer(":0", m, responder.NewTemplateResponder(), zap.NewNop())

	rec := postSMS(t, s.Handler(), `{"phone_number":"+17575551234","text":"hello"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "message processing incomplete", resp.Error.Message)
}

func TestHandleContextUnknownPhone(t *testing.T) {
	s, _ := newTestServer()

	rec := get(t, s.Handler(), "/context/+15550001111")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.ContextSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.False(t, summary.HasConversation)
	assert.Zero(t, summary.MessageCount)
}

func TestHandleContextInvalidPhone(t *testing.T) {
	s, _ := newTestServer()

	rec := get(t, s.Handler(), "/context/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, s.Handler(), "/context/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStats(t *testing.T) {
	s, m := newTestServer()

	_, err := m.StartConversation(context.Background(), "+17575551111", "hello", nil)
	require.NoError(t, err)
	_, err = m.StartConversation(context.Background(), "+17575552222", "I need an appointment", nil)
	require.NoError(t, err)

	rec := get(t, s.Handler(), "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats conversation.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.ActiveConversations)
	assert.Equal(t, "memory", stats.StorageType)
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer()

	rec := get(t, s.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}
