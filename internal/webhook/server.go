package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/karenbot/karen/internal/conversation"
	"github.com/karenbot/karen/internal/models"
	"github.com/karenbot/karen/internal/responder"
)

// Server is the HTTP entry point the messaging pipeline calls with SMS
// events. It runs one synchronous classify-extract-persist-reply cycle
// per request.
type Server struct {
	manager   *conversation.Manager
	responder responder.Responder
	logger    *zap.Logger

	addr      string
	server    *http.Server
	startedAt time.Time
}

func NewServer(addr string, manager *conversation.Manager, rsp responder.Responder, logger *zap.Logger) *Server {
	return &Server{
		manager:   manager,
		responder: rsp,
		logger:    logger,
		addr:      addr,
	}
}

// Handler builds the route table. It is split from Start so tests can
// drive the server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/webhook/sms", s.handleSMS)
	mux.HandleFunc("/context/", s.handleContext)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Start serves until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.startedAt = time.Now()
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	s.logger.Info("Webhook server listening", zap.String("address", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// smsEvent is the inbound message event from the messaging collaborator.
type smsEvent struct {
	PhoneNumber  string            `json:"phone_number"`
	Text         string            `json:"text"`
	Direction    models.Direction  `json:"direction,omitempty"`
	CustomerInfo map[string]string `json:"customer_info,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type smsResponse struct {
	Reply          string       `json:"reply,omitempty"`
	State          models.State `json:"state"`
	ConversationID string       `json:"conversation_id"`
}

func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event smsEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if event.Direction == "" {
		event.Direction = models.DirectionInbound
	}

	ctx := r.Context()
	var thread *models.Thread
	var err error
	if event.Direction == models.DirectionInbound && len(event.CustomerInfo) > 0 {
		thread, err = s.manager.StartConversation(ctx, event.PhoneNumber, event.Text, event.CustomerInfo)
	} else {
		thread, err = s.manager.AddMessage(ctx, event.PhoneNumber, event.Text, event.Direction, event.Metadata)
	}
	if errors.Is(err, conversation.ErrInvalidPhoneNumber) {
		s.writeError(w, "phone_number is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger.Error("Failed to process message",
			zap.Error(err),
			zap.String("phone_number", event.PhoneNumber))
		s.writeError(w, "message processing incomplete", http.StatusBadGateway)
		return
	}

	// Outbound events only record Karen's side of the exchange.
	if event.Direction == models.DirectionOutbound {
		s.writeJSON(w, http.StatusOK, smsResponse{
			State:          thread.State,
			ConversationID: thread.ID,
		})
		return
	}

	reply := s.replyTo(ctx, thread)
	s.writeJSON(w, http.StatusOK, smsResponse{
		Reply:          reply,
		State:          thread.State,
		ConversationID: thread.ID,
	})
}

// replyTo picks Karen's answer to the just-appended inbound message and
// records it on the thread. A failure to record is logged but does not
// withhold the reply already composed for the customer.
func (s *Server) replyTo(ctx context.Context, thread *models.Thread) string {
	summary, err := s.manager.GetContext(ctx, thread.PhoneNumber)
	if err != nil {
		s.logger.Error("Failed to build context summary",
			zap.Error(err),
			zap.String("phone_number", thread.PhoneNumber))
		return ""
	}

	msgType := models.MessageTypeOther
	if last := thread.LastMessage(); last != nil {
		msgType = last.Type
	}

	reply, err := s.responder.Reply(ctx, summary, msgType)
	if err != nil {
		s.logger.Error("Failed to compose reply",
			zap.Error(err),
			zap.String("phone_number", thread.PhoneNumber))
		return ""
	}

	if _, err := s.manager.AddMessage(ctx, thread.PhoneNumber, reply, models.DirectionOutbound, nil); err != nil {
		s.logger.Error("Failed to record reply",
			zap.Error(err),
			zap.String("phone_number", thread.PhoneNumber))
	}
	return reply
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	phone := strings.TrimPrefix(r.URL.Path, "/context/")
	if phone == "" {
		s.writeError(w, "phone number required", http.StatusBadRequest)
		return
	}

	summary, err := s.manager.GetContext(r.Context(), phone)
	if errors.Is(err, conversation.ErrInvalidPhoneNumber) {
		s.writeError(w, "invalid phone number", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger.Error("Failed to get context", zap.Error(err))
		s.writeError(w, "context unavailable", http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.manager.Stats(r.Context())
	if err != nil {
		s.logger.Error("Failed to get stats", zap.Error(err))
		s.writeError(w, "stats unavailable", http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.startedAt).Round(time.Second).String()
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": uptime,
	})
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, msg string, code int) {
	var resp errorResponse
	resp.Error.Message = msg
	resp.Error.Code = code
	s.writeJSON(w, code, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
