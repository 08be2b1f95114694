package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Websocket message types.
const (
	MessageStage  = "stage"
	MessageResult = "result"
	MessageError  = "error"
)

// WebSocketRequest asks for one marksheet to be processed. Image carries the
// raw file bytes, base64 encoded in JSON.
type WebSocketRequest struct {
	Mode        string `json:"mode,omitempty"`
	ExpectedSem string `json:"expected_sem,omitempty"`
	Filename    string `json:"filename"`
	Image       []byte `json:"image"`
}

// WebSocketMessage is sent to the client: one "stage" message per completed
// stage, then a single "result" or "error".
type WebSocketMessage struct {
	Type      string               `json:"type"`
	RequestID string               `json:"request_id,omitempty"`
	Stage     *pipeline.StageEvent `json:"stage,omitempty"`
	Result    *ProcessResponse     `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	Code      int                  `json:"code,omitempty"`
}

// WebSocketConnWriter is the part of a websocket connection used to reply.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// processWebSocketHandler processes marksheets sent over a websocket and
// streams stage progress back.
func (s *Server) processWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(conn)
}

func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			// Processing can outlast the read deadline.
			_ = conn.SetReadDeadline(time.Time{})
			s.handleWebSocketMessage(conn, data)
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}
}

// handleWebSocketMessage processes one request and writes its replies.
func (s *Server) handleWebSocketMessage(conn WebSocketConnWriter, data []byte) {
	requestID := uuid.NewString()

	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocket(conn, WebSocketMessage{Type: MessageError, RequestID: requestID,
			Error: fmt.Sprintf("Failed to parse request: %v", err), Code: http.StatusBadRequest})
		return
	}
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "No image data provided", http.StatusBadRequest)
		return
	}
	uploadSizeBytes.Observe(float64(len(req.Image)))

	mode := req.Mode
	if mode == "" {
		mode = pipeline.ModeSchool
	}
	if mode != pipeline.ModeSchool && mode != pipeline.ModeCollege {
		s.sendWebSocketError(conn, requestID, "mode must be school or college", http.StatusBadRequest)
		return
	}

	path, err := s.saveUpload(bytes.NewReader(req.Image), req.Filename)
	if err != nil {
		s.sendWebSocketError(conn, requestID, err.Error(), http.StatusBadRequest)
		return
	}
	defer s.discardUpload(path)

	obs := func(ev pipeline.StageEvent) {
		s.sendWebSocket(conn, WebSocketMessage{Type: MessageStage, RequestID: requestID, Stage: &ev})
	}

	res, status, err := s.process(context.Background(), path, mode, req.ExpectedSem, obs)
	if err != nil {
		s.sendWebSocketError(conn, requestID, err.Error(), status)
		return
	}
	s.sendWebSocket(conn, WebSocketMessage{Type: MessageResult, RequestID: requestID, Result: res})
}

func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, message string, code int) {
	s.sendWebSocket(conn, WebSocketMessage{Type: MessageError, RequestID: requestID, Error: message, Code: code})
}

func (s *Server) sendWebSocket(conn WebSocketConnWriter, msg WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
