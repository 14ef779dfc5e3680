package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"exohab/internal/common"
	"exohab/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsWriteWait  = 10 * time.Second
)

// handleWebSocket streams predictions: every text frame carries one planet
// record and is answered by one prediction or error envelope.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	connID := RequestID(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("request_id", connID).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer func() {
		conn.Close()
		log.Debug().Str("request_id", connID).Msg("WebSocket connection closed")
	}()

	conn.SetReadLimit(s.opts.MaxBodyBytes)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for seq := 0; ; seq++ {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("request_id", connID).Msg("WebSocket read failed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if msgType != websocket.TextMessage {
			continue
		}

		id := fmt.Sprintf("%s-%d", connID, seq)
		reply := s.streamPrediction(id, data)

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.Warn().Err(err).Str("request_id", id).Msg("WebSocket write failed")
			return
		}
	}
}

func (s *Server) streamPrediction(id string, data []byte) any {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	err := dec.Decode(&raw)
	switch {
	case errors.Is(err, io.EOF), err == nil && raw == nil:
		return errorBody(errors.New(common.ErrMsgNoJSON), id)
	case err != nil:
		return errorBody(fmt.Errorf("Invalid JSON: %v", err), id)
	}

	res, err := s.svc.PredictRaw(raw)
	if err != nil {
		return errorBody(err, id)
	}
	s.record(storage.SourceWebSocket, id, res)
	return predictionResponse{Success: true, Result: res, RequestID: id}
}
