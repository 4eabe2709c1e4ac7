package main

import (
	"net/http"

	"chatsync/internal/constants"
	"chatsync/internal/privacy"
	"chatsync/internal/validation"
	"chatsync/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  constants.DefaultMaxFrameBytes,
	WriteBufferSize: constants.DefaultMaxFrameBytes,
	// Session handling and origin policy belong to the surrounding
	// application; the pipeline trusts the identity it is handed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection, registers it, then serves
// join/leave control frames until the peer disconnects.
func (s *Server) handleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		tenantID := r.URL.Query().Get("tenant")
		if err := validation.ValidateUserID(userID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validation.ValidateTenantID(tenantID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.WithError(err).Warn("WebSocket upgrade failed")
			return
		}

		conn := ws.NewConn(wsConn)
		socketID := s.registry.Register(conn, userID, tenantID)

		defer func() {
			s.registry.Unregister(socketID)
			_ = conn.Close()
		}()

		logger := s.logger.WithFields(logrus.Fields{
			"socket_id": socketID,
			"user_id":   privacy.MaskUserID(userID),
		})
		logger.Debug("WebSocket connected")

		for {
			frame, err := conn.ReadFrame()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.WithError(err).Debug("WebSocket closed unexpectedly")
				}
				return
			}

			switch frame.Action {
			case ws.ActionJoin:
				if err := s.registry.JoinRoom(r.Context(), socketID, frame.Room); err != nil {
					logger.WithError(err).WithField("room", privacy.MaskRoom(frame.Room)).Warn("Room join rejected")
				}
			case ws.ActionLeave:
				if err := s.registry.LeaveRoom(socketID, frame.Room); err != nil {
					logger.WithError(err).Warn("Room leave failed")
				}
			default:
				logger.WithField("action", frame.Action).Warn("Unknown control frame action")
			}
		}
	}
}
