package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"PPGate/logger"
	"PPGate/metrics"
	"PPGate/tools/errs"
	"PPGate/tools/ids"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS is the generic endpoint: identity is optional. A supplied
// credential must resolve or the connection is rejected before it
// ever enters the registry.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[WS] upgrade error: %v", err)
		return
	}

	userID := ""
	if token := c.Query("token"); token != "" {
		userID, err = s.resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			logger.Infof("[WS] reject bad credential: %v", err)
			closePolicyViolation(ws, s.cfg.WriteWait)
			return
		}
	}

	s.serveConn(ws, userID, "")
}

// HandleRoomWS is the room-scoped endpoint: identity is mandatory.
// No credential means an immediate policy-violation close, without
// attempting resolution.
func (s *Server) HandleRoomWS(c *gin.Context) {
	roomID := c.Param("room_id")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[WS] upgrade error: %v", err)
		return
	}

	token := c.Query("token")
	if token == "" {
		logger.Infof("[WS] reject room connect without credential room=%s", roomID)
		closePolicyViolation(ws, s.cfg.WriteWait)
		return
	}
	userID, err := s.resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		logger.Infof("[WS] reject bad credential room=%s err=%v", roomID, err)
		closePolicyViolation(ws, s.cfg.WriteWait)
		return
	}

	s.serveConn(ws, userID, roomID)
}

// serveConn registers the connection and runs its receive loop. The
// loop exit — remote close, read error, or an evict-triggered socket
// close — funnels into the single teardown below.
func (s *Server) serveConn(ws *websocket.Conn, userID, roomID string) {
	cl := NewClient(ids.GenerateConnID(), userID, roomID, ws, s.cfg.SendQueueSize)

	s.reg.Connect(cl)
	metrics.ActiveConnections.Inc()
	if userID != "" {
		if err := s.presence.Online(context.Background(), userID); err != nil {
			logger.Warnf("[presence] online failed user=%s err=%v", userID, err)
		}
	}
	logger.Infof("[WS] connected conn=%s user=%s room=%s", cl.ConnID, userID, roomID)

	go cl.WritePump(s.cfg.PingInterval, s.cfg.WriteWait, func() {
		if userID != "" {
			if err := s.presence.Renew(context.Background(), userID); err != nil {
				logger.Debugf("[presence] renew failed user=%s err=%v", userID, err)
			}
		}
	})

	if roomID != "" {
		s.bc.SendToRoom(roomID, BuildSystem(SystemActionJoin, userID, roomID))
	}

	s.readLoop(cl)
	s.teardown(cl)
}

func (s *Server) readLoop(cl *Client) {
	for {
		mt, data, err := cl.WS.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn=%s", cl.ConnID)
			} else {
				logger.Infof("[WS] read err conn=%s err=%v", cl.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			ce, _ := errs.AsCodeError(perr)
			s.Reply(cl, BuildError(ce))
			continue
		}

		if err := s.disp.Dispatch(&Context{S: s}, frame, cl); err != nil {
			if ce, ok := errs.AsCodeError(err); ok {
				s.Reply(cl, BuildError(ce))
				continue
			}
			logger.Errorf("[WS] handler err conn=%s type=%s err=%v", cl.ConnID, frame.Type, err)
		}
	}
}

// teardown runs the disconnect path exactly once per connection: the
// registry first, then the leave event, so room peers observe the
// departure only after the indices no longer contain the client.
func (s *Server) teardown(cl *Client) {
	s.reg.Disconnect(cl)
	metrics.ActiveConnections.Dec()
	cl.Shutdown()

	if cl.UserID != "" && len(s.reg.LookupUser(cl.UserID)) == 0 {
		if err := s.presence.Offline(context.Background(), cl.UserID); err != nil {
			logger.Warnf("[presence] offline failed user=%s err=%v", cl.UserID, err)
		}
	}

	if cl.RoomID != "" {
		s.bc.SendToRoom(cl.RoomID, BuildSystem(SystemActionLeave, cl.UserID, cl.RoomID))
	}
	logger.Infof("[WS] disconnected conn=%s user=%s room=%s", cl.ConnID, cl.UserID, cl.RoomID)
}

func closePolicyViolation(ws *websocket.Conn, writeWait time.Duration) {
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "policy violation"),
		time.Now().Add(writeWait))
	_ = ws.Close()
}
