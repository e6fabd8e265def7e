package chat

import (
	"context"
	"encoding/json"

	"PPGate/global/config"
	"PPGate/logger"
	"PPGate/service/storage"
)

// IdentityResolver turns a bearer credential into a user id. It runs
// synchronously on the connect path; a failure carries no partial
// identity. The gateway never inspects credentials itself.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// Server owns one registry instance and everything layered on it.
// It is constructed explicitly and passed around; there is no
// package-level singleton.
type Server struct {
	cfg      config.AppConfig
	reg      *Registry
	bc       *Broadcaster
	disp     *Dispatcher
	resolver IdentityResolver
	presence *storage.Presence // nil when the mirror is disabled
}

func NewServer(cfg config.AppConfig, resolver IdentityResolver, presence *storage.Presence) *Server {
	s := &Server{
		cfg:      cfg,
		reg:      NewRegistry(),
		disp:     NewDispatcher(),
		resolver: resolver,
		presence: presence,
	}
	s.bc = NewBroadcaster(s.reg, s.evict)
	return s
}

func (s *Server) Registry() *Registry       { return s.reg }
func (s *Server) Broadcaster() *Broadcaster { return s.bc }
func (s *Server) Disp() *Dispatcher         { return s.disp }
func (s *Server) Cfg() config.AppConfig     { return s.cfg }

// Reply sends a frame to a single connection, bypassing the indices.
// Used for pongs and error frames addressed to the offender only.
func (s *Server) Reply(c *Client, f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		logger.Errorf("[reply] marshal frame type=%s err=%v", f.Type, err)
		return
	}
	if !c.Deliver(payload) {
		logger.Warnf("[reply] drop frame conn=%s type=%s", c.ConnID, f.Type)
	}
}

// evict force-closes a connection whose queue stopped draining. The
// socket close wakes its read loop, which then runs the one true
// disconnect path.
func (s *Server) evict(c *Client) {
	logger.Infof("[evict] closing stuck conn=%s user=%s", c.ConnID, c.UserID)
	_ = c.WS.Close()
}

// Shutdown closes every registered connection. The per-connection
// read loops perform their own registry cleanup as the sockets die.
func (s *Server) Shutdown() {
	conns := s.reg.All()
	logger.Infof("[shutdown] closing %d connections", len(conns))
	for _, c := range conns {
		_ = c.WS.Close()
	}
}
