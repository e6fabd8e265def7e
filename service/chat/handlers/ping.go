package handlers

import (
	"PPGate/service/chat"
)

// PingHandler answers application-level liveness probes. No registry
// side effects.
type PingHandler struct{}

func NewPingHandler() chat.Handler { return &PingHandler{} }

func (h *PingHandler) Type() string { return chat.FrameTypePing }

func (h *PingHandler) Handle(ctx *chat.Context, _ *chat.Inbound, c *chat.Client) error {
	ctx.S.Reply(c, chat.BuildPong())
	return nil
}
