package handlers

import (
	"PPGate/service/chat"
	"PPGate/tools/decode"
	"PPGate/tools/errs"
)

// BroadcastHandler fans a message out to every connection on the
// node. Anonymous connections get an error frame and nothing moves.
type BroadcastHandler struct{}

func NewBroadcastHandler() chat.Handler { return &BroadcastHandler{} }

func (h *BroadcastHandler) Type() string { return chat.FrameTypeBroadcast }

func (h *BroadcastHandler) Handle(ctx *chat.Context, f *chat.Inbound, c *chat.Client) error {
	if c.UserID == "" {
		return errs.ErrUnauthorized
	}
	p, err := decode.DecodeMap[chat.ChatPayload](f.Fields)
	if err != nil {
		return errs.ErrBadFrame.WithDetail(err.Error())
	}
	ctx.S.Broadcaster().SendToAll(chat.BuildMessage(c.UserID, p.Content, p.Timestamp))
	return nil
}

// RegisterAll wires every frame handler into the server's dispatcher.
func RegisterAll(s *chat.Server) {
	s.Disp().Register(NewPingHandler())
	s.Disp().Register(NewChatHandler())
	s.Disp().Register(NewTypingHandler())
	s.Disp().Register(NewBroadcastHandler())
}
