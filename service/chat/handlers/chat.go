package handlers

import (
	"PPGate/service/chat"
	"PPGate/tools/decode"
	"PPGate/tools/errs"
)

// ChatHandler relays room chat. Only room-scoped connections may use
// it; everyone in the room, sender included, gets the frame.
type ChatHandler struct{}

func NewChatHandler() chat.Handler { return &ChatHandler{} }

func (h *ChatHandler) Type() string { return chat.FrameTypeChat }

func (h *ChatHandler) Handle(ctx *chat.Context, f *chat.Inbound, c *chat.Client) error {
	if c.RoomID == "" {
		return errs.ErrNoRoom
	}
	p, err := decode.DecodeMap[chat.ChatPayload](f.Fields)
	if err != nil {
		return errs.ErrBadFrame.WithDetail(err.Error())
	}
	ctx.S.Broadcaster().SendToRoom(c.RoomID,
		chat.BuildChat(c.UserID, c.RoomID, p.Content, p.Timestamp))
	return nil
}

// TypingHandler relays typing indicators. Transient: delivery is best
// effort and nothing is retried.
type TypingHandler struct{}

func NewTypingHandler() chat.Handler { return &TypingHandler{} }

func (h *TypingHandler) Type() string { return chat.FrameTypeTyping }

func (h *TypingHandler) Handle(ctx *chat.Context, _ *chat.Inbound, c *chat.Client) error {
	if c.RoomID == "" {
		return errs.ErrNoRoom
	}
	ctx.S.Broadcaster().SendToRoom(c.RoomID, chat.BuildTyping(c.UserID, c.RoomID))
	return nil
}
