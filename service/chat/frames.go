package chat

import (
	"encoding/json"
	"time"

	"PPGate/tools/errs"
)

// Wire protocol: every frame is one JSON text message with a "type"
// discriminator. Unknown fields are ignored on the way in.

const (
	FrameTypePing      = "ping"
	FrameTypePong      = "pong"
	FrameTypeChat      = "chat"
	FrameTypeTyping    = "typing"
	FrameTypeBroadcast = "broadcast"
	FrameTypeMessage   = "message" // server-wide broadcast delivery
	FrameTypeSystem    = "system"
	FrameTypeError     = "error"
)

const (
	SystemActionJoin  = "join"
	SystemActionLeave = "leave"
)

// Frame is the outbound envelope. Only the fields relevant to a given
// type are populated; omitempty keeps the wire format sparse.
type Frame struct {
	Type      string `json:"type"`
	Sender    string `json:"sender,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	RoomID    string `json:"room_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Action    string `json:"action,omitempty"`
	Code      int    `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Inbound is a decoded client frame: the discriminator plus the raw
// fields, which handlers decode into their own payload structs.
type Inbound struct {
	Type   string
	Fields map[string]any
}

// ChatPayload is the client payload for chat and broadcast frames.
// The timestamp is caller-supplied and passed through untouched.
type ChatPayload struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ParseFrame decodes raw into the envelope. Anything that is not a
// JSON object fails; a missing "type" parses fine and is later treated
// as an unknown type.
func ParseFrame(raw []byte) (*Inbound, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errs.ErrBadFrame.WithDetail(err.Error())
	}
	t, _ := m["type"].(string)
	return &Inbound{Type: t, Fields: m}, nil
}

// ---- server-built frames ----

func BuildPong() Frame {
	return Frame{Type: FrameTypePong}
}

func BuildChat(sender, roomID, content, timestamp string) Frame {
	return Frame{
		Type:      FrameTypeChat,
		Sender:    sender,
		RoomID:    roomID,
		Content:   content,
		Timestamp: timestamp,
	}
}

func BuildTyping(userID, roomID string) Frame {
	return Frame{Type: FrameTypeTyping, UserID: userID, RoomID: roomID}
}

func BuildMessage(sender, content, timestamp string) Frame {
	return Frame{
		Type:      FrameTypeMessage,
		Sender:    sender,
		Content:   content,
		Timestamp: timestamp,
	}
}

func BuildSystem(action, userID, roomID string) Frame {
	return Frame{
		Type:      FrameTypeSystem,
		Action:    action,
		UserID:    userID,
		RoomID:    roomID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func BuildError(ce *errs.CodeError) Frame {
	return Frame{Type: FrameTypeError, Code: ce.Code, Message: ce.Msg}
}
