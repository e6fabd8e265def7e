package chat

import (
	"encoding/json"
	"testing"

	"PPGate/tools/errs"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"chat","content":"hi","timestamp":"t1","extra":42}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Type != "chat" {
		t.Fatalf("Type = %q, want chat", f.Type)
	}
	if f.Fields["content"] != "hi" {
		t.Fatalf("content = %v", f.Fields["content"])
	}
}

func TestParseFrameMissingType(t *testing.T) {
	// a valid object without "type" parses; dispatch later rejects it
	f, err := ParseFrame([]byte(`{"content":"hi"}`))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Type != "" {
		t.Fatalf("Type = %q, want empty", f.Type)
	}
}

func TestParseFrameMalformed(t *testing.T) {
	for _, raw := range []string{"not json", `"just a string"`, `[1,2,3]`} {
		_, err := ParseFrame([]byte(raw))
		if err == nil {
			t.Fatalf("ParseFrame(%q) accepted malformed input", raw)
		}
		ce, ok := errs.AsCodeError(err)
		if !ok || ce.Code != errs.CodeBadFrame {
			t.Fatalf("ParseFrame(%q) err = %v, want bad-frame code", raw, err)
		}
	}
}

func TestBuildFramesWireShape(t *testing.T) {
	payload, err := json.Marshal(BuildChat("u1", "r1", "hi", "ts"))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"type": "chat", "sender": "u1", "room_id": "r1",
		"content": "hi", "timestamp": "ts",
	}
	for k, v := range want {
		if m[k] != v {
			t.Fatalf("chat frame %s = %v, want %v", k, m[k], v)
		}
	}
	if _, ok := m["message"]; ok {
		t.Fatal("chat frame carries an empty message field")
	}

	payload, _ = json.Marshal(BuildError(errs.ErrUnknownType))
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != "error" || m["message"] != "unknown message type" {
		t.Fatalf("error frame = %v", m)
	}
}

func TestDispatchUnknownType(t *testing.T) {
	d := NewDispatcher()
	err := d.Dispatch(nil, &Inbound{Type: "nonsense"}, nil)
	ce, ok := errs.AsCodeError(err)
	if !ok || ce.Code != errs.CodeUnknownType {
		t.Fatalf("Dispatch err = %v, want unknown-type code", err)
	}
}
