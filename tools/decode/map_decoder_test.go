package decode

import (
	"encoding/json"
	"testing"
)

type samplePayload struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Seq       int64  `json:"seq"`
}

func TestDecodeMap(t *testing.T) {
	var m map[string]any
	raw := `{"type":"chat","content":"hi","timestamp":"t1","seq":7,"junk":true}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}

	p, err := DecodeMap[samplePayload](m)
	if err != nil {
		t.Fatalf("DecodeMap: %v", err)
	}
	if p.Content != "hi" || p.Timestamp != "t1" || p.Seq != 7 {
		t.Fatalf("decoded %+v", p)
	}
}

func TestDecodeMapWeakTyping(t *testing.T) {
	m := map[string]any{"content": 123, "seq": "42"}
	p, err := DecodeMap[samplePayload](m)
	if err != nil {
		t.Fatalf("DecodeMap: %v", err)
	}
	if p.Content != "123" || p.Seq != 42 {
		t.Fatalf("decoded %+v", p)
	}
}

func TestDecodeMapNil(t *testing.T) {
	if _, err := DecodeMap[samplePayload](nil); err == nil {
		t.Fatal("DecodeMap(nil) succeeded")
	}
}
