package gateway

import (
	"strings"
	"testing"

	"clanker/pkg/core"
)

func TestServerMessageEnvelope(t *testing.T) {
	ev := NewMessageReceived(core.NewMessage(core.ChannelTelegram, "c1", "u", "hi"))

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"type":"message_received"`) {
		t.Errorf("envelope = %s", s)
	}
	if !strings.Contains(s, `"channel_id":"c1"`) {
		t.Errorf("payload missing channel id: %s", s)
	}
}

func TestSendResponseOmitsEmptyFields(t *testing.T) {
	ok := NewSendResponse(true, "id-1", "", "reply text")
	data, _ := json.Marshal(ok)
	s := string(data)
	if !strings.Contains(s, `"success":true`) || !strings.Contains(s, `"message_id":"id-1"`) {
		t.Errorf("success frame = %s", s)
	}
	if strings.Contains(s, `"error"`) {
		t.Errorf("success frame must omit error: %s", s)
	}

	fail := NewSendResponse(false, "", "boom", "")
	data, _ = json.Marshal(fail)
	s = string(data)
	if !strings.Contains(s, `"success":false`) || !strings.Contains(s, `"error":"boom"`) {
		t.Errorf("failure frame = %s", s)
	}
	if strings.Contains(s, `"content"`) {
		t.Errorf("failure frame must omit content: %s", s)
	}
}

func TestErrorFrameShape(t *testing.T) {
	ev := NewServerError("MESSAGE_ERROR", "bad frame")
	data, _ := json.Marshal(ev)
	s := string(data)
	if !strings.Contains(s, `"type":"error"`) || !strings.Contains(s, `"code":"MESSAGE_ERROR"`) {
		t.Errorf("error frame = %s", s)
	}
}

func TestClientMessageDecode(t *testing.T) {
	raw := `{"type":"subscribe","data":{"channel_id":"X","channel_type":"telegram"}}`

	var frame ClientMessage
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if frame.Type != ClientSubscribe {
		t.Errorf("type = %q", frame.Type)
	}

	var payload SubscribePayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.ChannelID != "X" || payload.ChannelType != core.ChannelTelegram {
		t.Errorf("payload = %+v", payload)
	}
}

func TestHealthResponseSerialization(t *testing.T) {
	h := HealthResponse{
		Status:            "healthy",
		Version:           "1.0.0",
		UptimeSeconds:     100,
		ActiveConnections: 5,
		TotalMessages:     1000,
		ActiveWorkers:     2,
		MaxWorkers:        5,
	}

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		`"status":"healthy"`,
		`"version":"1.0.0"`,
		`"uptime_seconds":100`,
		`"active_connections":5`,
		`"total_messages":1000`,
		`"active_workers":2`,
		`"max_workers":5`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("health json missing %s: %s", want, s)
		}
	}
}
