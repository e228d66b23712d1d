package amqp

import (
	"testing"
	"time"
)

func TestStagedMessageEventRoundTrip(t *testing.T) {
	msg := NewStagedMessageEvent(42, 7)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := StagedMessageEventFromJSON(data)
	if err != nil {
		t.Fatalf("StagedMessageEventFromJSON() error = %v", err)
	}

	if got.ID != 42 || got.UserID != 7 {
		t.Errorf("round trip = id %d user %d, want id 42 user 7", got.ID, got.UserID)
	}
	if time.Since(got.Timestamp) > time.Minute {
		t.Errorf("timestamp %v not recent", got.Timestamp)
	}
}

func TestStagedMessageEventFromJSONInvalid(t *testing.T) {
	if _, err := StagedMessageEventFromJSON([]byte("not json")); err == nil {
		t.Error("StagedMessageEventFromJSON() expected error for invalid body, got nil")
	}
}
