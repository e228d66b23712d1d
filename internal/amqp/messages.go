package amqp

import (
	"encoding/json"
	"time"
)

// StagedMessageEvent signals that a staged message is waiting for
// categorization. It carries only the id; the worker fetches the full row
// from the database so the queue never holds stale copies.
type StagedMessageEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewStagedMessageEvent(id, userID int64) *StagedMessageEvent {
	return &StagedMessageEvent{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *StagedMessageEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StagedMessageEventFromJSON(data []byte) (*StagedMessageEvent, error) {
	var msg StagedMessageEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
