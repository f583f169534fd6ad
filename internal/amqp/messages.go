package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ChangeMessage announces one effective state transition. It carries no
// record payload; consumers load the session snapshot themselves.
type ChangeMessage struct {
	SessionID string    `json:"sessionId"`
	Kind      string    `json:"kind"`
	RecordID  string    `json:"recordId,omitempty"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(sessionID, kind, recordID string, version int64) *ChangeMessage {
	return &ChangeMessage{
		SessionID: sessionID,
		Kind:      kind,
		RecordID:  recordID,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON parses a message and rejects ones without a session.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SessionID == "" {
		return nil, errors.New("change message without session id")
	}
	return &msg, nil
}
