package queue

import (
	"encoding/json"
	"fmt"
)

// MessageTypeAnalysisRequested asks a worker to run the detection
// pipeline for an already-created analysis row.
const MessageTypeAnalysisRequested = "analysis.requested"

// Message is the envelope placed on the queue.
type Message struct {
	Type       string `json:"type"`
	AnalysisID string `json:"analysisId"`
	UserID     string `json:"userId"`
	SampleID   string `json:"sampleId"`
	RequestID  string `json:"requestId,omitempty"`
}

// Encode serializes the message for transport.
func Encode(m Message) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode queue message: %w", err)
	}
	return string(data), nil
}

// Decode parses and validates a transported message.
func Decode(body string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return Message{}, fmt.Errorf("decode queue message: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("queue message missing type")
	}
	if m.Type == MessageTypeAnalysisRequested && (m.AnalysisID == "" || m.UserID == "" || m.SampleID == "") {
		return Message{}, fmt.Errorf("queue message missing identifiers")
	}
	return m, nil
}
