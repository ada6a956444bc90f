package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ats-backend/internal/profile"
)

// MessageVersion is the only payload version the worker accepts.
const MessageVersion = 2

// Message is an analysis job handed to the worker. Exactly one of
// DocumentID, Fields or Payload is set.
type Message struct {
	Version        int                        `json:"version"`
	RequestID      string                     `json:"requestId"`
	EnqueuedAt     string                     `json:"enqueuedAt"`
	AnalysisID     string                     `json:"analysisId"`
	UserID         string                     `json:"userId"`
	DocumentID     string                     `json:"documentId,omitempty"`
	Fields         map[string]string          `json:"fields,omitempty"`
	Payload        *profile.ThirdPartyProfile `json:"payload,omitempty"`
	TargetRole     string                     `json:"targetRole,omitempty"`
	JobDescription string                     `json:"jobDescription,omitempty"`
}

// ErrInvalidMessage marks payloads that can never be processed. Consumers
// should drop them instead of retrying.
var ErrInvalidMessage = errors.New("invalid queue message")

// Validate checks the envelope, not the profile content.
func (m Message) Validate() error {
	if m.Version != MessageVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidMessage, m.Version)
	}
	if strings.TrimSpace(m.AnalysisID) == "" {
		return fmt.Errorf("%w: missing analysis id", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidMessage)
	}
	inputs := 0
	if strings.TrimSpace(m.DocumentID) != "" {
		inputs++
	}
	if len(m.Fields) > 0 {
		inputs++
	}
	if m.Payload != nil {
		inputs++
	}
	if inputs != 1 {
		return fmt.Errorf("%w: expected exactly one input, got %d", ErrInvalidMessage, inputs)
	}
	return nil
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses and validates a JSON payload.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return msg, err
	}
	return msg, nil
}
