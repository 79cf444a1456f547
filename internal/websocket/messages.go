package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of WebSocket message.
type MessageType string

// Supported message types.
const (
	MessageTypeRunStarted     MessageType = "run_started"
	MessageTypeRunSegmented   MessageType = "run_segmented"
	MessageTypeSegmentDone    MessageType = "segment_done"
	MessageTypeRunReassembled MessageType = "run_reassembled"
	MessageTypeRunCompleted   MessageType = "run_completed"
	MessageTypeRunFailed      MessageType = "run_failed"
	MessageTypePing           MessageType = "ping"
	MessageTypePong           MessageType = "pong"
	MessageTypeError          MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages.
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
}

// ProgressMessage reports the state of a transcription run to the client.
type ProgressMessage struct {
	BaseMessage
	RunID             string `json:"run_id"`
	State             string `json:"state,omitempty"`
	Segments          int    `json:"segments,omitempty"`
	CompletedSegments int    `json:"completed_segments,omitempty"`
	FailedSegments    int    `json:"failed_segments,omitempty"`
	Detail            string `json:"detail,omitempty"`
}

// ErrorMessage reports a protocol-level problem to the client.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// NewProgressMessage builds a timestamped progress message.
func NewProgressMessage(msgType MessageType, runID string) *ProgressMessage {
	return &ProgressMessage{
		BaseMessage: BaseMessage{
			Type:      msgType,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		RunID: runID,
	}
}

// ParseMessageType peeks at an incoming frame's type field.
func ParseMessageType(data []byte) (MessageType, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return "", fmt.Errorf("invalid message: %w", err)
	}
	if base.Type == "" {
		return "", fmt.Errorf("message has no type")
	}
	return base.Type, nil
}
