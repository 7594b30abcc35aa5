package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// Wire event names. These are part of the client contract and must not
// change without a coordinated client update.
const (
	// client -> server
	EventSendMessage = "sendMessage"

	// server -> client
	EventNewMessage = "newMessage"
	EventNewTask    = "newTask"
	EventNewReport  = "newReport"
	EventError      = "error"
)

// ClientEvent is an inbound frame from a connected client.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`

	client *Client
}

// ServerEvent is an outbound frame. Data is marshalled as-is.
type ServerEvent struct {
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskAssigned is the payload of a targeted newTask event.
type TaskAssigned struct {
	Title       string `json:"title"`
	CreatorName string `json:"creatorName"`
}

// ReportSubmitted is the payload of a targeted newReport event.
type ReportSubmitted struct {
	TaskTitle string `json:"taskTitle"`
	StaffName string `json:"staffName"`
}

type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func ErrInternalError() *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data: ErrorData{
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
		},
		Timestamp: Now(),
	}
}

func ErrInvalidMessage() *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data: ErrorData{
			Code:    http.StatusBadRequest,
			Message: "invalid message format",
		},
		Timestamp: Now(),
	}
}

func ErrServiceUnavailable() *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data: ErrorData{
			Code:    http.StatusServiceUnavailable,
			Message: "service unavailable",
		},
		Timestamp: Now(),
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
