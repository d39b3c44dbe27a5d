package types

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Job statuses
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
	StatusCancelled  = "cancelled"
)

// WorkOrder holds the fields read from a work order spreadsheet
type WorkOrder struct {
	Number           string `json:"number"`
	Partner          string `json:"partner"`
	Device           string `json:"device"`
	SerialNumber     string `json:"serialNumber"`
	DeviceCode       string `json:"deviceCode"`
	FaultDescription string `json:"faultDescription"`
	WorkDescription  string `json:"workDescription"`
	Date             string `json:"date"`
	SourceFile       string `json:"sourceFile"`
}

// ProcessedOrder is a work order recorded after a successful publish
type ProcessedOrder struct {
	WorkOrder
	NumberLine  string    `json:"numberLine"`
	ProcessedAt time.Time `json:"processedAt"`
}

// Snapshot is what the display page currently shows
type Snapshot struct {
	Number          string    `json:"number"`
	Details         string    `json:"details"`
	NumberLoadedAt  time.Time `json:"numberLoadedAt,omitempty"`
	DetailsLoadedAt time.Time `json:"detailsLoadedAt,omitempty"`
}

// Response represents an API response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type     string      `json:"type"`
	JobID    string      `json:"jobId,omitempty"`
	File     string      `json:"file,omitempty"`
	Message  string      `json:"message,omitempty"`
	Number   string      `json:"number,omitempty"`
	Queue    []JobStatus `json:"queue,omitempty"`
	Watching []string    `json:"watching,omitempty"`
}

// WSClientMessage represents a message from the WebSocket client
type WSClientMessage struct {
	Action string `json:"action"`
}

// WSClient represents a WebSocket client connection
type WSClient struct {
	Conn *websocket.Conn
	Mu   sync.Mutex
}

// ProcessJob represents a spreadsheet waiting to be processed
type ProcessJob struct {
	ID            string             `json:"id"`
	Path          string             `json:"path"`
	Folder        string             `json:"folder"`
	CreatedAt     time.Time          `json:"createdAt"`
	CancelContext context.Context    `json:"-"`
	CancelFunc    context.CancelFunc `json:"-"`
}

// JobStatus represents the status of a processing job
type JobStatus struct {
	Job         *ProcessJob `json:"job"`
	Status      string      `json:"status"`                // "queued", "processing", "completed", "error", "cancelled"
	Progress    string      `json:"progress"`              // Current progress message
	Number      string      `json:"number,omitempty"`      // Work order number once parsed
	Attempt     int         `json:"attempt"`               // Incremented on every retry
	Error       string      `json:"error,omitempty"`       // Error message if any
	CompletedAt *time.Time  `json:"completedAt,omitempty"` // Completion timestamp
}
