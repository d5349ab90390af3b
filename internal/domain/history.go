package domain

import "time"

type RequestStatus string

const (
	StatusQueued     RequestStatus = "queued"
	StatusRunning    RequestStatus = "running"
	StatusReplied    RequestStatus = "replied"
	StatusRedirected RequestStatus = "redirected"
	StatusFailed     RequestStatus = "failed"
)

// RequestRecord is the persisted outcome of one handled request
type RequestRecord struct {
	ID         string        `json:"id"`
	URL        string        `json:"url"`
	Mode       string        `json:"mode"`
	Status     RequestStatus `json:"status"`
	ErrorCode  ErrorCode     `json:"error_code"`
	Error      string        `json:"error,omitempty"`
	Bytes      int64         `json:"bytes"`
	Redirect   string        `json:"redirect,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
