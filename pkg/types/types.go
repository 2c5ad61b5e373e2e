package types

import "time"

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	State          string     `json:"state"`
	PID            int        `json:"pid,omitempty"`
	Alive          bool       `json:"alive"`
	Ready          bool       `json:"ready"`
	Reloads        int64      `json:"reloads"`
	LastReloadPath string     `json:"last_reload_path,omitempty"`
	LastReloadAt   *time.Time `json:"last_reload_at,omitempty"`
	WatchRoot      string     `json:"watch_root"`
	WatchExt       string     `json:"watch_ext"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

// ReloadRequest is the optional body of POST /reload.
type ReloadRequest struct {
	// Reason is logged in place of a file path.
	Reason string `json:"reason,omitempty"`
}

// ReloadResponse acknowledges a dispatched reload.
type ReloadResponse struct {
	Reloads int64 `json:"reloads"`
}

// ErrorResponse is the JSON error payload used by the status API.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
