// Package models holds the request and response shapes of the HTTP API.
package models

import (
	"github.com/smazurov/uvcnode/internal/input"
	"github.com/smazurov/uvcnode/internal/logging"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-01-01T00:00:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// InputPath addresses one input.
type InputPath struct {
	ID int `path:"id" minimum:"0" example:"0" doc:"Input index"`
}

type InputListData struct {
	Inputs []input.Status `json:"inputs" doc:"Configured inputs"`
	Count  int            `json:"count" example:"1" doc:"Number of inputs"`
}

type InputListResponse struct {
	Body InputListData
}

type InputStatusResponse struct {
	Body input.Status
}

type ControlsData struct {
	InputID  int                       `json:"input_id" example:"0" doc:"Input index"`
	Controls []input.ControlDescriptor `json:"controls" doc:"Addressable controls with current values"`
}

type ControlsResponse struct {
	Body ControlsData
}

type ResolutionsData struct {
	InputID     int                      `json:"input_id" example:"0" doc:"Input index"`
	Resolutions []input.ResolutionOption `json:"resolutions" doc:"Selectable resolutions, addressed by index"`
	Current     int                      `json:"current" example:"1" doc:"Index of the active resolution"`
}

type ResolutionsResponse struct {
	Body ResolutionsData
}

// Command models
type CommandData struct {
	Group     string `json:"group" enum:"generic,device,v4l2,resolution,quality,jpeg_quality" example:"quality" doc:"Control group"`
	ControlID uint32 `json:"control_id,omitempty" example:"10094851" doc:"Control identifier (ignored for resolution and quality)"`
	Value     int32  `json:"value" example:"75" doc:"New value; a list index for the resolution group"`
}

type CommandRequest struct {
	ID   int `path:"id" minimum:"0" example:"0" doc:"Input index"`
	Body CommandData
}

type CommandResult struct {
	InputID   int    `json:"input_id" example:"0" doc:"Input index"`
	Group     string `json:"group" example:"quality" doc:"Normalised control group"`
	ControlID uint32 `json:"control_id" example:"10094851" doc:"Control identifier"`
	Value     int32  `json:"value" example:"75" doc:"Applied value"`
	OK        bool   `json:"ok" example:"true" doc:"Whether the command was applied"`
}

type CommandResponse struct {
	Body CommandResult
}

// State models
type StateData struct {
	InputID int    `json:"input_id" example:"0" doc:"Input index"`
	State   string `json:"state" example:"paused" enum:"active,paused,stopped_idle,stopped" doc:"Streaming state after the request"`
}

type StateResponse struct {
	Body StateData
}

// SnapshotRequest fetches a single frame.
type SnapshotRequest struct {
	ID        int `path:"id" minimum:"0" example:"0" doc:"Input index"`
	TimeoutMs int `query:"timeout_ms" minimum:"0" example:"3000" doc:"How long to wait for a frame, server default when zero"`
}

type SnapshotResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Generation   string `header:"X-Frame-Generation"`
	Timestamp    string `header:"X-Frame-Timestamp"`
	Body         []byte
}

// Log models
type LogsRequest struct {
	Tail   int    `query:"tail" minimum:"0" example:"100" doc:"Return only the newest N entries, all when zero"`
	Module string `query:"module" example:"capture" doc:"Only entries from this module"`
}

type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Buffered log entries, oldest first"`
	Count   int                `json:"count" example:"100" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
