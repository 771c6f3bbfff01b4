package uvc

import "github.com/smazurov/uvcnode/internal/input"

// DeviceSummary describes a capture node found on the system.
type DeviceSummary struct {
	Path    string          `json:"path"`
	Name    string          `json:"name"`
	ID      string          `json:"id"`
	Driver  string          `json:"driver"`
	Formats []FormatSummary `json:"formats"`
}

// FormatSummary is one pixel format a node offers.
type FormatSummary struct {
	FourCC      string                   `json:"fourcc"`
	Name        string                   `json:"name"`
	Compressed  bool                     `json:"compressed"`
	Resolutions []input.ResolutionOption `json:"resolutions"`
}
