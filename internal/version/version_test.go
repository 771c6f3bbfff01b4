package version

import (
	"runtime/debug"
	"testing"
)

func TestApplyBuildSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-03-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	tests := []struct {
		name       string
		info       Info
		wantCommit string
		wantDate   string
	}{
		{
			name:       "fills unset fields",
			info:       Info{GitCommit: "unknown", BuildDate: "unknown"},
			wantCommit: "0123456789ab",
			wantDate:   "2026-03-01T12:00:00Z",
		},
		{
			name:       "ldflags win",
			info:       Info{GitCommit: "release1", BuildDate: "2026-01-01"},
			wantCommit: "release1",
			wantDate:   "2026-01-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.info
			applyBuildSettings(&info, settings)
			if info.GitCommit != tt.wantCommit {
				t.Errorf("GitCommit = %q, want %q", info.GitCommit, tt.wantCommit)
			}
			if info.BuildDate != tt.wantDate {
				t.Errorf("BuildDate = %q, want %q", info.BuildDate, tt.wantDate)
			}
			if !info.Modified {
				t.Error("Modified = false, want true")
			}
		})
	}
}
