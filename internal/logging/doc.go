// Package logging provides structured logging with per-module log levels.
//
// Every module asks for its own logger and tags records with a "module"
// attribute:
//
//	logger := logging.GetLogger("capture").With("input_id", 0)
//	logger.Info("Capture started", "device", "/dev/video0")
//
// Initialize installs the handler chain once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{"commands": "debug"},
//	})
//
// Records go to stdout (text or JSON) when it is attached, to the systemd
// journal when [github.com/coreos/go-systemd/v22/journal.Enabled] reports
// it, and always to an in-memory ring buffer served by GET /api/logs.
// Module levels are slog.LevelVar values, so ApplyLevels can change them
// at runtime without handing out new loggers.
//
// Journal fields are the upper-cased attribute keys:
//
//	journalctl -t uvcnode MODULE=capture INPUT_ID=0
package logging
