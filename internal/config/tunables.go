package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/uvcnode/internal/logging"
)

// Tunables are the settings that may change while the process runs.
// Nil fields were absent from the file and leave the current value alone.
type Tunables struct {
	Quality     *int
	Resolution  *string
	MinimumSize *int
	StopOnIdle  *bool
	Logging     logging.Config
}

// LoadTunables reads the [input] and [logging] tables of a config file.
func LoadTunables(path string) (Tunables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tunables{}, err
	}

	var raw struct {
		Input struct {
			Quality     *int    `toml:"quality"`
			Resolution  *string `toml:"resolution"`
			MinimumSize *int    `toml:"minimum_size"`
			StopOnIdle  *bool   `toml:"stop_on_idle"`
		} `toml:"input"`
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Tunables{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return Tunables{
		Quality:     raw.Input.Quality,
		Resolution:  raw.Input.Resolution,
		MinimumSize: raw.Input.MinimumSize,
		StopOnIdle:  raw.Input.StopOnIdle,
		Logging: loggingFromTable(raw.Logging, logging.Config{
			Level:   "info",
			Format:  "text",
			Modules: make(map[string]string),
		}),
	}, nil
}
