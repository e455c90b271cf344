package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avolkov/lanferry/internal/flagx"
	"github.com/avolkov/lanferry/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so intervals can be written either as strings like "10s"
// or as integer nanoseconds.
type JsonConfig struct {
	DefaultCoordinatorURL string         `json:"default_coordinator_url"`
	DiscoveryEndpoint     string         `json:"discovery_endpoint"`
	StateDBPath           string         `json:"state_db_path"`
	DisplayName           string         `json:"display_name"`
	DeviceName            string         `json:"device_name"`
	PollForeground        timex.Duration `json:"poll_foreground"`
	PollBackground        timex.Duration `json:"poll_background"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. Absent file path means no JSON overlay. Only fields
// present in the file override defaults.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DefaultCoordinatorURL != "" {
		cfg.DefaultCoordinatorURL = jc.DefaultCoordinatorURL
	}
	if jc.DiscoveryEndpoint != "" {
		cfg.DiscoveryEndpoint = jc.DiscoveryEndpoint
	}
	if jc.StateDBPath != "" {
		cfg.StateDBPath = jc.StateDBPath
	}
	if jc.DisplayName != "" {
		cfg.DisplayName = jc.DisplayName
	}
	if jc.DeviceName != "" {
		cfg.DeviceName = jc.DeviceName
	}
	if jc.PollForeground.Duration != 0 {
		cfg.PollForeground = time.Duration(jc.PollForeground.Duration)
	}
	if jc.PollBackground.Duration != 0 {
		cfg.PollBackground = time.Duration(jc.PollBackground.Duration)
	}
}
