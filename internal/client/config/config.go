package config

import "time"

// Config holds runtime settings for the lanferry client.
//
// Fields:
//   - DefaultCoordinatorURL: built-in coordinator base URL tried when no
//     session URL is saved and during discovery.
//   - DiscoveryEndpoint: HTTP endpoint returning candidate coordinator URLs.
//     When empty it is derived from DefaultCoordinatorURL.
//   - StateDBPath: path of the local sqlite state database.
//   - DisplayName, DeviceName: identity presented during pairing.
//   - PollForeground/PollBackground: polling backstop intervals.
type Config struct {
	DefaultCoordinatorURL string
	DiscoveryEndpoint     string
	StateDBPath           string
	DisplayName           string
	DeviceName            string
	PollForeground        time.Duration
	PollBackground        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DefaultCoordinatorURL = "http://127.0.0.1:8787"
	c.DiscoveryEndpoint = ""
	c.StateDBPath = "lanferry.db"
	c.DisplayName = "lanferry"
	c.DeviceName = "lanferry-cli"
	c.PollForeground = 10 * time.Second
	c.PollBackground = 60 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
