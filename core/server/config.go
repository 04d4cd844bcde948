package server

import "strings"

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// Metrics toggles the Prometheus /metrics endpoint.
	Metrics bool `mapstructure:"metrics" default:"true"`
}

// Address returns the listen address for the configured port.
// A port given with a leading colon or a full host:port is used as is.
func (c Config) Address() string {
	switch {
	case c.Port == "":
		return ":8080"
	case strings.Contains(c.Port, ":"):
		return c.Port
	default:
		return ":" + c.Port
	}
}
