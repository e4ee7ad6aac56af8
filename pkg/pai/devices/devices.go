// Package devices holds the HTTP clients for the downstream device control
// APIs: lighting (capability/instance/value triples), thermostats
// (mode/temperature), vehicles (named commands), whole-home audio
// (room/action), and the SMS sender used for outbound links.
//
// Each client carries its own short timeout so one unresponsive device API
// cannot stall a whole tool batch. Vendor wire contracts stay inside this
// package; callers only see typed methods and errors.
package devices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EndpointConfig configures one downstream API endpoint.
type EndpointConfig struct {
	// BaseURL is the API root, e.g. "https://openapi.govee.com/router/api/v1".
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token or vendor key header.
	APIKey string `yaml:"api_key"`

	// TimeoutSeconds is the per-request timeout (default: 10).
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Config holds all downstream device API configuration.
type Config struct {
	Lighting   EndpointConfig `yaml:"lighting"`
	Thermostat EndpointConfig `yaml:"thermostat"`
	Vehicle    EndpointConfig `yaml:"vehicle"`
	Audio      EndpointConfig `yaml:"audio"`
	SMS        SMSConfig      `yaml:"sms"`

	// LightingSettleMS is how long to wait after powering a group on before
	// sending a color or brightness change. Group firmware rejects color
	// commands while powering up. Default: 750.
	LightingSettleMS int `yaml:"lighting_settle_ms"`
}

// SMSConfig configures the outbound SMS sender.
type SMSConfig struct {
	EndpointConfig `yaml:",inline"`

	// From is the sending number.
	From string `yaml:"from"`
}

// DefaultConfig returns device client defaults.
func DefaultConfig() Config {
	return Config{LightingSettleMS: 750}
}

// SettleDelay returns the configured lighting settle delay.
func (c Config) SettleDelay() time.Duration {
	ms := c.LightingSettleMS
	if ms <= 0 {
		ms = 750
	}
	return time.Duration(ms) * time.Millisecond
}

// Clients bundles one client per device category.
type Clients struct {
	Lighting   *LightingClient
	Thermostat *ThermostatClient
	Vehicle    *VehicleClient
	Audio      *AudioClient
	SMS        *SMSClient
}

// NewClients builds all device clients from config.
func NewClients(cfg Config) *Clients {
	return &Clients{
		Lighting:   NewLightingClient(cfg.Lighting),
		Thermostat: NewThermostatClient(cfg.Thermostat),
		Vehicle:    NewVehicleClient(cfg.Vehicle),
		Audio:      NewAudioClient(cfg.Audio),
		SMS:        NewSMSClient(cfg.SMS),
	}
}

// httpClientFor builds an http.Client with the endpoint's timeout.
func httpClientFor(cfg EndpointConfig) *http.Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// doJSON sends a JSON request and decodes the response into out (when
// non-nil). A non-2xx status is returned as an error carrying a truncated
// body excerpt.
func doJSON(ctx context.Context, client *http.Client, method, url, apiKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, excerpt(raw, 200))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

func excerpt(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
