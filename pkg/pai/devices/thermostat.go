package devices

import (
	"context"
	"fmt"
)

// ThermostatClient talks to the thermostat control API.
type ThermostatClient struct {
	cfg EndpointConfig
}

// ThermostatStatus is the reported thermostat state.
type ThermostatStatus struct {
	Mode        string  `json:"mode"`
	CurrentTemp float64 `json:"current_temp"`
	TargetTemp  float64 `json:"target_temp"`
	Error       string  `json:"error,omitempty"`
}

type thermostatSetRequest struct {
	Mode       string   `json:"mode,omitempty"`
	TargetTemp *float64 `json:"target_temp,omitempty"`
}

type thermostatSetResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewThermostatClient creates a thermostat API client.
func NewThermostatClient(cfg EndpointConfig) *ThermostatClient {
	return &ThermostatClient{cfg: cfg}
}

// Set applies a mode ("heat", "cool", "auto", "off") and/or target
// temperature to the thermostat. Nil target leaves the setpoint unchanged.
func (c *ThermostatClient) Set(ctx context.Context, vendorID, mode string, targetTemp *float64) error {
	req := thermostatSetRequest{Mode: mode, TargetTemp: targetTemp}
	var resp thermostatSetResponse
	url := fmt.Sprintf("%s/thermostats/%s", c.cfg.BaseURL, vendorID)
	if err := doJSON(ctx, httpClientFor(c.cfg), "POST", url, c.cfg.APIKey, req, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("thermostat API error: %s", resp.Error)
	}
	return nil
}

// Status fetches the thermostat's current state.
func (c *ThermostatClient) Status(ctx context.Context, vendorID string) (*ThermostatStatus, error) {
	var status ThermostatStatus
	url := fmt.Sprintf("%s/thermostats/%s", c.cfg.BaseURL, vendorID)
	if err := doJSON(ctx, httpClientFor(c.cfg), "GET", url, c.cfg.APIKey, nil, &status); err != nil {
		return nil, err
	}
	if status.Error != "" {
		return nil, fmt.Errorf("thermostat API error: %s", status.Error)
	}
	return &status, nil
}
