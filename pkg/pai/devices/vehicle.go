package devices

import (
	"context"
	"fmt"
)

// Vehicle commands accepted by the downstream API. Anything else is
// rejected before a request is made.
var vehicleCommands = map[string]bool{
	"lock":             true,
	"unlock":           true,
	"start_climate":    true,
	"stop_climate":     true,
	"open_frunk":       true,
	"open_trunk":       true,
	"honk":             true,
	"flash_lights":     true,
	"open_charge_port": true,
}

// VehicleClient talks to the vehicle control API.
type VehicleClient struct {
	cfg EndpointConfig
}

// VehicleStatus is the reported vehicle state.
type VehicleStatus struct {
	Locked       bool    `json:"locked"`
	BatteryLevel int     `json:"battery_level"`
	Range        float64 `json:"range_miles"`
	Error        string  `json:"error,omitempty"`
}

type vehicleCommandResponse struct {
	Result bool   `json:"result"`
	Reason string `json:"reason,omitempty"`
}

// NewVehicleClient creates a vehicle API client.
func NewVehicleClient(cfg EndpointConfig) *VehicleClient {
	return &VehicleClient{cfg: cfg}
}

// ValidCommand reports whether the named command is one the API accepts.
func ValidCommand(name string) bool {
	return vehicleCommands[name]
}

// Command issues a named command to the vehicle.
func (c *VehicleClient) Command(ctx context.Context, vendorID, name string) error {
	if !ValidCommand(name) {
		return fmt.Errorf("unknown vehicle command %q", name)
	}
	var resp vehicleCommandResponse
	url := fmt.Sprintf("%s/vehicles/%s/command/%s", c.cfg.BaseURL, vendorID, name)
	if err := doJSON(ctx, httpClientFor(c.cfg), "POST", url, c.cfg.APIKey, struct{}{}, &resp); err != nil {
		return err
	}
	if !resp.Result {
		return fmt.Errorf("vehicle API rejected %s: %s", name, resp.Reason)
	}
	return nil
}

// Status fetches the vehicle's current state.
func (c *VehicleClient) Status(ctx context.Context, vendorID string) (*VehicleStatus, error) {
	var status VehicleStatus
	url := fmt.Sprintf("%s/vehicles/%s/status", c.cfg.BaseURL, vendorID)
	if err := doJSON(ctx, httpClientFor(c.cfg), "GET", url, c.cfg.APIKey, nil, &status); err != nil {
		return nil, err
	}
	if status.Error != "" {
		return nil, fmt.Errorf("vehicle API error: %s", status.Error)
	}
	return &status, nil
}
