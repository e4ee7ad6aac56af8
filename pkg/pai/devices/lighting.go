package devices

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Lighting capability types and instances. The lighting vendor addresses
// every control as a {capability type, instance, value} triple.
const (
	capOnOff     = "devices.capabilities.on_off"
	capRange     = "devices.capabilities.range"
	capColor     = "devices.capabilities.color_setting"
	instPower    = "powerSwitch"
	instBright   = "brightness"
	instColorRGB = "colorRgb"
)

// LightingClient talks to the lighting vendor's control API.
type LightingClient struct {
	cfg EndpointConfig
}

// GroupState is the subset of group state the executor needs.
type GroupState struct {
	PowerOn    bool
	Brightness int
}

type lightingControlRequest struct {
	RequestID string          `json:"requestId"`
	Payload   lightingPayload `json:"payload"`
}

type lightingPayload struct {
	Device     string              `json:"device"`
	Model      string              `json:"sku,omitempty"`
	Capability *lightingCapability `json:"capability,omitempty"`
}

type lightingCapability struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
	Value    any    `json:"value"`
}

type lightingResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Payload struct {
		Capabilities []struct {
			Type     string `json:"type"`
			Instance string `json:"instance"`
			State    struct {
				Value any `json:"value"`
			} `json:"state"`
		} `json:"capabilities"`
	} `json:"payload"`
}

// NewLightingClient creates a lighting API client.
func NewLightingClient(cfg EndpointConfig) *LightingClient {
	return &LightingClient{cfg: cfg}
}

func (c *LightingClient) control(ctx context.Context, device, model string, capability lightingCapability) error {
	req := lightingControlRequest{
		RequestID: uuid.NewString(),
		Payload:   lightingPayload{Device: device, Model: model, Capability: &capability},
	}
	var resp lightingResponse
	if err := doJSON(ctx, httpClientFor(c.cfg), "POST", c.cfg.BaseURL+"/device/control", c.cfg.APIKey, req, &resp); err != nil {
		return err
	}
	if resp.Code != 0 && resp.Code != 200 {
		return fmt.Errorf("lighting API error %d: %s", resp.Code, resp.Message)
	}
	return nil
}

// SetPower turns a lighting group on or off.
func (c *LightingClient) SetPower(ctx context.Context, device, model string, on bool) error {
	value := 0
	if on {
		value = 1
	}
	return c.control(ctx, device, model, lightingCapability{
		Type: capOnOff, Instance: instPower, Value: value,
	})
}

// SetBrightness sets group brightness, 1-100.
func (c *LightingClient) SetBrightness(ctx context.Context, device, model string, pct int) error {
	if pct < 1 {
		pct = 1
	}
	if pct > 100 {
		pct = 100
	}
	return c.control(ctx, device, model, lightingCapability{
		Type: capRange, Instance: instBright, Value: pct,
	})
}

// SetColor sets group color as a packed 24-bit RGB value.
func (c *LightingClient) SetColor(ctx context.Context, device, model string, rgb int) error {
	return c.control(ctx, device, model, lightingCapability{
		Type: capColor, Instance: instColorRGB, Value: rgb,
	})
}

// State fetches the group's current power and brightness.
func (c *LightingClient) State(ctx context.Context, device, model string) (*GroupState, error) {
	req := lightingControlRequest{
		RequestID: uuid.NewString(),
		Payload:   lightingPayload{Device: device, Model: model},
	}
	var resp lightingResponse
	if err := doJSON(ctx, httpClientFor(c.cfg), "POST", c.cfg.BaseURL+"/device/state", c.cfg.APIKey, req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 && resp.Code != 200 {
		return nil, fmt.Errorf("lighting API error %d: %s", resp.Code, resp.Message)
	}

	state := &GroupState{}
	for _, capability := range resp.Payload.Capabilities {
		switch capability.Instance {
		case instPower:
			if v, ok := toInt(capability.State.Value); ok {
				state.PowerOn = v == 1
			}
		case instBright:
			if v, ok := toInt(capability.State.Value); ok {
				state.Brightness = v
			}
		}
	}
	return state, nil
}

// toInt coerces JSON numbers (float64) and ints.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
