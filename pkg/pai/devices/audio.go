package devices

import (
	"context"
	"fmt"
)

// AudioClient talks to the whole-home audio API (room/action contract).
type AudioClient struct {
	cfg EndpointConfig
}

type audioResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewAudioClient creates an audio API client.
func NewAudioClient(cfg EndpointConfig) *AudioClient {
	return &AudioClient{cfg: cfg}
}

// Announce speaks a text announcement in the named room ("all" for every room).
func (c *AudioClient) Announce(ctx context.Context, room, text string) error {
	body := map[string]string{"text": text}
	var resp audioResponse
	url := fmt.Sprintf("%s/rooms/%s/announce", c.cfg.BaseURL, room)
	if err := doJSON(ctx, httpClientFor(c.cfg), "POST", url, c.cfg.APIKey, body, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("audio API error: %s", resp.Error)
	}
	return nil
}

// RoomAction runs a playback action ("play", "pause", "next", "mute") in a room.
func (c *AudioClient) RoomAction(ctx context.Context, room, action string) error {
	var resp audioResponse
	url := fmt.Sprintf("%s/rooms/%s/%s", c.cfg.BaseURL, room, action)
	if err := doJSON(ctx, httpClientFor(c.cfg), "POST", url, c.cfg.APIKey, struct{}{}, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("audio API error: %s", resp.Error)
	}
	return nil
}
