package devices

import (
	"context"
	"fmt"
)

// SMSClient sends outbound text messages (used by the send_link tool on the
// voice channel).
type SMSClient struct {
	cfg SMSConfig
}

type smsRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

type smsResponse struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// NewSMSClient creates an SMS sender client.
func NewSMSClient(cfg SMSConfig) *SMSClient {
	return &SMSClient{cfg: cfg}
}

// Send delivers a message to the given number.
func (c *SMSClient) Send(ctx context.Context, to, body string) error {
	req := smsRequest{To: to, From: c.cfg.From, Body: body}
	var resp smsResponse
	if err := doJSON(ctx, httpClientFor(c.cfg.EndpointConfig), "POST", c.cfg.BaseURL+"/messages", c.cfg.APIKey, req, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("SMS API error: %s", resp.Error)
	}
	return nil
}
