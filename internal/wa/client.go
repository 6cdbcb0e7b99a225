package wa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxResponseSize bounds Graph API response reads (1 MB).
const maxResponseSize = 1 << 20

// ErrSendRejected indicates the channel rejected an outbound message.
// Callers log it and move on; retrying in a tight loop risks
// duplicate-message storms.
var ErrSendRejected = errors.New("wa: send rejected")

// ErrChannelDown indicates the channel API is unreachable.
var ErrChannelDown = errors.New("wa: channel unavailable")

// ClientConfig configures the Graph API send client.
type ClientConfig struct {
	Token         string `yaml:"token"`
	PhoneNumberID string `yaml:"phone_number_id"`
	BaseURL       string `yaml:"base_url"`
	Timeout       string `yaml:"timeout"`
}

// Defaults fills zero-valued fields.
func (c *ClientConfig) Defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://graph.facebook.com/v21.0"
	}
	if c.Timeout == "" {
		c.Timeout = "15s"
	}
}

// Validate checks the config for structural errors.
func (c *ClientConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("wa: token is required")
	}
	if c.PhoneNumberID == "" {
		return fmt.Errorf("wa: phone_number_id is required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("wa: invalid timeout %q: %w", c.Timeout, err)
	}
	return nil
}

func (c *ClientConfig) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// Sender delivers outbound payloads to the channel. Satisfied by *Client;
// the engine depends on this interface so tests can capture sends.
type Sender interface {
	Send(ctx context.Context, payload OutboundPayload) error
}

// Client sends messages through the Graph API.
type Client struct {
	config ClientConfig
	http   *http.Client
}

// Interface guard.
var _ Sender = (*Client)(nil)

// NewClient creates a Client from the given config.
func NewClient(cfg ClientConfig) *Client {
	cfg.Defaults()
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.parsedTimeout()},
	}
}

// sendResponse is the subset of the Graph API response we read.
type sendResponse struct {
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Send delivers one outbound payload.
func (c *Client) Send(ctx context.Context, payload OutboundPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("wa: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.config.BaseURL, c.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("wa: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return fmt.Errorf("%w: %w", ErrChannelDown, err)
		}
		return fmt.Errorf("wa: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("wa: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var sr sendResponse
		if json.Unmarshal(respBody, &sr) == nil && sr.Error != nil {
			return fmt.Errorf("%w: HTTP %d: %s", ErrSendRejected, resp.StatusCode, sr.Error.Message)
		}
		return fmt.Errorf("%w: HTTP %d", ErrSendRejected, resp.StatusCode)
	}
	return nil
}
