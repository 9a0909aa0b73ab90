// Package clicksend delivers two-factor codes over SMS through the ClickSend
// REST API. One code fans out to every configured recipient; the storefront
// routes codes to the operations phones rather than to per-account numbers.
package clicksend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://rest.clicksend.com"

// Config carries the ClickSend credentials and delivery targets.
type Config struct {
	Username string
	APIKey   string
	// Recipients are the destination phone numbers in E.164 form. Every
	// code is sent to all of them.
	Recipients []string
	// Source labels outbound messages in the ClickSend dashboard.
	Source string
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
	// HTTPClient overrides the transport. Nil gets a client with a 10s
	// timeout.
	HTTPClient *http.Client
}

// Client sends SMS through ClickSend. Immutable after construction.
type Client struct {
	config Config
	http   *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("clicksend credentials required")
	}
	if len(cfg.Recipients) == 0 {
		return nil, errors.New("at least one recipient required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Source == "" {
		cfg.Source = "storeauth"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{config: cfg, http: httpClient}, nil
}

type smsMessage struct {
	Source string `json:"source"`
	Body   string `json:"body"`
	To     string `json:"to"`
}

type smsPayload struct {
	Messages []smsMessage `json:"messages"`
}

// SendCode delivers the verification code for accountNumber to every
// configured recipient in a single API call.
func (c *Client) SendCode(ctx context.Context, accountNumber int64, code string) error {
	payload := smsPayload{Messages: make([]smsMessage, 0, len(c.config.Recipients))}
	body := fmt.Sprintf("Account %d verification code: %s", accountNumber, code)
	for _, to := range c.config.Recipients {
		payload.Messages = append(payload.Messages, smsMessage{
			Source: c.config.Source,
			Body:   body,
			To:     to,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v3/sms/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.config.Username, c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("clicksend: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
