package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gkash/gkash_ussd/internal/config"
	"github.com/gkash/gkash_ussd/internal/otp"
)

// TiaraClient sends messages through the Tiara Connect messaging API.
type TiaraClient struct {
	cfg     config.Tiara
	codeTTL time.Duration
	client  *http.Client
}

// NewTiaraClient builds a Tiara Connect client with a bounded request timeout.
func NewTiaraClient(cfg config.Tiara, codeTTL, timeout time.Duration) (*TiaraClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tiara api key is required")
	}
	return &TiaraClient{
		cfg:     cfg,
		codeTTL: codeTTL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	From    string `json:"from"`
}

type sendResponse struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
	Desc   string `json:"desc"`
}

// Send delivers one SMS and returns the provider reference.
func (c *TiaraClient) Send(ctx context.Context, to, body string) (string, error) {
	msisdn, err := FormatMSISDN(to)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(sendRequest{To: msisdn, Message: body, From: c.cfg.SenderID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tiara send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("tiara read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("tiara send failed: status %d: %s", resp.StatusCode, raw)
	}

	var decoded sendResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Provider returned a non-JSON success body; the send still went out.
		return "", nil
	}
	return decoded.Ref, nil
}

// SendCode generates a one-time code, delivers it, and returns it for storage.
func (c *TiaraClient) SendCode(ctx context.Context, to, holderName string, length int) (string, string, error) {
	code, err := otp.GenerateCode(length)
	if err != nil {
		return "", "", err
	}
	ref, err := c.Send(ctx, to, codeMessage(holderName, code, c.codeTTL))
	if err != nil {
		return "", "", err
	}
	return code, ref, nil
}
