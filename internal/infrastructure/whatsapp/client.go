// Package whatsapp sends text messages through the WhatsApp Business Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pinme-ledger/internal/config"
	"github.com/pinme-ledger/internal/domain"
)

type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiVersion    string
	phoneNumberID string
	token         string
	dryRun        bool
}

func NewClient(cfg config.WhatsApp) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiVersion:    cfg.APIVersion,
		phoneNumberID: cfg.PhoneNumberID,
		token:         cfg.Token,
		dryRun:        cfg.DryRun,
	}
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText posts a plain text message to `to`. In dry-run mode nothing is
// sent and only the recipient is logged. Missing credentials outside dry-run
// are a transport failure, never a silent success.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	if c.dryRun {
		slog.Info("whatsapp dry-run", "to", to, "chars", len([]rune(text)))
		return nil
	}
	if c.token == "" || c.phoneNumberID == "" {
		return fmt.Errorf("whatsapp credentials not configured: %w", domain.ErrTransport)
	}

	msg := textMessage{MessagingProduct: "whatsapp", RecipientType: "individual", To: to, Type: "text"}
	msg.Text.Body = text
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var result sendResponse
	_ = json.Unmarshal(raw, &result)
	if resp.StatusCode >= 300 {
		if result.Error != nil {
			return fmt.Errorf("whatsapp api %d: %s (code %d)", resp.StatusCode, result.Error.Message, result.Error.Code)
		}
		return fmt.Errorf("whatsapp api %d", resp.StatusCode)
	}
	if len(result.Messages) > 0 {
		slog.Debug("whatsapp message accepted", "to", to, "message_id", result.Messages[0].ID)
	}
	return nil
}
