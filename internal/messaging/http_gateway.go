package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultHTTPTimeout = 10 * time.Second

// HTTPGateway posts messages to a messaging bridge:
//
//	POST {BaseURL}/message/sendText/{storeRef}
//	{"number": "<phone>", "text": "<text>"}
//
// The store reference selects the bridge instance the store is connected to.
type HTTPGateway struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

func NewHTTPGateway(baseURL, token string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *HTTPGateway) SendText(ctx context.Context, storeRef, phone, text string) error {
	if storeRef == "" {
		return fmt.Errorf("http gateway: empty store reference")
	}

	body, err := json.Marshal(sendTextRequest{Number: phone, Text: text})
	if err != nil {
		return fmt.Errorf("http gateway: marshal request: %w", err)
	}

	endpoint := g.baseURL + "/message/sendText/" + url.PathEscape(storeRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http gateway: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("apikey", g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http gateway: send to %s: %w", storeRef, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http gateway: send to %s: status %d: %s", storeRef, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
