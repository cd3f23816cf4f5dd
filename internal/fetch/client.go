package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"pointsbot/internal/logger"
)

// FailureText is returned for any transport or upstream error. Provider
// calls never fail with an error; the session layer relays this text.
const FailureText = "Failed to fetch data. Please try again."

// Client wraps the third-party content APIs behind a bounded-timeout HTTP
// client.
type Client struct {
	http    *http.Client
	baseURL string
	key     string
	aiURL   string
}

func NewClient(baseURL, key, aiURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		key:     key,
		aiURL:   aiURL,
	}
}

// Get fetches rawURL and returns the response body as text. Any failure
// maps to FailureText.
func (c *Client) Get(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return FailureText
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("provider fetch failed", "error", err)
		return FailureText
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode >= 400 {
		logger.Warn("provider fetch failed", "status", resp.StatusCode)
		return FailureText
	}
	return string(body)
}

func (c *Client) endpoint(path string, params url.Values) string {
	return c.baseURL + path + "?" + params.Encode()
}

func (c *Client) keyed(params url.Values) url.Values {
	if c.key != "" {
		params.Set("key", c.key)
	}
	return params
}

func (c *Client) PlayerInfo(ctx context.Context, uid string) string {
	return c.Get(ctx, c.endpoint("/info", url.Values{"uid": {uid}}))
}

func (c *Client) Likes(ctx context.Context, uid string) string {
	return c.Get(ctx, c.endpoint("/likes", c.keyed(url.Values{"uid": {uid}})))
}

func (c *Client) Visits(ctx context.Context, uid, count string) string {
	return c.Get(ctx, c.endpoint("/visit", c.keyed(url.Values{"uid": {uid}, "sl": {count}})))
}

func (c *Client) SearchName(ctx context.Context, name string) string {
	return c.Get(ctx, c.endpoint("/search", c.keyed(url.Values{"name": {name}})))
}

func (c *Client) IsBanned(ctx context.Context, uid string) string {
	return c.Get(ctx, c.endpoint("/isbanned", url.Values{"uid": {uid}}))
}

func (c *Client) SpamFriend(ctx context.Context, uid string) string {
	return c.Get(ctx, c.endpoint("/spamkb", c.keyed(url.Values{"uid": {uid}})))
}

// AI queries the chat-completion endpoint. The upstream wraps answers in a
// JSON envelope; unwrap it when present and fall back to the raw body.
func (c *Client) AI(ctx context.Context, question string) string {
	raw := c.Get(ctx, c.aiURL+"/?question="+url.QueryEscape(question))

	var envelope struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err == nil &&
		envelope.Status == "success" && envelope.Message != "" {
		return envelope.Message
	}
	return raw
}
