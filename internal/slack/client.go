// Package slack is a thin client over the Slack Web API methods the digest
// service needs: history fetch, DM delivery, and modals.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultAPIBaseURL = "https://slack.com/api"

type Client struct {
	token   string
	client  *http.Client
	logger  *slog.Logger
	baseURL string

	mu        sync.Mutex
	userNames map[string]string
}

func NewClient(token string, logger *slog.Logger) *Client {
	return &Client{
		token:     token,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
		baseURL:   defaultAPIBaseURL,
		userNames: make(map[string]string),
	}
}

// SetBaseURL points the client at a test server.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// postJSON calls a Web API method with a JSON body and decodes the ok/error
// envelope into out (which may be nil).
func (c *Client) postJSON(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("parse %s response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("slack %s error: %s", method, envelope.Error)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode %s response: %w", method, err)
		}
	}
	return nil
}

// getForm calls a Web API method with query parameters.
func (c *Client) getForm(ctx context.Context, method string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("parse %s response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("slack %s error: %s", method, envelope.Error)
	}

	return json.Unmarshal(respBody, out)
}

// PostMessage sends a message to a channel or user DM. blocks may be nil.
func (c *Client) PostMessage(ctx context.Context, channel, text string, blocks []map[string]any) error {
	payload := map[string]any{
		"channel": channel,
		"text":    text,
	}
	if blocks != nil {
		payload["blocks"] = blocks
	}
	return c.postJSON(ctx, "chat.postMessage", payload, nil)
}

// PostEphemeral sends a message visible only to one user in a channel.
func (c *Client) PostEphemeral(ctx context.Context, channel, user, text string) error {
	return c.postJSON(ctx, "chat.postEphemeral", map[string]any{
		"channel": channel,
		"user":    user,
		"text":    text,
	}, nil)
}

// OpenView opens a modal for the interaction identified by triggerID.
func (c *Client) OpenView(ctx context.Context, triggerID string, view map[string]any) error {
	return c.postJSON(ctx, "views.open", map[string]any{
		"trigger_id": triggerID,
		"view":       view,
	}, nil)
}

// userName resolves a user ID to a display name, caching results for the
// process lifetime. Lookup failures degrade to an empty name.
func (c *Client) userName(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	c.mu.Lock()
	name, ok := c.userNames[userID]
	c.mu.Unlock()
	if ok {
		return name
	}

	var resp struct {
		User struct {
			Name     string `json:"name"`
			RealName string `json:"real_name"`
		} `json:"user"`
	}
	params := url.Values{"user": {userID}}
	if err := c.getForm(ctx, "users.info", params, &resp); err != nil {
		c.logger.Warn("could not fetch user info", "user", userID, "error", err)
		c.mu.Lock()
		c.userNames[userID] = ""
		c.mu.Unlock()
		return ""
	}

	name = resp.User.RealName
	if name == "" {
		name = resp.User.Name
	}
	c.mu.Lock()
	c.userNames[userID] = name
	c.mu.Unlock()
	return name
}
