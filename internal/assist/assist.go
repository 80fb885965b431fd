// internal/assist/assist.go
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codepad/internal/statestore"
	"codepad/internal/xerrors"
)

const apiKeyStoreKey = "assist.api_key"

// Action is one of the supported assist operations
type Action string

const (
	ActionExplain  Action = "explain"
	ActionRefactor Action = "refactor"
	ActionFix      Action = "fix"
	ActionDocument Action = "document"
)

var validActions = map[Action]bool{
	ActionExplain:  true,
	ActionRefactor: true,
	ActionFix:      true,
	ActionDocument: true,
}

// Events is the slice of the event hub the client reports through
type Events interface {
	EmitAssistComplete(action string, result string)
	EmitAssistError(action string, cause string)
}

// Client posts assist requests to the configured endpoint. Requests run
// in their own goroutine and report through events only; a failure never
// touches document state.
type Client struct {
	endpoint string
	store    *statestore.Store
	events   Events
	http     *http.Client
}

// New creates an assist client against endpoint
func New(endpoint string, store *statestore.Store, events Events) *Client {
	return &Client{
		endpoint: endpoint,
		store:    store,
		events:   events,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// SetAPIKey stores the caller-supplied key. The key is opaque: it is
// persisted as-is and never logged.
func (c *Client) SetAPIKey(key string) error {
	return c.store.SetItem(apiKeyStoreKey, key)
}

// HasAPIKey reports whether a key is configured, without exposing it
func (c *Client) HasAPIKey() (bool, error) {
	_, ok, err := c.store.GetItem(apiKeyStoreKey)
	return ok, err
}

// ClearAPIKey removes the stored key
func (c *Client) ClearAPIKey() error {
	return c.store.RemoveItem(apiKeyStoreKey)
}

type request struct {
	APIKey string `json:"apiKey"`
	Code   string `json:"code"`
	Action string `json:"action"`
}

type response struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Run fires an assist request for code. Validation errors return
// synchronously; everything past that is asynchronous and reported
// through assist:complete / assist:error events.
func (c *Client) Run(ctx context.Context, action Action, code string) error {
	if !validActions[action] {
		return &xerrors.Error{Code: xerrors.CodeUnsupported, Message: fmt.Sprintf("unknown assist action %q", action)}
	}
	key, ok, err := c.store.GetItem(apiKeyStoreKey)
	if err != nil {
		return fmt.Errorf("load assist api key: %w", err)
	}
	if !ok || key == "" {
		return &xerrors.Error{Code: xerrors.CodeUnsupported, Message: "no assist API key configured"}
	}

	go c.post(ctx, action, key, code)
	return nil
}

func (c *Client) post(ctx context.Context, action Action, key, code string) {
	body, err := json.Marshal(request{APIKey: key, Code: code, Action: string(action)})
	if err != nil {
		c.events.EmitAssistError(string(action), "encode request")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.events.EmitAssistError(string(action), "build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.events.EmitAssistError(string(action), "request failed")
		return
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		c.events.EmitAssistError(string(action), "read response")
		return
	}
	if resp.StatusCode != http.StatusOK {
		c.events.EmitAssistError(string(action), fmt.Sprintf("endpoint returned %d", resp.StatusCode))
		return
	}

	var out response
	if err := json.Unmarshal(payload, &out); err != nil {
		c.events.EmitAssistError(string(action), "decode response")
		return
	}
	if out.Error != "" {
		c.events.EmitAssistError(string(action), out.Error)
		return
	}

	c.events.EmitAssistComplete(string(action), out.Result)
}
