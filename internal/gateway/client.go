package gateway

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

// DefaultBaseURL is the Cloud API root used when none is configured.
const DefaultBaseURL = "https://graph.facebook.com/v18.0"

// Client posts single messages to the gateway. It knows nothing about rate
// budgets or chunking.
type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. phoneNumberID is the default sending number;
// it may be empty when every call names its own.
func NewClient(phoneNumberID, accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		phoneNumberID: strings.TrimSpace(phoneNumberID),
		accessToken:   accessToken,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c
}

func (c *Client) messagesURL(phoneNumberID string) string {
	return c.baseURL + "/" + url.PathEscape(phoneNumberID) + "/messages"
}

// Post sends msg from phoneNumberID, or from the default number when it is
// empty, and returns the gateway's message id. Gateway failures are *Error.
func (c *Client) Post(ctx context.Context, phoneNumberID string, msg *Message) (string, error) {
	if phoneNumberID = strings.TrimSpace(phoneNumberID); phoneNumberID == "" {
		phoneNumberID = c.phoneNumberID
	}
	if phoneNumberID == "" {
		return "", &ValidationError{Field: "phone_number_id", Reason: "no sending number configured"}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("gateway: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(phoneNumberID), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", &Error{StatusCode: res.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", parseError(res.StatusCode, raw)
	}

	var payload sendResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", &Error{StatusCode: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(payload.Messages) == 0 {
		return "", nil
	}
	return payload.Messages[0].ID, nil
}

func parseError(status int, raw []byte) *Error {
	gwErr := &Error{StatusCode: status}

	var envelope errorResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		gwErr.Code = envelope.Error.Code
		gwErr.Type = envelope.Error.Type
		gwErr.Message = envelope.Error.Message
		return gwErr
	}

	body := string(raw)
	if len(body) > 512 {
		body = body[:512]
	}
	gwErr.Message = strings.TrimSpace(body)
	return gwErr
}
