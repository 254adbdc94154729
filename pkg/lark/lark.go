package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	tokenPath            = "/open-apis/auth/v3/tenant_access_token/internal"
	messagePath          = "/open-apis/im/v1/messages"
	maxResponseSizeBytes = 1 << 20
	tokenRefreshMargin   = 5 * time.Minute
)

type Config struct {
	BaseURL   string        `split_words:"true" default:"https://open.feishu.cn"`
	AppID     string        `split_words:"true"`
	AppSecret string        `split_words:"true"`
	Timeout   time.Duration `split_words:"true" default:"10s"`
}

// Enabled reports whether app credentials are configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.AppID) != "" && strings.TrimSpace(c.AppSecret) != ""
}

// Client sends IM text messages as a Lark (Feishu) custom app. The tenant
// access token is cached until shortly before it expires.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type tokenResponse struct {
	apiResponse
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int64  `json:"expire"`
}

type textContent struct {
	Text string `json:"text"`
}

type messageBody struct {
	ReceiveID string `json:"receive_id"`
	Content   string `json:"content"`
	MsgType   string `json:"msg_type"`
}

// APIError is a well-formed Lark response carrying a non-zero code.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lark api code=%d msg=%s", e.Code, e.Msg)
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("lark base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid lark base url: %w", err)
	}
	if !cfg.Enabled() {
		return nil, errors.New("lark app id and app secret are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		appID:      strings.TrimSpace(cfg.AppID),
		appSecret:  strings.TrimSpace(cfg.AppSecret),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}, nil
}

// TenantToken returns a cached tenant access token or fetches a new one.
func (c *Client) TenantToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	var resp tokenResponse
	if err := c.post(ctx, c.baseURL+tokenPath, "", payload, &resp); err != nil {
		return "", fmt.Errorf("fetch tenant token: %w", err)
	}
	if resp.Code != 0 {
		return "", &APIError{Code: resp.Code, Msg: resp.Msg}
	}
	if resp.TenantAccessToken == "" {
		return "", errors.New("lark returned an empty tenant token")
	}

	lifetime := time.Duration(resp.Expire) * time.Second
	if lifetime > 2*tokenRefreshMargin {
		lifetime -= tokenRefreshMargin
	} else {
		lifetime /= 2
	}
	c.token = resp.TenantAccessToken
	c.tokenExpiry = c.now().Add(lifetime)
	return c.token, nil
}

// TextMessage builds the endpoint and JSON body that deliver text to the user
// with the given email address.
func (c *Client) TextMessage(email, text string) (string, []byte, error) {
	content, err := json.Marshal(textContent{Text: text})
	if err != nil {
		return "", nil, fmt.Errorf("marshal message content: %w", err)
	}
	body, err := json.Marshal(messageBody{
		ReceiveID: email,
		Content:   string(content),
		MsgType:   "text",
	})
	if err != nil {
		return "", nil, fmt.Errorf("marshal message: %w", err)
	}
	return c.baseURL + messagePath + "?receive_id_type=email", body, nil
}

// SendText delivers text to the user identified by email.
func (c *Client) SendText(ctx context.Context, email, text string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("lark receiver email is empty")
	}

	token, err := c.TenantToken(ctx)
	if err != nil {
		return err
	}

	endpoint, body, err := c.TextMessage(email, text)
	if err != nil {
		return err
	}

	var resp apiResponse
	if err := c.post(ctx, endpoint, token, body, &resp); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.Code != 0 {
		return &APIError{Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint, token string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("lark http status=%d body=%s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
