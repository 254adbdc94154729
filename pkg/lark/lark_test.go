package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type fakeLark struct {
	tokenCalls   atomic.Int32
	messageCalls atomic.Int32
	messageCode  int
	lastBody     messageBody
	lastAuth     string
	lastQuery    string
}

func (f *fakeLark) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case tokenPath:
		f.tokenCalls.Add(1)
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["app_id"] != "cli_test" || req["app_secret"] != "secret" {
			fmt.Fprint(w, `{"code":10014,"msg":"app secret invalid"}`)
			return
		}
		fmt.Fprint(w, `{"code":0,"msg":"ok","tenant_access_token":"t-123","expire":7200}`)
	case messagePath:
		f.messageCalls.Add(1)
		f.lastAuth = r.Header.Get("Authorization")
		f.lastQuery = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		fmt.Fprintf(w, `{"code":%d,"msg":"done"}`, f.messageCode)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeLark, secret string) *Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, AppID: "cli_test", AppSecret: secret})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.httpClient = server.Client()
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{BaseURL: "https://open.feishu.cn"}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestSendText(t *testing.T) {
	t.Parallel()

	fake := &fakeLark{}
	client := newTestClient(t, fake, "secret")

	if err := client.SendText(context.Background(), "ops@example.com", "hello"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	if fake.lastAuth != "Bearer t-123" {
		t.Fatalf("authorization = %q", fake.lastAuth)
	}
	if fake.lastQuery != "receive_id_type=email" {
		t.Fatalf("query = %q", fake.lastQuery)
	}
	if fake.lastBody.ReceiveID != "ops@example.com" || fake.lastBody.MsgType != "text" {
		t.Fatalf("unexpected body: %#v", fake.lastBody)
	}
	var content textContent
	if err := json.Unmarshal([]byte(fake.lastBody.Content), &content); err != nil {
		t.Fatalf("content is not JSON: %v", err)
	}
	if content.Text != "hello" {
		t.Fatalf("text = %q", content.Text)
	}
}

func TestTenantTokenIsCachedUntilNearExpiry(t *testing.T) {
	t.Parallel()

	fake := &fakeLark{}
	client := newTestClient(t, fake, "secret")
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := client.TenantToken(context.Background()); err != nil {
			t.Fatalf("TenantToken() error = %v", err)
		}
	}
	if got := fake.tokenCalls.Load(); got != 1 {
		t.Fatalf("token calls = %d, want 1", got)
	}

	now = now.Add(2 * time.Hour)
	if _, err := client.TenantToken(context.Background()); err != nil {
		t.Fatalf("TenantToken() error = %v", err)
	}
	if got := fake.tokenCalls.Load(); got != 2 {
		t.Fatalf("token calls = %d, want 2", got)
	}
}

func TestSendTextNonZeroCode(t *testing.T) {
	t.Parallel()

	fake := &fakeLark{messageCode: 230001}
	client := newTestClient(t, fake, "secret")

	err := client.SendText(context.Background(), "ops@example.com", "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 230001 {
		t.Fatalf("SendText() error = %v, want APIError 230001", err)
	}
}

func TestSendTextTokenFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeLark{}
	client := newTestClient(t, fake, "wrong")

	if err := client.SendText(context.Background(), "ops@example.com", "hello"); err == nil {
		t.Fatal("expected error")
	}
	if fake.messageCalls.Load() != 0 {
		t.Fatal("message must not be sent without a token")
	}
}
