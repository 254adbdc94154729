package qstash

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "https://qstash.upstash.io"}); err == nil {
		t.Fatal("expected error for missing token")
	}
	if _, err := NewClient(Config{Token: "t"}); err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestPublish(t *testing.T) {
	t.Parallel()

	var (
		gotPath    string
		gotHeaders http.Header
		gotBody    string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messageId":"msg_1"}`))
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "secret", Retries: 5})
	forward := http.Header{}
	forward.Set("Authorization", "Bearer lark")

	id, err := client.Publish(context.Background(), PublishRequest{
		Destination: "https://open.feishu.cn/open-apis/im/v1/messages?receive_id_type=email",
		Body:        []byte(`{"msg_type":"text"}`),
		Forward:     forward,
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id != "msg_1" {
		t.Fatalf("message id = %q", id)
	}
	if gotPath != "/v2/publish/https://open.feishu.cn/open-apis/im/v1/messages" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotHeaders.Get("Authorization") != "Bearer secret" {
		t.Fatalf("authorization = %q", gotHeaders.Get("Authorization"))
	}
	if gotHeaders.Get("Upstash-Retries") != "5" {
		t.Fatalf("retries = %q", gotHeaders.Get("Upstash-Retries"))
	}
	if gotHeaders.Get("Upstash-Forward-Authorization") != "Bearer lark" {
		t.Fatalf("forward header = %q", gotHeaders.Get("Upstash-Forward-Authorization"))
	}
	if gotBody != `{"msg_type":"text"}` {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestPublishErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "bad"})
	if _, err := client.Publish(context.Background(), PublishRequest{Destination: "https://example.com/hook"}); err == nil {
		t.Fatal("expected error")
	}
}
