package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientWithoutKey(t *testing.T) {
	t.Parallel()

	if NewClient(Config{Model: "openai/gpt-4o-mini"}) != nil {
		t.Fatal("expected nil client without api key")
	}
}

func TestNewProberValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewProber(Config{Model: "m"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewProber(Config{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/models/openai/gpt-4o-mini" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"openai/gpt-4o-mini","object":"model","created":0,"owned_by":"openai"}`))
	}))
	t.Cleanup(server.Close)

	prober, err := NewProber(Config{BaseURL: server.URL, APIKey: "sk-test", Model: "openai/gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewProber() error = %v", err)
	}
	if err := prober.Probe(context.Background()); err != nil {
		t.Fatalf("Probe() error = %v (path=%s)", err, gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}
