package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

// fakeUpstash is a tiny Upstash REST emulation supporting GET, SET [EX n] and DEL.
type fakeUpstash struct {
	mu       sync.Mutex
	now      time.Time
	values   map[string]string
	expiry   map[string]time.Time
	commands [][]any
}

func newFakeUpstash() *fakeUpstash {
	return &fakeUpstash{
		now:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		values: map[string]string{},
		expiry: map[string]time.Time{},
	}
}

func (f *fakeUpstash) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeUpstash) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if r.Header.Get("Authorization") != "Bearer token" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"unauthorized"}`)
		return
	}

	var cmd []any
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)

	key, _ := cmd[1].(string)
	if exp, ok := f.expiry[key]; ok && !f.now.Before(exp) {
		delete(f.values, key)
		delete(f.expiry, key)
	}

	switch cmd[0] {
	case "GET":
		v, ok := f.values[key]
		if !ok {
			fmt.Fprint(w, `{"result":null}`)
			return
		}
		encoded, _ := json.Marshal(v)
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	case "SET":
		f.values[key], _ = cmd[2].(string)
		delete(f.expiry, key)
		if len(cmd) == 5 && cmd[3] == "EX" {
			secs, _ := cmd[4].(float64)
			f.expiry[key] = f.now.Add(time.Duration(secs) * time.Second)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	case "DEL":
		delete(f.values, key)
		delete(f.expiry, key)
		fmt.Fprint(w, `{"result":1}`)
	default:
		fmt.Fprint(w, `{"error":"unknown command"}`)
	}
}

func newTestUpstashStore(t *testing.T, fake *fakeUpstash, opts ...StoreOption) *UpstashRedisStore {
	t.Helper()

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	opts = append([]StoreOption{WithHTTPClient(server.Client())}, opts...)
	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		opts...,
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	return store
}

func TestUpstashRedisStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{keyPrefix: defaultStoreKeyPrefix}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "coach:memory:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "coach:memory:abc")
	}
}

func TestUpstashRedisStoreRedisKeyEmptyUser(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	_, err := store.redisKey("   ")
	if !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidUser", err)
	}
}

func TestNewUpstashRedisStoreRequiresURLAndToken(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashRedisStore(UpstashRedisConfig{Token: "t"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := NewUpstashRedisStore(UpstashRedisConfig{URL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestUpstashRedisStoreRoundTripPreservesOrder(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstash()
	store := newTestUpstashStore(t, fake)

	want := []contractx.Message{
		{Role: contractx.RoleUser, Content: "我想取消订阅"},
		{Role: contractx.RoleAssistant, Content: "No worries if you want to cancel"},
		{Role: contractx.RoleUser, Content: "thanks"},
	}
	if err := store.Save(context.Background(), "u1", want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Load()[%d] = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestUpstashRedisStoreSaveSetsTTL(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstash()
	store := newTestUpstashStore(t, fake, WithTTL(90*time.Minute))

	if err := store.Save(context.Background(), "u2", nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	cmd := fake.commands[0]
	if len(cmd) != 5 {
		t.Fatalf("unexpected command: %#v", cmd)
	}
	if cmd[0] != "SET" || cmd[1] != "coach:memory:u2" || cmd[3] != "EX" {
		t.Fatalf("unexpected command: %#v", cmd)
	}
	if cmd[4] != float64(5400) {
		t.Fatalf("ttl = %v, want 5400", cmd[4])
	}
}

func TestUpstashRedisStoreExpiredSessionLoadsEmpty(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstash()
	store := newTestUpstashStore(t, fake, WithTTL(time.Hour))

	msgs := []contractx.Message{{Role: contractx.RoleUser, Content: "hello"}}
	if err := store.Save(context.Background(), "u3", msgs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	fake.advance(59 * time.Minute)
	got, err := store.Load(context.Background(), "u3")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected live session, got %#v", got)
	}

	fake.advance(2 * time.Minute)
	got, err = store.Load(context.Background(), "u3")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected expired session to load empty, got %#v", got)
	}
}

func TestUpstashRedisStoreClear(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstash()
	store := newTestUpstashStore(t, fake)

	if err := store.Save(context.Background(), "u4", []contractx.Message{{Role: contractx.RoleUser, Content: "x"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Clear(context.Background(), "u4"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	got, err := store.Load(context.Background(), "u4")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history after Clear, got %#v", got)
	}
}

func TestUpstashRedisStorePropagatesRedisError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"ERR wrong type"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: server.URL, Token: "token"}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	if _, err := store.Load(context.Background(), "u5"); err == nil {
		t.Fatal("expected error")
	}
}
