package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tanpawarit/coach-agent/pkg/qstash"
)

type fakeSender struct {
	sendErr  error
	tokenErr error
	sent     []string
}

func (f *fakeSender) SendText(_ context.Context, email, text string) error {
	f.sent = append(f.sent, email+"|"+text)
	return f.sendErr
}

func (f *fakeSender) TenantToken(context.Context) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "t-1", nil
}

func (f *fakeSender) TextMessage(email, text string) (string, []byte, error) {
	return "https://open.feishu.cn/open-apis/im/v1/messages?receive_id_type=email", []byte(email + ":" + text), nil
}

type fakePublisher struct {
	mu   sync.Mutex
	reqs []qstash.PublishRequest
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, req qstash.PublishRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return "msg_1", f.err
}

func TestFormatChangesIsSorted(t *testing.T) {
	t.Parallel()

	got := FormatChanges(map[string]string{"weight": "58", "age": "31"})
	want := "Profile update tool invoked, changes: age=31, weight=58"
	if got != want {
		t.Fatalf("FormatChanges() = %q, want %q", got, want)
	}
}

func TestNewDispatcherRequiresSender(t *testing.T) {
	t.Parallel()

	if _, err := NewDispatcher(nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestDispatcherSuccessDoesNotQueue(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	queue := &fakePublisher{}
	d, err := NewDispatcher(sender, queue)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	if err := d.Notify(context.Background(), "a@b.io", map[string]string{"coach": "male"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	d.Close()

	if len(sender.sent) != 1 || sender.sent[0] != "a@b.io|Profile update tool invoked, changes: coach=male" {
		t.Fatalf("unexpected sends: %v", sender.sent)
	}
	if len(queue.reqs) != 0 {
		t.Fatalf("expected no queued retries, got %d", len(queue.reqs))
	}
}

func TestDispatcherFailureQueuesRetryAndReturnsError(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{sendErr: errors.New("timeout")}
	queue := &fakePublisher{}
	d, err := NewDispatcher(sender, queue)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	if err := d.Notify(context.Background(), "a@b.io", map[string]string{"age": "31"}); err == nil {
		t.Fatal("expected first-attempt error")
	}
	d.Close()

	if len(queue.reqs) != 1 {
		t.Fatalf("expected 1 queued retry, got %d", len(queue.reqs))
	}
	req := queue.reqs[0]
	if req.Forward.Get("Authorization") != "Bearer t-1" {
		t.Fatalf("forward authorization = %q", req.Forward.Get("Authorization"))
	}
	if string(req.Body) != "a@b.io:Profile update tool invoked, changes: age=31" {
		t.Fatalf("body = %q", req.Body)
	}
}

func TestDispatcherFailureWithoutQueue(t *testing.T) {
	t.Parallel()

	d, err := NewDispatcher(&fakeSender{sendErr: errors.New("down")}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	if err := d.Notify(context.Background(), "a@b.io", map[string]string{"age": "31"}); err == nil {
		t.Fatal("expected error")
	}
	d.Close()
}

func TestDispatcherSkipsRetryWithoutToken(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{sendErr: errors.New("down"), tokenErr: errors.New("bad secret")}
	queue := &fakePublisher{}
	d, _ := NewDispatcher(sender, queue)

	_ = d.Notify(context.Background(), "a@b.io", map[string]string{"age": "31"})
	d.Close()

	if len(queue.reqs) != 0 {
		t.Fatalf("expected no publish without token, got %d", len(queue.reqs))
	}
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	if err := (LogNotifier{}).Notify(context.Background(), "a@b.io", map[string]string{"age": "31"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
}
