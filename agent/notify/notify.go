package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	"github.com/tanpawarit/coach-agent/agent/metrics"
	"github.com/tanpawarit/coach-agent/pkg/qstash"
)

const (
	channelLark   = "lark"
	channelQStash = "qstash"
	channelLog    = "log"

	handoffTimeout = 15 * time.Second
)

// Sender is the instant-messaging side of a notification.
type Sender interface {
	SendText(ctx context.Context, email, text string) error
	TenantToken(ctx context.Context) (string, error)
	TextMessage(email, text string) (string, []byte, error)
}

// Publisher hands a request to a durable delivery queue.
type Publisher interface {
	Publish(ctx context.Context, req qstash.PublishRequest) (string, error)
}

// FormatChanges renders the operator message for a set of changed parameters.
// Keys are sorted so repeated changes produce identical text.
func FormatChanges(changes map[string]string) string {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+changes[k])
	}
	return "Profile update tool invoked, changes: " + strings.Join(parts, ", ")
}

// Dispatcher sends the operator message once, synchronously. When that attempt
// fails and a queue is configured, the same message is published to the queue
// in the background so the turn is not delayed by retries.
type Dispatcher struct {
	sender Sender
	queue  Publisher
	wg     conc.WaitGroup
}

var _ contractx.Notifier = (*Dispatcher)(nil)

func NewDispatcher(sender Sender, queue Publisher) (*Dispatcher, error) {
	if sender == nil {
		return nil, errors.New("notification sender is required")
	}
	return &Dispatcher{sender: sender, queue: queue}, nil
}

// Notify returns the error of the first attempt even when a retry was queued.
func (d *Dispatcher) Notify(ctx context.Context, recipient string, changes map[string]string) error {
	text := FormatChanges(changes)
	err := d.sender.SendText(ctx, recipient, text)
	if err == nil {
		metrics.NotificationsTotal.WithLabelValues(channelLark, "ok").Inc()
		log.Ctx(ctx).Info().Str("recipient", recipient).Msg("operator notified")
		return nil
	}
	metrics.NotificationsTotal.WithLabelValues(channelLark, "error").Inc()

	if d.queue != nil {
		bg := context.WithoutCancel(ctx)
		d.wg.Go(func() {
			d.handoff(bg, recipient, text)
		})
	}
	return fmt.Errorf("lark notify: %w", err)
}

func (d *Dispatcher) handoff(ctx context.Context, recipient, text string) {
	ctx, cancel := context.WithTimeout(ctx, handoffTimeout)
	defer cancel()

	logger := log.Ctx(ctx).With().Str("component", "notify").Str("recipient", recipient).Logger()

	token, err := d.sender.TenantToken(ctx)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(channelQStash, "error").Inc()
		logger.Error().Err(err).Msg("retry hand-off skipped: no tenant token")
		return
	}
	endpoint, body, err := d.sender.TextMessage(recipient, text)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(channelQStash, "error").Inc()
		logger.Error().Err(err).Msg("retry hand-off skipped: build message")
		return
	}

	forward := http.Header{}
	forward.Set("Authorization", "Bearer "+token)
	id, err := d.queue.Publish(ctx, qstash.PublishRequest{
		Destination: endpoint,
		Body:        body,
		ContentType: "application/json; charset=utf-8",
		Forward:     forward,
	})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(channelQStash, "error").Inc()
		logger.Error().Err(err).Msg("retry hand-off failed")
		return
	}
	metrics.NotificationsTotal.WithLabelValues(channelQStash, "ok").Inc()
	logger.Info().Str("message_id", id).Msg("notification queued for retry")
}

// Close waits for queued hand-offs to finish.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

// LogNotifier only logs. It is used when no messaging app is configured.
type LogNotifier struct{}

var _ contractx.Notifier = LogNotifier{}

func (LogNotifier) Notify(ctx context.Context, recipient string, changes map[string]string) error {
	metrics.NotificationsTotal.WithLabelValues(channelLog, "ok").Inc()
	log.Ctx(ctx).Info().
		Str("recipient", recipient).
		Str("text", FormatChanges(changes)).
		Msg("operator notification (log only)")
	return nil
}
