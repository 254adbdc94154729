package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	metricsx "github.com/tanpawarit/coach-agent/agent/metrics"
	nodex "github.com/tanpawarit/coach-agent/agent/nodes"
	promptx "github.com/tanpawarit/coach-agent/agent/prompt"
	statex "github.com/tanpawarit/coach-agent/agent/state"
)

var (
	ErrInvalidTurn = nodex.ErrInvalidTurn
	ErrInvalidUser = nodex.ErrInvalidUser
)

const apologyPrefix = "抱歉，处理您的请求时出现了错误: "

// Config bounds a turn. MaxHandoffs of 0 turns chained handoffs off and a
// negative value keeps the default.
type Config struct {
	MaxSteps        int    `envconfig:"MAX_STEPS" split_words:"true" default:"4"`
	MaxHandoffs     int    `envconfig:"MAX_HANDOFFS" split_words:"true" default:"2"`
	DefaultLanguage string `envconfig:"DEFAULT_LANGUAGE" split_words:"true" default:"zh"`
}

// Coordinator runs one user turn at a time through the responder set and
// keeps the conversation history in the store.
type Coordinator struct {
	store      statex.Store
	responders contractx.ResponderSet
	tools      contractx.ToolGateway

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	limits          nodex.Limits
	defaultLanguage string

	now   func() time.Time
	newID func() string
}

func New(
	store statex.Store,
	responders contractx.ResponderSet,
	tools contractx.ToolGateway,
	cfg Config,
) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if responders == nil {
		return nil, errors.New("responder set is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}

	lang := cfg.DefaultLanguage
	if lang == "" {
		lang = promptx.DefaultLanguage
	}

	c := &Coordinator{
		store:      store,
		responders: responders,
		tools:      tools,
		limits: nodex.Limits{
			MaxSteps:    cfg.MaxSteps,
			MaxHandoffs: cfg.MaxHandoffs,
		}.Normalized(),
		defaultLanguage: lang,
		now:             time.Now,
		newID:           uuid.NewString,
	}

	graphRunner, err := c.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	c.graphRunner = graphRunner

	return c, nil
}

// Chat runs a single-shot turn. Failures are reported in the Result, never
// as a Go error.
func (c *Coordinator) Chat(ctx context.Context, req contractx.ChatRequest) contractx.Result {
	return c.run(ctx, req, nil)
}

// ChatStream runs a turn and forwards each assistant text fragment to sink as
// it is produced. Tool events are not forwarded. On failure the apology is
// delivered as a final fragment from the error handler.
func (c *Coordinator) ChatStream(ctx context.Context, req contractx.ChatRequest, sink func(contractx.TextFragment)) contractx.Result {
	var forward contractx.EventSink
	if sink != nil {
		forward = func(ev contractx.Event) {
			if frag, ok := ev.(contractx.TextFragment); ok {
				sink(frag)
			}
		}
	}
	res := c.run(ctx, req, forward)
	if res.Status == contractx.StatusError && sink != nil {
		sink(contractx.TextFragment{Agent: res.Agent, Text: res.Response})
	}
	return res
}

func (c *Coordinator) History(ctx context.Context, userID string) ([]contractx.Message, error) {
	return c.store.Load(ctx, userID)
}

func (c *Coordinator) Clear(ctx context.Context, userID string) error {
	return c.store.Clear(ctx, userID)
}

func (c *Coordinator) run(ctx context.Context, req contractx.ChatRequest, sink contractx.EventSink) contractx.Result {
	started := c.now()
	turnID := c.newID()

	logger := log.Ctx(ctx).With().
		Str("turn_id", turnID).
		Str("user_id", req.UserID).
		Logger()
	ctx = logger.WithContext(ctx)

	turn := nodex.NewTurn(turnID, req, started, logToolEvents(ctx, sink))

	var res contractx.Result
	out, err := c.graphRunner.Invoke(ctx, nodex.GraphInput{Turn: turn})
	if err != nil {
		logger.Error().Err(err).Msg("turn failed")
		res = contractx.Result{
			Response: apologyPrefix + err.Error(),
			Agent:    contractx.AgentErrorHandler,
			Status:   contractx.StatusError,
		}
	} else {
		res = out.Result
	}

	c.persist(ctx, turn)
	turn.Emit(contractx.TurnComplete{Result: res})

	metricsx.TurnsTotal.WithLabelValues(string(res.Agent), string(res.Status)).Inc()
	metricsx.TurnDuration.Observe(c.now().Sub(started).Seconds())
	logger.Info().
		Str("agent", string(res.Agent)).
		Str("status", string(res.Status)).
		Int("fragments", len(turn.Fragments)).
		Dur("elapsed", c.now().Sub(started)).
		Msg("turn complete")

	return res
}

// logToolEvents records tool activity at debug level before handing every
// event to next, which may be nil.
func logToolEvents(ctx context.Context, next contractx.EventSink) contractx.EventSink {
	logger := log.Ctx(ctx)
	return func(ev contractx.Event) {
		switch e := ev.(type) {
		case contractx.ToolCallRequested:
			logger.Debug().
				Str("agent", string(e.Agent)).
				Str("tool", e.Call.Name).
				Str("call_id", e.Call.ID).
				Msg("tool call requested")
		case contractx.ToolCallCompleted:
			logger.Debug().
				Str("agent", string(e.Agent)).
				Str("tool", e.Outcome.Tool).
				Str("status", string(e.Outcome.Status)).
				Strs("modified", e.Outcome.Modified).
				Bool("notified", e.Outcome.Notified).
				Msg("tool call completed")
		}
		if next != nil {
			next(ev)
		}
	}
}

// persist saves the turn even when the client went away. A turn whose history
// never loaded is not saved, so an unreadable session is not overwritten.
func (c *Coordinator) persist(ctx context.Context, turn *nodex.Turn) {
	if !turn.HistoryLoaded {
		return
	}
	if err := c.store.Save(context.WithoutCancel(ctx), turn.UserID, turn.Transcript()); err != nil {
		log.Ctx(ctx).Error().Err(fmt.Errorf("save history: %w", err)).Msg("history not saved")
	}
}
