package coordinatornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

var (
	ErrInvalidTurn = errors.New("turn is nil")
	ErrInvalidUser = errors.New("user id is empty")
)

const (
	DefaultMaxSteps    = 4
	DefaultMaxHandoffs = 2
)

// Limits bound the work of one turn.
type Limits struct {
	// MaxSteps is the number of model calls one responder may make per activation.
	MaxSteps int
	// MaxHandoffs counts transfers after the router's. Zero disables chained
	// handoffs; a negative value selects DefaultMaxHandoffs.
	MaxHandoffs int
}

// Normalized fills unset limits with the defaults.
func (l Limits) Normalized() Limits {
	if l.MaxSteps <= 0 {
		l.MaxSteps = DefaultMaxSteps
	}
	if l.MaxHandoffs < 0 {
		l.MaxHandoffs = DefaultMaxHandoffs
	}
	return l
}

type GraphInput struct {
	Turn *Turn
}

type GraphOutput struct {
	Result contractx.Result
}

// Fragment is one piece of assistant text and the responder that wrote it.
type Fragment struct {
	Agent contractx.AgentName
	Text  string
}

// Turn is the mutable state of one request. The caller keeps the pointer, so
// whatever was produced before a failure is still visible after it.
type Turn struct {
	ID        string
	UserID    string
	Query     string
	Language  string
	StartedAt time.Time

	History       []contractx.Message
	HistoryLoaded bool

	State     *contractx.DispatchState
	Fragments []Fragment

	Pending  *contractx.Handoff
	Handoffs int
	toolsRun map[string]struct{}

	Final      string
	FinalAgent contractx.AgentName

	sink contractx.EventSink
}

func NewTurn(id string, req contractx.ChatRequest, now time.Time, sink contractx.EventSink) *Turn {
	return &Turn{
		ID:        id,
		UserID:    req.UserID,
		Query:     req.Query,
		Language:  req.UserLanguage,
		StartedAt: now,
		State:     contractx.NewDispatchState(),
		toolsRun:  make(map[string]struct{}, 2),
		sink:      sink,
	}
}

func (t *Turn) Emit(ev contractx.Event) {
	if t.sink != nil {
		t.sink(ev)
	}
}

// AddFragment records assistant text and emits it.
func (t *Turn) AddFragment(agent contractx.AgentName, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	t.Fragments = append(t.Fragments, Fragment{Agent: agent, Text: text})
	t.Emit(contractx.TextFragment{Agent: agent, Text: text})
}

func (t *Turn) finish(agent contractx.AgentName, text string) {
	t.AddFragment(agent, text)
	t.Final = strings.TrimSpace(text)
	t.FinalAgent = agent
}

// Transcript is the history to persist after the turn: the loaded history,
// the user message and every assistant fragment in order.
func (t *Turn) Transcript() []contractx.Message {
	out := make([]contractx.Message, 0, len(t.History)+1+len(t.Fragments))
	out = append(out, t.History...)
	out = append(out, contractx.Message{Role: contractx.RoleUser, Content: t.Query})
	for _, f := range t.Fragments {
		out = append(out, contractx.Message{Role: contractx.RoleAssistant, Content: f.Text})
	}
	return out
}

func ValidateRequest(in GraphInput, defaultLanguage string) (*Turn, error) {
	t := in.Turn
	if t == nil {
		return nil, ErrInvalidTurn
	}

	t.UserID = strings.TrimSpace(t.UserID)
	if t.UserID == "" {
		return nil, ErrInvalidUser
	}
	t.Query = strings.TrimSpace(t.Query)
	t.Language = strings.TrimSpace(t.Language)
	if t.Language == "" {
		t.Language = defaultLanguage
	}
	if t.State == nil {
		t.State = contractx.NewDispatchState()
	}
	if t.toolsRun == nil {
		t.toolsRun = make(map[string]struct{}, 2)
	}
	return t, nil
}
