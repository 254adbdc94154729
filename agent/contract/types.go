package contract

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one entry of a user's conversation history. Order is chronological.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type AgentName string

const (
	AgentRouter          AgentName = "router_agent"
	AgentHealthAdvice    AgentName = "health_advice_agent"
	AgentSubscription    AgentName = "subscription_agent"
	AgentTroubleshooting AgentName = "troubleshooting_agent"
	AgentProfile         AgentName = "profile_agent"

	// AgentErrorHandler is reported when a turn aborts before any responder answered.
	AgentErrorHandler AgentName = "error_handler"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type ChatRequest struct {
	UserID       string `json:"user_id"`
	Query        string `json:"query"`
	UserLanguage string `json:"user_language"`
}

// Result is the outcome of one turn.
type Result struct {
	Response string    `json:"response"`
	Agent    AgentName `json:"agent"`
	Status   Status    `json:"status"`
}

// DispatchState is the per-turn scratch state shared by the tools of a turn.
// It is created empty for every turn and never persisted.
type DispatchState struct {
	WorkoutPlanParams map[string]string `json:"workout_plan_params"`
	BasicInfoParams   map[string]string `json:"basic_info_params"`
}

func NewDispatchState() *DispatchState {
	return &DispatchState{
		WorkoutPlanParams: make(map[string]string, 8),
		BasicInfoParams:   make(map[string]string, 4),
	}
}

type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

type ToolStatus string

const (
	ToolSucceeded ToolStatus = "success"
	ToolFailed    ToolStatus = "failure"
)

// ToolOutcome is what a tool reports back to the responder that called it.
// Notification problems never turn a merge into a failure; they only show up
// as Notified=false with a Detail.
type ToolOutcome struct {
	Tool     string     `json:"tool"`
	Status   ToolStatus `json:"status"`
	Modified []string   `json:"modified"`
	Notified bool       `json:"notified"`
	Detail   string     `json:"detail,omitempty"`
}

func (o ToolOutcome) OK() bool {
	return o.Status == ToolSucceeded
}

// ToolExchange is one model step that requested tools, together with the outcomes.
type ToolExchange struct {
	Text     string        `json:"text,omitempty"`
	Calls    []ToolCall    `json:"calls"`
	Outcomes []ToolOutcome `json:"outcomes"`
}

type StepRequest struct {
	Language  string         `json:"language"`
	History   []Message      `json:"history"`
	Query     string         `json:"query"`
	Exchanges []ToolExchange `json:"exchanges,omitempty"`
}

type StepKind string

const (
	StepReply     StepKind = "reply"
	StepHandoff   StepKind = "handoff"
	StepToolCalls StepKind = "tool_calls"
)

type Handoff struct {
	Target AgentName `json:"target"`
	Reason string    `json:"reason,omitempty"`
}

// StepResult is the typed reading of one model response. Kind selects which
// of Handoff and ToolCalls is populated; Text may accompany any kind.
type StepResult struct {
	Kind      StepKind   `json:"kind"`
	Text      string     `json:"text,omitempty"`
	Handoff   *Handoff   `json:"handoff,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

func Reply(text string) StepResult {
	return StepResult{Kind: StepReply, Text: text}
}
