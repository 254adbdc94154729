package contract

import "context"

// Responder is one configured behaviour profile. Step runs a single model call.
type Responder interface {
	Name() AgentName
	Tools() []string
	Handoffs() []AgentName
	Fallback() string
	Step(ctx context.Context, req StepRequest) (StepResult, error)
}

type ResponderSet interface {
	Root() Responder
	Get(name AgentName) (Responder, bool)
}

type ToolGateway interface {
	Execute(ctx context.Context, userID string, st *DispatchState, call ToolCall) ToolOutcome
}

type Notifier interface {
	Notify(ctx context.Context, recipient string, changes map[string]string) error
}
