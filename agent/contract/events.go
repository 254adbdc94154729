package contract

// Event is emitted while a turn runs. The set of implementations is closed:
// TextFragment, ToolCallRequested, ToolCallCompleted and TurnComplete.
type Event interface {
	isEvent()
}

// TextFragment is assistant-authored text. It is the only event forwarded to
// streaming clients.
type TextFragment struct {
	Agent AgentName
	Text  string
}

type ToolCallRequested struct {
	Agent AgentName
	Call  ToolCall
}

type ToolCallCompleted struct {
	Agent   AgentName
	Outcome ToolOutcome
}

type TurnComplete struct {
	Result Result
}

func (TextFragment) isEvent()      {}
func (ToolCallRequested) isEvent() {}
func (ToolCallCompleted) isEvent() {}
func (TurnComplete) isEvent()      {}

type EventSink func(Event)
