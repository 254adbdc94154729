package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	promptx "github.com/tanpawarit/coach-agent/agent/prompt"
	toolx "github.com/tanpawarit/coach-agent/agent/tool"
)

const HandoffToolName = "transfer_to_agent"

var targetLinePattern = regexp.MustCompile(`(?im)^[ \t]*target_agent[ \t]*[:：][ \t]*([A-Za-z_]+)[ \t]*$`)

type responderImpl struct {
	def      Definition
	runner   compose.Runnable[map[string]any, *schema.Message]
	handoffs map[contractx.AgentName]struct{}
}

var _ contractx.Responder = (*responderImpl)(nil)

type handoffArgs struct {
	ToAgent string `json:"to_agent"`
	Reason  string `json:"reason"`
}

func newResponder(
	ctx context.Context,
	def Definition,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
) (*responderImpl, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model for %s is nil", contractx.ErrValidation, def.Name)
	}

	tools := toolx.ToolInfos(def.Tools...)
	if len(def.Handoffs) > 0 {
		tools = append(tools, handoffToolInfo(def.Handoffs))
	}

	var bound einomodel.BaseChatModel = chatModel
	if len(tools) > 0 {
		withTools, err := chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools for responder=%s: %v", contractx.ErrModelInvoke, def.Name, err)
		}
		bound = withTools
	}

	runner, err := compileStepGraph(ctx, bound, systemPrompt, "responder."+string(def.Name))
	if err != nil {
		return nil, fmt.Errorf("%w: compile step graph for %s: %v", contractx.ErrModelInvoke, def.Name, err)
	}

	handoffs := make(map[contractx.AgentName]struct{}, len(def.Handoffs))
	for _, h := range def.Handoffs {
		handoffs[h] = struct{}{}
	}

	return &responderImpl{
		def:      def,
		runner:   runner,
		handoffs: handoffs,
	}, nil
}

func (r *responderImpl) Name() contractx.AgentName { return r.def.Name }

func (r *responderImpl) Tools() []string {
	return append([]string(nil), r.def.Tools...)
}

func (r *responderImpl) Handoffs() []contractx.AgentName {
	return append([]contractx.AgentName(nil), r.def.Handoffs...)
}

func (r *responderImpl) Fallback() string { return r.def.Fallback }

// Step runs one model call. A response that cannot be read as a handoff or a
// tool request is a reply.
func (r *responderImpl) Step(ctx context.Context, req contractx.StepRequest) (contractx.StepResult, error) {
	vars := promptx.Vars(req.Language)
	vars[varHistory] = historyMessages(req.History)
	vars[varQuery] = req.Query
	vars[varScratchpad] = scratchpadMessages(req.Exchanges)

	msg, err := r.runner.Invoke(ctx, vars)
	if err != nil {
		return contractx.StepResult{}, fmt.Errorf("%w: responder=%s: %v", contractx.ErrModelInvoke, r.def.Name, err)
	}
	return r.decide(ctx, msg), nil
}

func (r *responderImpl) decide(ctx context.Context, msg *schema.Message) contractx.StepResult {
	if msg == nil {
		return contractx.Reply("")
	}
	logger := log.Ctx(ctx).With().Str("agent", string(r.def.Name)).Logger()
	text := strings.TrimSpace(msg.Content)

	var calls []contractx.ToolCall
	for i, tc := range msg.ToolCalls {
		name := strings.TrimSpace(tc.Function.Name)
		if name == HandoffToolName {
			if h, ok := r.parseHandoffCall(tc.Function.Arguments); ok {
				return contractx.StepResult{Kind: contractx.StepHandoff, Text: text, Handoff: h}
			}
			logger.Warn().Str("arguments", tc.Function.Arguments).Msg("ignoring handoff to a target outside the allowed set")
			continue
		}
		if name == "" {
			continue
		}
		id := strings.TrimSpace(tc.ID)
		if id == "" {
			id = fmt.Sprintf("call_%s_%d", r.def.Name, i)
		}
		calls = append(calls, contractx.ToolCall{
			ID:        id,
			Name:      name,
			Arguments: tc.Function.Arguments,
		})
	}
	if len(calls) > 0 {
		return contractx.StepResult{Kind: contractx.StepToolCalls, Text: text, ToolCalls: calls}
	}

	if m := targetLinePattern.FindStringSubmatch(text); m != nil {
		target := contractx.AgentName(strings.ToLower(m[1]))
		if r.allows(target) {
			rest := strings.TrimSpace(targetLinePattern.ReplaceAllString(text, ""))
			return contractx.StepResult{
				Kind:    contractx.StepHandoff,
				Text:    rest,
				Handoff: &contractx.Handoff{Target: target},
			}
		}
		logger.Warn().Str("target", string(target)).Msg("ignoring textual handoff to a target outside the allowed set")
	}

	return contractx.Reply(text)
}

func (r *responderImpl) parseHandoffCall(raw string) (*contractx.Handoff, bool) {
	var args handoffArgs
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &args); err != nil {
		return nil, false
	}
	target := contractx.AgentName(strings.ToLower(strings.TrimSpace(args.ToAgent)))
	if !r.allows(target) {
		return nil, false
	}
	return &contractx.Handoff{Target: target, Reason: strings.TrimSpace(args.Reason)}, true
}

func (r *responderImpl) allows(target contractx.AgentName) bool {
	_, ok := r.handoffs[target]
	return ok
}

func handoffToolInfo(targets []contractx.AgentName) *schema.ToolInfo {
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, string(t))
	}
	return &schema.ToolInfo{
		Name: HandoffToolName,
		Desc: "Transfer the conversation to the specialist that owns the user's request. The specialist sees the full conversation.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"to_agent": {
				Type:     schema.String,
				Desc:     "Name of the specialist to transfer to",
				Enum:     names,
				Required: true,
			},
			"reason": {
				Type: schema.String,
				Desc: "Why this specialist should handle the request",
			},
		}),
	}
}

func historyMessages(history []contractx.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case contractx.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case contractx.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		case contractx.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		}
	}
	return out
}

// scratchpadMessages replays the tool exchanges of the running turn as an
// assistant tool-call message followed by one tool message per result.
func scratchpadMessages(exchanges []contractx.ToolExchange) []*schema.Message {
	var out []*schema.Message
	for _, ex := range exchanges {
		calls := make([]schema.ToolCall, 0, len(ex.Calls))
		for _, c := range ex.Calls {
			calls = append(calls, schema.ToolCall{
				ID:   c.ID,
				Type: "function",
				Function: schema.FunctionCall{
					Name:      c.Name,
					Arguments: c.Arguments,
				},
			})
		}
		out = append(out, schema.AssistantMessage(ex.Text, calls))
		for i, c := range ex.Calls {
			var outcome contractx.ToolOutcome
			if i < len(ex.Outcomes) {
				outcome = ex.Outcomes[i]
			} else {
				outcome = contractx.ToolOutcome{Tool: c.Name, Status: contractx.ToolFailed, Detail: "no result"}
			}
			out = append(out, schema.ToolMessage(outcomeText(outcome), c.ID))
		}
	}
	return out
}

func outcomeText(o contractx.ToolOutcome) string {
	raw, err := json.Marshal(o)
	if err != nil {
		return fmt.Sprintf(`{"tool":%q,"status":%q}`, o.Tool, o.Status)
	}
	return string(raw)
}
