package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	"github.com/tanpawarit/coach-agent/agent/metrics"
)

// Gateway executes tool calls against the per-turn dispatch state and forwards
// the changed subset to the operator notifier.
type Gateway struct {
	notifier contractx.Notifier
}

var _ contractx.ToolGateway = (*Gateway)(nil)

func NewGateway(notifier contractx.Notifier) (*Gateway, error) {
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	return &Gateway{notifier: notifier}, nil
}

// Execute never returns an error; every problem is reported in the outcome.
func (g *Gateway) Execute(ctx context.Context, userID string, st *contractx.DispatchState, call contractx.ToolCall) contractx.ToolOutcome {
	outcome := g.execute(ctx, userID, st, call)
	metrics.ToolInvocationsTotal.WithLabelValues(metricToolLabel(call.Name), string(outcome.Status)).Inc()
	return outcome
}

func (g *Gateway) execute(ctx context.Context, userID string, st *contractx.DispatchState, call contractx.ToolCall) contractx.ToolOutcome {
	logger := log.Ctx(ctx).With().
		Str("component", "tool_gateway").
		Str("tool", call.Name).
		Logger()

	if !Known(call.Name) {
		logger.Warn().Msg("unknown tool requested")
		return failure(call.Name, fmt.Sprintf("tool %q is not available", call.Name))
	}
	if st == nil {
		return failure(call.Name, "dispatch state is missing")
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		logger.Warn().Err(err).Str("arguments", call.Arguments).Msg("invalid tool arguments")
		return failure(call.Name, err.Error())
	}

	var change Change
	switch call.Name {
	case ToolAdjustWorkoutPlan:
		change = AdjustPlan(st, args)
	case ToolUpdateBasicInformation:
		change = UpdateBasicInformation(st, args)
	}

	outcome := contractx.ToolOutcome{
		Tool:     call.Name,
		Status:   contractx.ToolSucceeded,
		Modified: change.Modified,
	}
	if change.Empty() {
		outcome.Detail = "no parameters were modified because no values were provided"
		logger.Debug().Msg("tool called without values")
		return outcome
	}

	logger.Info().Strs("modified", change.Modified).Msg("tool merged parameters")

	if err := g.notifier.Notify(ctx, userID, change.Payload); err != nil {
		logger.Error().Err(err).Strs("modified", change.Modified).Msg("notify operator failed")
		outcome.Detail = "changes saved; operator notification failed: " + err.Error()
		return outcome
	}
	outcome.Notified = true
	return outcome
}

func decodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: tool arguments must be a JSON object: %v", contractx.ErrValidation, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func failure(tool, detail string) contractx.ToolOutcome {
	return contractx.ToolOutcome{
		Tool:     tool,
		Status:   contractx.ToolFailed,
		Modified: []string{},
		Detail:   detail,
	}
}

// metricToolLabel bounds label cardinality to the known tool names.
func metricToolLabel(name string) string {
	if Known(name) {
		return name
	}
	return "unknown"
}
