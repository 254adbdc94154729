package coordinatornode

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

// runResponder drives one responder until it replies or hands off. Tool calls
// are executed in order and fed back on the next step. It returns the handoff
// step, or nil when the responder produced the final reply.
func runResponder(
	ctx context.Context,
	t *Turn,
	r contractx.Responder,
	tools contractx.ToolGateway,
	limits Limits,
) (*contractx.StepResult, error) {
	logger := log.Ctx(ctx).With().Str("agent", string(r.Name())).Logger()

	var exchanges []contractx.ToolExchange
	for step := 0; step < limits.MaxSteps; step++ {
		res, err := r.Step(ctx, contractx.StepRequest{
			Language:  t.Language,
			History:   t.History,
			Query:     t.Query,
			Exchanges: exchanges,
		})
		if err != nil {
			return nil, fmt.Errorf("responder %s step %d: %w", r.Name(), step+1, err)
		}

		switch res.Kind {
		case contractx.StepHandoff:
			if res.Handoff == nil {
				t.finish(r.Name(), orFallback(res.Text, r))
				return nil, nil
			}
			logger.Info().
				Str("target", string(res.Handoff.Target)).
				Str("reason", res.Handoff.Reason).
				Str("analysis", res.Text).
				Msg("handoff requested")
			return &res, nil

		case contractx.StepToolCalls:
			t.AddFragment(r.Name(), res.Text)
			ex := contractx.ToolExchange{Text: res.Text, Calls: res.ToolCalls}
			for _, call := range res.ToolCalls {
				t.Emit(contractx.ToolCallRequested{Agent: r.Name(), Call: call})
				outcome := runTool(ctx, t, r, tools, call)
				t.Emit(contractx.ToolCallCompleted{Agent: r.Name(), Outcome: outcome})
				ex.Outcomes = append(ex.Outcomes, outcome)
			}
			exchanges = append(exchanges, ex)

		default:
			t.finish(r.Name(), orFallback(res.Text, r))
			return nil, nil
		}
	}

	logger.Warn().Int("max_steps", limits.MaxSteps).Msg("responder did not reply within the step limit")
	t.finish(r.Name(), r.Fallback())
	return nil, nil
}

// runTool enforces that a responder only uses its own tools and that each tool
// runs at most once per turn.
func runTool(
	ctx context.Context,
	t *Turn,
	r contractx.Responder,
	tools contractx.ToolGateway,
	call contractx.ToolCall,
) contractx.ToolOutcome {
	if !slices.Contains(r.Tools(), call.Name) {
		return contractx.ToolOutcome{
			Tool:     call.Name,
			Status:   contractx.ToolFailed,
			Modified: []string{},
			Detail:   fmt.Sprintf("tool %q is not available to %s", call.Name, r.Name()),
		}
	}
	if _, done := t.toolsRun[call.Name]; done {
		return contractx.ToolOutcome{
			Tool:     call.Name,
			Status:   contractx.ToolFailed,
			Modified: []string{},
			Detail:   fmt.Sprintf("tool %q was already called in this turn", call.Name),
		}
	}
	t.toolsRun[call.Name] = struct{}{}
	return tools.Execute(ctx, t.UserID, t.State, call)
}

func orFallback(text string, r contractx.Responder) string {
	if text != "" {
		return text
	}
	return r.Fallback()
}
