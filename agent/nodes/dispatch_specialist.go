package coordinatornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

// DispatchSpecialist runs the handed-off responder, following further
// handoffs up to the limit. A handoff past the limit is answered by the
// responder that asked for it.
func DispatchSpecialist(
	ctx context.Context,
	t *Turn,
	responders contractx.ResponderSet,
	tools contractx.ToolGateway,
	limits Limits,
) (*Turn, error) {
	if t == nil || t.Pending == nil {
		return nil, fmt.Errorf("%w: no pending handoff", contractx.ErrValidation)
	}
	limits = limits.Normalized()

	for t.Pending != nil {
		target := t.Pending.Target
		t.Pending = nil

		r, ok := responders.Get(target)
		if !ok {
			return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownAgent, target)
		}
		log.Ctx(ctx).Debug().Str("agent", string(target)).Int("handoffs", t.Handoffs).Msg("specialist active")

		handoff, err := runResponder(ctx, t, r, tools, limits)
		if err != nil {
			return nil, err
		}
		if handoff == nil {
			return t, nil
		}
		if t.Handoffs >= limits.MaxHandoffs {
			log.Ctx(ctx).Warn().
				Str("agent", string(r.Name())).
				Str("target", string(handoff.Handoff.Target)).
				Msg("handoff limit reached")
			t.finish(r.Name(), orFallback(handoff.Text, r))
			return t, nil
		}
		t.Handoffs++
		t.Pending = handoff.Handoff
	}
	return t, nil
}
