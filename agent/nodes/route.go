package coordinatornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

// Route lets the root responder answer or pick a specialist.
func Route(
	ctx context.Context,
	t *Turn,
	responders contractx.ResponderSet,
	tools contractx.ToolGateway,
	limits Limits,
) (*Turn, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: turn is nil", contractx.ErrValidation)
	}
	limits = limits.Normalized()

	root := responders.Root()
	handoff, err := runResponder(ctx, t, root, tools, limits)
	if err != nil {
		return nil, err
	}
	if handoff != nil {
		t.Pending = handoff.Handoff
	}
	return t, nil
}

// HasPendingHandoff selects the branch after Route.
func HasPendingHandoff(t *Turn) bool {
	return t != nil && t.Pending != nil
}
