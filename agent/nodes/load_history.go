package coordinatornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	statex "github.com/tanpawarit/coach-agent/agent/state"
)

func LoadHistory(ctx context.Context, t *Turn, store statex.Store) (*Turn, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: turn is nil", contractx.ErrValidation)
	}
	history, err := store.Load(ctx, t.UserID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	t.History = history
	t.HistoryLoaded = true
	return t, nil
}
