package coordinatornode

import (
	"fmt"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

func FinalizeReply(t *Turn) (GraphOutput, error) {
	if t == nil {
		return GraphOutput{}, fmt.Errorf("%w: turn is nil", contractx.ErrValidation)
	}
	if t.FinalAgent == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn ended without a reply", contractx.ErrSchemaViolation)
	}
	return GraphOutput{Result: contractx.Result{
		Response: t.Final,
		Agent:    t.FinalAgent,
		Status:   contractx.StatusSuccess,
	}}, nil
}
