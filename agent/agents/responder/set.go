package responder

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	promptx "github.com/tanpawarit/coach-agent/agent/prompt"
)

// ModelFactory returns the chat model a responder runs on.
type ModelFactory func(ctx context.Context, agent contractx.AgentName) (einomodel.ToolCallingChatModel, error)

type setImpl struct {
	root   contractx.Responder
	byName map[contractx.AgentName]contractx.Responder
}

var _ contractx.ResponderSet = (*setImpl)(nil)

// NewSet builds every responder of Definitions once. The router is the root.
func NewSet(ctx context.Context, models ModelFactory) (contractx.ResponderSet, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: model factory is nil", contractx.ErrValidation)
	}

	set := &setImpl{byName: make(map[contractx.AgentName]contractx.Responder)}
	for _, def := range Definitions() {
		chatModel, err := models(ctx, def.Name)
		if err != nil {
			return nil, err
		}
		systemPrompt, err := promptx.For(def.Name)
		if err != nil {
			return nil, err
		}
		r, err := newResponder(ctx, def, chatModel, systemPrompt)
		if err != nil {
			return nil, err
		}
		set.byName[def.Name] = r
		if def.Name == contractx.AgentRouter {
			set.root = r
		}
	}
	if set.root == nil {
		return nil, fmt.Errorf("%w: router responder is not defined", contractx.ErrUnknownAgent)
	}
	return set, nil
}

func (s *setImpl) Root() contractx.Responder {
	return s.root
}

func (s *setImpl) Get(name contractx.AgentName) (contractx.Responder, bool) {
	r, ok := s.byName[name]
	return r, ok
}
