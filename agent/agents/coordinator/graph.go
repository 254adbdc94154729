package coordinator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/coach-agent/agent/nodes"
)

const (
	nodeValidateRequest    = "validate_request"
	nodeLoadHistory        = "load_history"
	nodeRoute              = "route"
	nodeDispatchSpecialist = "dispatch_specialist"
	nodeFinalizeReply      = "finalize_reply"
)

func (c *Coordinator) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeValidateRequest,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.Turn, error) {
			return nodex.ValidateRequest(in, c.defaultLanguage)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidateRequest, err)
	}

	if err := graph.AddLambdaNode(nodeLoadHistory,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.Turn) (*nodex.Turn, error) {
			return nodex.LoadHistory(ctx, in, c.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeLoadHistory, err)
	}

	if err := graph.AddLambdaNode(nodeRoute,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.Turn) (*nodex.Turn, error) {
			return nodex.Route(ctx, in, c.responders, c.tools, c.limits)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeRoute, err)
	}

	if err := graph.AddLambdaNode(nodeDispatchSpecialist,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.Turn) (*nodex.Turn, error) {
			return nodex.DispatchSpecialist(ctx, in, c.responders, c.tools, c.limits)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeDispatchSpecialist, err)
	}

	if err := graph.AddLambdaNode(nodeFinalizeReply,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.Turn) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinalizeReply, err)
	}

	edges := [][2]string{
		{compose.START, nodeValidateRequest},
		{nodeValidateRequest, nodeLoadHistory},
		{nodeLoadHistory, nodeRoute},
		{nodeDispatchSpecialist, nodeFinalizeReply},
		{nodeFinalizeReply, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	afterRoute := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.Turn) (string, error) {
			if nodex.HasPendingHandoff(in) {
				return nodeDispatchSpecialist, nil
			}
			return nodeFinalizeReply, nil
		},
		map[string]bool{nodeDispatchSpecialist: true, nodeFinalizeReply: true},
	)
	if err := graph.AddBranch(nodeRoute, afterRoute); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeRoute, err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("coordinator.turn"))
	if err != nil {
		return nil, fmt.Errorf("compile coordinator graph: %w", err)
	}
	return runner, nil
}
