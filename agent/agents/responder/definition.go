package responder

import (
	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	promptx "github.com/tanpawarit/coach-agent/agent/prompt"
	toolx "github.com/tanpawarit/coach-agent/agent/tool"
)

// Definition is the static description of one responder.
type Definition struct {
	Name        contractx.AgentName
	Description string
	Tools       []string
	Handoffs    []contractx.AgentName
	// Fallback replaces an empty final reply.
	Fallback string
}

type Category string

const (
	CategoryHealth      Category = "health"
	CategoryBilling     Category = "billing"
	CategoryMalfunction Category = "app_malfunction"
	CategoryProfileEdit Category = "profile_edit"
)

// CategoryTargets maps each routing category to the specialist that owns it.
var CategoryTargets = map[Category]contractx.AgentName{
	CategoryHealth:      contractx.AgentHealthAdvice,
	CategoryBilling:     contractx.AgentSubscription,
	CategoryMalfunction: contractx.AgentTroubleshooting,
	CategoryProfileEdit: contractx.AgentProfile,
}

// Definitions returns the router first, then the specialists.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        contractx.AgentRouter,
			Description: "Reads the user's request, classifies it and transfers it to the matching specialist. Asks for clarification when unsure.",
			Handoffs: []contractx.AgentName{
				CategoryTargets[CategoryHealth],
				CategoryTargets[CategoryBilling],
				CategoryTargets[CategoryMalfunction],
				CategoryTargets[CategoryProfileEdit],
			},
			Fallback: promptx.ReplyClarification,
		},
		{
			Name:        contractx.AgentHealthAdvice,
			Description: "Answers health, recovery and exercise questions and can adjust the workout plan.",
			Tools:       []string{toolx.ToolAdjustWorkoutPlan},
			Fallback:    promptx.ReplyContactSupport,
		},
		{
			Name:        contractx.AgentSubscription,
			Description: "Answers subscription, payment and refund questions with the standard reply templates.",
			Fallback:    promptx.ReplyContactSupport,
		},
		{
			Name:        contractx.AgentTroubleshooting,
			Description: "Handles crashes and features that do not work.",
			Fallback:    promptx.ReplyTroubleshooting,
		},
		{
			Name:        contractx.AgentProfile,
			Description: "Changes the workout plan or the user's basic information.",
			Tools:       []string{toolx.ToolAdjustWorkoutPlan, toolx.ToolUpdateBasicInformation},
			Fallback:    promptx.ReplyContactSupport,
		},
	}
}
