package tool

import (
	"github.com/cloudwego/eino/schema"
)

const (
	ToolAdjustWorkoutPlan      = "adjust_workout_plan_tool"
	ToolUpdateBasicInformation = "update_basic_information_tool"
)

type paramSpec struct {
	name string
	desc string
}

// Order matters: it is the order parameters are merged and reported in.
var workoutPlanParams = []paramSpec{
	{name: "fitness_goals", desc: "Fitness goal. Allowed: lose_weight, build_muscle"},
	{name: "workout_type", desc: "Workout type. Allowed: standing_exercises, sitting_exercises"},
	{name: "training_position", desc: "Training posture. Allowed: standing, sitting, lying"},
	{name: "workout_duration", desc: "Workout duration in minutes. Allowed: 5-10, 10-15, 15-20, 20-30"},
	{name: "preferred_position", desc: "Preferred body part. Allowed: shoulder, back, wrist, hip, knee, ankle"},
	{name: "target_position", desc: "Target body part. Allowed: shoulder, back, wrist, hip, knee, ankle"},
	{name: "avoid_position", desc: "Body part to avoid. Allowed: achilles_tendon, knee, waist"},
	{name: "equipment", desc: "Equipment. Allowed: dumbbell, elastic_bands, no_instruments"},
	{name: "coach", desc: "Coach gender. Allowed: male, female, both"},
	{name: "chronic_conditions", desc: "Chronic condition. Allowed: asthma, hypertension"},
	{name: "physical_limitation", desc: "Injured body part. Allowed: achilles_tendon, knee"},
	{name: "cancel_workout_type", desc: "Workout type the user no longer wants. Allowed: standing_exercises, sitting_exercises"},
}

var basicInfoParams = []paramSpec{
	{name: "nickname", desc: "User nickname"},
	{name: "age", desc: "Age in years"},
	{name: "height", desc: "Height in cm"},
	{name: "weight", desc: "Weight in kg"},
}

var toolDescriptions = map[string]string{
	ToolAdjustWorkoutPlan: "Change the user's workout plan. Only pass the fields the user explicitly asked to change; " +
		"several fields may change in one call. Call at most once per reply.",
	ToolUpdateBasicInformation: "Change the user's basic information (nickname, age, height, weight). " +
		"Only pass the fields the user explicitly asked to change. Call at most once per reply.",
}

// WorkoutPlanParamNames returns the tracked plan parameter names in merge order.
func WorkoutPlanParamNames() []string {
	return paramNames(workoutPlanParams)
}

func BasicInfoParamNames() []string {
	return paramNames(basicInfoParams)
}

// Known reports whether name is a tool of this package.
func Known(name string) bool {
	_, ok := toolDescriptions[name]
	return ok
}

// ToolInfos returns the model-facing schema of the named tools. Unknown names
// are skipped.
func ToolInfos(names ...string) []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(names))
	for _, name := range names {
		var params []paramSpec
		switch name {
		case ToolAdjustWorkoutPlan:
			params = workoutPlanParams
		case ToolUpdateBasicInformation:
			params = basicInfoParams
		default:
			continue
		}
		out = append(out, &schema.ToolInfo{
			Name:        name,
			Desc:        toolDescriptions[name],
			ParamsOneOf: schema.NewParamsOneOfByParams(paramInfos(params)),
		})
	}
	return out
}

func paramInfos(params []paramSpec) map[string]*schema.ParameterInfo {
	out := make(map[string]*schema.ParameterInfo, len(params))
	for _, p := range params {
		out[p.name] = &schema.ParameterInfo{
			Type: schema.String,
			Desc: p.desc,
		}
	}
	return out
}

func paramNames(params []paramSpec) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, p.name)
	}
	return out
}
