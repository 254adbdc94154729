package tool

import (
	"strings"

	"github.com/spf13/cast"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

// Change is the result of one merge: the names written, in merge order, and
// the values that were written.
type Change struct {
	Modified []string
	Payload  map[string]string
}

func (c Change) Empty() bool {
	return len(c.Modified) == 0
}

// AdjustPlan writes every non-empty tracked plan argument into the workout plan
// accumulator. Empty or missing arguments leave the prior value untouched.
func AdjustPlan(st *contractx.DispatchState, args map[string]any) Change {
	if st.WorkoutPlanParams == nil {
		st.WorkoutPlanParams = make(map[string]string, len(workoutPlanParams))
	}
	return merge(st.WorkoutPlanParams, workoutPlanParams, args)
}

// UpdateBasicInformation is AdjustPlan for nickname, age, height and weight.
func UpdateBasicInformation(st *contractx.DispatchState, args map[string]any) Change {
	if st.BasicInfoParams == nil {
		st.BasicInfoParams = make(map[string]string, len(basicInfoParams))
	}
	return merge(st.BasicInfoParams, basicInfoParams, args)
}

func merge(dst map[string]string, params []paramSpec, args map[string]any) Change {
	change := Change{
		Modified: []string{},
		Payload:  map[string]string{},
	}
	for _, p := range params {
		value := argString(args[p.name])
		if value == "" {
			continue
		}
		dst[p.name] = value
		change.Payload[p.name] = value
		change.Modified = append(change.Modified, p.name)
	}
	return change
}

// argString turns a decoded JSON value into a parameter value. Nil, blank and
// non-scalar values are empty.
func argString(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
