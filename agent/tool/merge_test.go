package tool

import (
	"reflect"
	"testing"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
)

func TestAdjustPlanEmptyInputChangesNothing(t *testing.T) {
	t.Parallel()

	st := contractx.NewDispatchState()
	st.WorkoutPlanParams["coach"] = "female"

	for _, args := range []map[string]any{
		nil,
		{},
		{"coach": "", "equipment": "   ", "workout_type": nil},
	} {
		change := AdjustPlan(st, args)
		if !change.Empty() {
			t.Fatalf("args %v: expected no change, got %v", args, change.Modified)
		}
		if len(change.Payload) != 0 {
			t.Fatalf("args %v: expected empty payload, got %v", args, change.Payload)
		}
	}
	if !reflect.DeepEqual(st.WorkoutPlanParams, map[string]string{"coach": "female"}) {
		t.Fatalf("accumulator changed: %v", st.WorkoutPlanParams)
	}
}

func TestAdjustPlanWritesExactlyTheProvidedSubset(t *testing.T) {
	t.Parallel()

	st := contractx.NewDispatchState()
	st.WorkoutPlanParams["coach"] = "female"
	st.WorkoutPlanParams["workout_type"] = "standing_exercises"

	change := AdjustPlan(st, map[string]any{
		"workout_duration": "10-15",
		"equipment":        "dumbbell",
		"coach":            "",
		"unrelated":        "ignored",
	})

	if want := []string{"workout_duration", "equipment"}; !reflect.DeepEqual(change.Modified, want) {
		t.Fatalf("Modified = %v, want %v", change.Modified, want)
	}
	wantPayload := map[string]string{"workout_duration": "10-15", "equipment": "dumbbell"}
	if !reflect.DeepEqual(change.Payload, wantPayload) {
		t.Fatalf("Payload = %v, want %v", change.Payload, wantPayload)
	}
	wantState := map[string]string{
		"coach":            "female",
		"workout_type":     "standing_exercises",
		"workout_duration": "10-15",
		"equipment":        "dumbbell",
	}
	if !reflect.DeepEqual(st.WorkoutPlanParams, wantState) {
		t.Fatalf("state = %v, want %v", st.WorkoutPlanParams, wantState)
	}
	if len(st.BasicInfoParams) != 0 {
		t.Fatalf("basic info touched: %v", st.BasicInfoParams)
	}
}

func TestUpdateBasicInformationCoercesScalars(t *testing.T) {
	t.Parallel()

	st := &contractx.DispatchState{}
	change := UpdateBasicInformation(st, map[string]any{
		"age":      float64(31),
		"height":   "172",
		"nickname": map[string]any{"nested": true},
	})

	if want := []string{"age", "height"}; !reflect.DeepEqual(change.Modified, want) {
		t.Fatalf("Modified = %v, want %v", change.Modified, want)
	}
	if st.BasicInfoParams["age"] != "31" || st.BasicInfoParams["height"] != "172" {
		t.Fatalf("unexpected state: %v", st.BasicInfoParams)
	}
	if _, ok := st.BasicInfoParams["nickname"]; ok {
		t.Fatal("non-scalar nickname must be ignored")
	}
}
