package ark

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
)

func testConfig() Config {
	return Config{
		BaseURL:     "https://ark.cn-beijing.volces.com/api/v3/",
		Region:      "cn-beijing",
		APIKey:      "ak-test",
		Model:       "ep-20250101-coach",
		Temperature: 0.3,
		Timeout:     5 * time.Second,
	}
}

func planTool() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "adjust_workout_plan_tool",
		Desc: "Adjust the workout plan",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"coach": {Type: schema.String, Desc: "male or female"},
		}),
	}
}

func TestEnabled(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want bool
	}{
		{name: "api key", cfg: Config{Model: "ep-1", APIKey: "k"}, want: true},
		{name: "aksk", cfg: Config{Model: "ep-1", AccessKey: "ak", SecretKey: "sk"}, want: true},
		{name: "half aksk", cfg: Config{Model: "ep-1", AccessKey: "ak"}},
		{name: "no model", cfg: Config{APIKey: "k"}},
	}
	for _, tc := range cases {
		if got := tc.cfg.Enabled(); got != tc.want {
			t.Fatalf("%s: Enabled() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	if _, err := (Config{Model: "ep-1"}).New(context.Background()); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestNewBindsTools(t *testing.T) {
	t.Parallel()

	m, err := testConfig().New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	bound, err := m.WithTools([]*schema.ToolInfo{planTool()})
	if err != nil {
		t.Fatalf("WithTools() error = %v", err)
	}
	if bound == m {
		t.Fatal("WithTools must return a new model")
	}
	tm, ok := bound.(*toolCallingModel)
	if !ok {
		t.Fatalf("WithTools() returned %T", bound)
	}
	if tm.ChatModel == m.(*toolCallingModel).ChatModel {
		t.Fatal("bound model must not share the underlying ark model")
	}
	if tm.conf.Model != "ep-20250101-coach" || tm.conf.BaseURL != "https://ark.cn-beijing.volces.com/api/v3" {
		t.Fatalf("unexpected config: %#v", tm.conf)
	}
	if tm.conf.Timeout == nil || *tm.conf.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v", tm.conf.Timeout)
	}
}

func TestWithToolsRejectsInvalidTools(t *testing.T) {
	t.Parallel()

	m, err := testConfig().New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := m.WithTools(nil); err == nil {
		t.Fatal("expected error for empty tool list")
	}
	if _, err := m.WithTools([]*schema.ToolInfo{nil}); err == nil {
		t.Fatal("expected error from BindTools for a nil tool")
	}
}
