package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	arkx "github.com/tanpawarit/coach-agent/pkg/ark"
	openrouterx "github.com/tanpawarit/coach-agent/pkg/openrouter"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "openrouter ok", cfg: Config{Provider: "openrouter", APIKey: "k", Model: "m"}},
		{name: "openrouter missing key", cfg: Config{Provider: "openrouter", Model: "m"}, wantErr: true},
		{name: "missing model", cfg: Config{APIKey: "k"}, wantErr: true},
		{name: "ark with aksk", cfg: Config{Provider: "ark", ArkAccessKey: "ak", ArkSecretKey: "sk", Model: "ep-1"}},
		{name: "ark without credentials", cfg: Config{Provider: "ark", Model: "ep-1"}, wantErr: true},
		{name: "unknown provider", cfg: Config{Provider: "bedrock", APIKey: "k", Model: "m"}, wantErr: true},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: Validate() error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
		if err != nil && !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestOpenRouterForAppliesOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:             "k",
		Model:              "openai/gpt-4o-mini",
		Temperature:        0.5,
		MaxCompletionToken: 1000,
		RouterModel:        "openai/gpt-4o",
		RouterTemperature:  0,
		HealthTemperature:  -1,
		ProfileTemperature: 0.2,
	}

	router := cfg.OpenRouterFor(contractx.AgentRouter)
	if router.Model != "openai/gpt-4o" || router.Temperature != 0 {
		t.Fatalf("unexpected router config: %#v", router)
	}

	health := cfg.OpenRouterFor(contractx.AgentHealthAdvice)
	if health.Model != "openai/gpt-4o-mini" || health.Temperature != 0.5 {
		t.Fatalf("unexpected health config: %#v", health)
	}
	if health.MaxCompletionToken == nil || *health.MaxCompletionToken != 1000 {
		t.Fatalf("unexpected max tokens: %v", health.MaxCompletionToken)
	}

	profile := cfg.OpenRouterFor(contractx.AgentProfile)
	if profile.Temperature != 0.2 {
		t.Fatalf("unexpected profile temperature: %v", profile.Temperature)
	}
}

func TestBuilderForProvider(t *testing.T) {
	t.Parallel()

	or := Config{APIKey: "k", Model: "m", BaseURL: "https://openrouter.ai/api/v1"}
	if _, ok := or.BuilderFor(contractx.AgentRouter).(openrouterx.Config); !ok {
		t.Fatal("expected openrouter builder")
	}

	ark := Config{Provider: "ark", APIKey: "k", Model: "ep-1", BaseURL: "https://openrouter.ai/api/v1", SubscriptionModel: "ep-2"}
	b, ok := ark.BuilderFor(contractx.AgentSubscription).(arkx.Config)
	if !ok {
		t.Fatal("expected ark builder")
	}
	if b.Model != "ep-2" {
		t.Fatalf("model = %q, want ep-2", b.Model)
	}
	if b.BaseURL != "https://ark.cn-beijing.volces.com/api/v3" {
		t.Fatalf("base url = %q", b.BaseURL)
	}
}
