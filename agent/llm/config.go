package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	arkx "github.com/tanpawarit/coach-agent/pkg/ark"
	openrouterx "github.com/tanpawarit/coach-agent/pkg/openrouter"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderArk        = "ark"
)

// Builder creates one tool-capable chat model.
type Builder interface {
	New(ctx context.Context) (model.ToolCallingChatModel, error)
}

var (
	_ Builder = openrouterx.Config{}
	_ Builder = arkx.Config{}
)

type Config struct {
	Provider           string        `envconfig:"PROVIDER" split_words:"true" default:"openrouter"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ArkRegion    string `envconfig:"ARK_REGION" split_words:"true" default:"cn-beijing"`
	ArkAccessKey string `envconfig:"ARK_ACCESS_KEY" split_words:"true"`
	ArkSecretKey string `envconfig:"ARK_SECRET_KEY" split_words:"true"`

	RouterModel                string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	HealthModel                string  `envconfig:"HEALTH_MODEL" split_words:"true"`
	SubscriptionModel          string  `envconfig:"SUBSCRIPTION_MODEL" split_words:"true"`
	TroubleshootingModel       string  `envconfig:"TROUBLESHOOTING_MODEL" split_words:"true"`
	ProfileModel               string  `envconfig:"PROFILE_MODEL" split_words:"true"`
	RouterTemperature          float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
	HealthTemperature          float32 `envconfig:"HEALTH_TEMPERATURE" split_words:"true" default:"-1"`
	SubscriptionTemperature    float32 `envconfig:"SUBSCRIPTION_TEMPERATURE" split_words:"true" default:"-1"`
	TroubleshootingTemperature float32 `envconfig:"TROUBLESHOOTING_TEMPERATURE" split_words:"true" default:"-1"`
	ProfileTemperature         float32 `envconfig:"PROFILE_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	switch c.provider() {
	case ProviderOpenRouter:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
		}
	case ProviderArk:
		hasAKSK := strings.TrimSpace(c.ArkAccessKey) != "" && strings.TrimSpace(c.ArkSecretKey) != ""
		if strings.TrimSpace(c.APIKey) == "" && !hasAKSK {
			return fmt.Errorf("%w: ark api key or access key/secret key is required", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unsupported llm provider %q", contractx.ErrValidation, c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// BuilderFor returns the model builder of one responder, applying that
// responder's model and temperature overrides.
func (c Config) BuilderFor(agent contractx.AgentName) Builder {
	modelName, temp := c.overridesFor(agent)

	if c.provider() == ProviderArk {
		maxTokens := c.MaxCompletionToken
		baseURL := strings.TrimSpace(c.BaseURL)
		if baseURL == "" || strings.Contains(baseURL, "openrouter.ai") {
			baseURL = "https://ark.cn-beijing.volces.com/api/v3"
		}
		return arkx.Config{
			BaseURL:     baseURL,
			Region:      strings.TrimSpace(c.ArkRegion),
			APIKey:      strings.TrimSpace(c.APIKey),
			AccessKey:   strings.TrimSpace(c.ArkAccessKey),
			SecretKey:   strings.TrimSpace(c.ArkSecretKey),
			Model:       modelName,
			MaxTokens:   &maxTokens,
			Temperature: temp,
			Timeout:     c.Timeout,
		}
	}
	return c.OpenRouterFor(agent)
}

func (c Config) OpenRouterFor(agent contractx.AgentName) openrouterx.Config {
	modelName, temp := c.overridesFor(agent)
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// ChatModelFor builds the chat model of one responder.
func (c Config) ChatModelFor(ctx context.Context, agent contractx.AgentName) (model.ToolCallingChatModel, error) {
	m, err := c.BuilderFor(agent).New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: build model for %s: %v", contractx.ErrModelInvoke, agent, err)
	}
	return m, nil
}

func (c Config) provider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == "" {
		return ProviderOpenRouter
	}
	return p
}

func (c Config) overridesFor(agent contractx.AgentName) (string, float32) {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	var overrideModel string
	var overrideTemp float32 = -1
	switch agent {
	case contractx.AgentRouter:
		overrideModel, overrideTemp = c.RouterModel, c.RouterTemperature
	case contractx.AgentHealthAdvice:
		overrideModel, overrideTemp = c.HealthModel, c.HealthTemperature
	case contractx.AgentSubscription:
		overrideModel, overrideTemp = c.SubscriptionModel, c.SubscriptionTemperature
	case contractx.AgentTroubleshooting:
		overrideModel, overrideTemp = c.TroubleshootingModel, c.TroubleshootingTemperature
	case contractx.AgentProfile:
		overrideModel, overrideTemp = c.ProfileModel, c.ProfileTemperature
	}

	if v := strings.TrimSpace(overrideModel); v != "" {
		modelName = v
	}
	if overrideTemp >= 0 {
		temp = overrideTemp
	}
	return modelName, temp
}
