package ark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	arkmodel "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Config describes a Volcengine Ark chat model. Either APIKey or the
// AccessKey/SecretKey pair authenticates the calls.
type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string        `envconfig:"REGION" split_words:"true" default:"cn-beijing"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true"`
	AccessKey   string        `envconfig:"ACCESS_KEY" split_words:"true"`
	SecretKey   string        `envconfig:"SECRET_KEY" split_words:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true"`
	MaxTokens   *int          `envconfig:"MAX_TOKENS" split_words:"true"`
	Temperature float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	TopP        *float32      `envconfig:"TOP_P" split_words:"true"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Enabled() bool {
	hasKey := strings.TrimSpace(c.APIKey) != ""
	hasAKSK := strings.TrimSpace(c.AccessKey) != "" && strings.TrimSpace(c.SecretKey) != ""
	return strings.TrimSpace(c.Model) != "" && (hasKey || hasAKSK)
}

func (c Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark: model and api key or access key/secret key are required")
	}

	temperature := c.Temperature
	conf := &arkmodel.ChatModelConfig{
		BaseURL:     strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"),
		Region:      strings.TrimSpace(c.Region),
		APIKey:      strings.TrimSpace(c.APIKey),
		AccessKey:   strings.TrimSpace(c.AccessKey),
		SecretKey:   strings.TrimSpace(c.SecretKey),
		Model:       strings.TrimSpace(c.Model),
		MaxTokens:   c.MaxTokens,
		Temperature: &temperature,
		TopP:        c.TopP,
	}
	if c.Timeout > 0 {
		timeout := c.Timeout
		conf.Timeout = &timeout
	}

	return newToolCallingModel(ctx, conf, nil)
}

// toolCallingModel adds WithTools on top of the ark ChatModel, which only
// offers the in-place BindTools. Every WithTools call builds a new model so
// the receiver's tool set is never changed.
type toolCallingModel struct {
	*arkmodel.ChatModel
	conf arkmodel.ChatModelConfig
}

var _ model.ToolCallingChatModel = (*toolCallingModel)(nil)

func newToolCallingModel(ctx context.Context, conf *arkmodel.ChatModelConfig, tools []*schema.ToolInfo) (*toolCallingModel, error) {
	own := *conf
	m, err := arkmodel.NewChatModel(ctx, &own)
	if err != nil {
		return nil, fmt.Errorf("ark: create chat model: %w", err)
	}
	if len(tools) > 0 {
		if err := m.BindTools(tools); err != nil {
			return nil, fmt.Errorf("ark: bind tools: %w", err)
		}
	}
	return &toolCallingModel{ChatModel: m, conf: *conf}, nil
}

func (m *toolCallingModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if len(tools) == 0 {
		return nil, errors.New("ark: no tools to bind")
	}
	conf := m.conf
	return newToolCallingModel(context.Background(), &conf, tools)
}
