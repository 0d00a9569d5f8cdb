// Package claude Anthropic Messages API 后端。
package claude

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
)

const defaultModel = anthropic.ModelClaudeSonnet4_20250514

// Client 包装 Anthropic SDK
type Client struct {
	cfg   llm.Config
	inner anthropic.Client
	model anthropic.Model
}

var _ llm.Backend = (*Client)(nil)

// NewClient 创建客户端；SDK 自带的重试被关闭，每次 Chat 只发一次请求
func NewClient(cfg llm.Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.HTTPTimeout()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	return &Client{
		cfg:   cfg,
		inner: anthropic.NewClient(opts...),
		model: model,
	}
}

func (c *Client) Name() string { return c.cfg.Provider }

// Model 返回实际使用的模型
func (c *Client) Model() anthropic.Model { return c.model }

// Chat 调用 Messages.New；分类白名单无法映射到域名过滤，allowList 被忽略
func (c *Client) Chat(ctx context.Context, msgs []*schema.Message, allowList []string) (string, error) {
	if err := llm.CheckMessages(c.Name(), msgs); err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(c.cfg.MaxTokens),
		Temperature: anthropic.Float(c.cfg.Temperature),
	}
	for _, m := range msgs {
		switch m.Role {
		case schema.System:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case schema.Assistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &llm.BackendError{Provider: c.Name(), Status: apiErr.StatusCode, Message: err.Error()}
		}
		return "", llm.NewBackendError(c.Name(), 0, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(variant.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &llm.BackendError{Provider: c.Name(), Message: "response has no text block"}
	}
	return sb.String(), nil
}
