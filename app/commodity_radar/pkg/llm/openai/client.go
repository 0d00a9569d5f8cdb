// Package openai 基于 eino-ext 的 OpenAI 兼容后端（deepseek、openai、qwen 等）。
package openai

import (
	"context"
	"fmt"
	"strings"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
)

// Client OpenAI 兼容协议客户端
type Client struct {
	name      string
	chatModel model.BaseChatModel
	allowList func(allowList []string) map[string]any
}

var _ llm.Backend = (*Client)(nil)

// Option 客户端选项
type Option func(*Client)

// WithAllowList 将非空 allowList 转成请求体的附加字段，用于支持受限检索的兼容接口
func WithAllowList(fn func(allowList []string) map[string]any) Option {
	return func(c *Client) { c.allowList = fn }
}

// NewClient 根据配置初始化 eino ChatModel
func NewClient(ctx context.Context, cfg llm.Config, opts ...Option) (*Client, error) {
	temperature := float32(cfg.Temperature)
	maxTokens := cfg.MaxTokens

	chatModel, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Timeout:     cfg.HTTPTimeout(),
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return NewWithModel(cfg.Provider, chatModel, opts...), nil
}

// NewWithModel 使用已有的 ChatModel 构造客户端
func NewWithModel(name string, cm model.BaseChatModel, opts ...Option) *Client {
	c := &Client{name: name, chatModel: cm}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

// Chat 调用 Generate；未配置 WithAllowList 时 allowList 被忽略
func (c *Client) Chat(ctx context.Context, msgs []*schema.Message, allowList []string) (string, error) {
	if err := llm.CheckMessages(c.name, msgs); err != nil {
		return "", err
	}

	var opts []model.Option
	if len(allowList) > 0 && c.allowList != nil {
		opts = append(opts, einoopenai.WithExtraFields(c.allowList(allowList)))
	}

	resp, err := c.chatModel.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", llm.NewBackendError(c.name, statusOf(err), err)
	}
	if resp == nil || resp.Content == "" {
		return "", &llm.BackendError{Provider: c.name, Message: "empty completion"}
	}
	return resp.Content, nil
}

// statusOf 从错误文本中尽量提取 HTTP 状态码
func statusOf(err error) int {
	msg := err.Error()
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(msg, fmt.Sprintf("status code: %d", code)) {
			return code
		}
	}
	return 0
}
