// Package gemini Gemini 后端，使用其 OpenAI 兼容接口。
package gemini

import (
	"context"
	"strings"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm/openai"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	compatPath     = "/v1beta/openai"
)

// NewClient 创建 Gemini 客户端；该接口无受限检索，allowList 被忽略
func NewClient(ctx context.Context, cfg llm.Config) (*openai.Client, error) {
	cfg.BaseURL = BaseURL(cfg.BaseURL)
	return openai.NewClient(ctx, cfg)
}

// BaseURL 补全兼容接口路径，已带该路径的地址原样使用
func BaseURL(base string) string {
	if base == "" {
		base = defaultBaseURL
	}
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, compatPath) {
		return base
	}
	return base + compatPath
}
