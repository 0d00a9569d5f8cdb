// Package zhipu 智谱 chat/completions 后端，走 OpenAI 兼容协议，allowList 转成带白名单的 web_search 工具。
package zhipu

import (
	"context"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm/openai"
)

const defaultBaseURL = "https://open.bigmodel.cn/api/paas/v4"

// NewClient 创建智谱客户端
func NewClient(ctx context.Context, cfg llm.Config) (*openai.Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return openai.NewClient(ctx, cfg, openai.WithAllowList(WebSearchTools))
}

// WebSearchTools 构造 web_search 工具，search_whitelist 限定可检索的信息类别
func WebSearchTools(allowList []string) map[string]any {
	return map[string]any{
		"tools": []map[string]any{{
			"type": "web_search",
			"web_search": map[string]any{
				"enable":           true,
				"search_whitelist": allowList,
			},
		}},
	}
}
