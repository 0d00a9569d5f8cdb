package factory

import (
	"context"
	"fmt"
	"strings"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm/claude"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm/gemini"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm/openai"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm/zhipu"
)

// 已知提供商到协议的映射
var variants = map[string]string{
	"openai":    "openai",
	"deepseek":  "openai",
	"qwen":      "openai",
	"moonshot":  "openai",
	"zhipu":     "zhipu",
	"gemini":    "gemini",
	"gemini3":   "gemini",
	"claude":    "claude",
	"anthropic": "claude",
}

// Variant 返回提供商使用的协议
func Variant(cfg llm.Config) (string, error) {
	if cfg.Variant != "" {
		v := strings.ToLower(cfg.Variant)
		for _, known := range variants {
			if known == v {
				return v, nil
			}
		}
		return "", fmt.Errorf("unknown llm variant: %s", cfg.Variant)
	}
	v, ok := variants[strings.ToLower(cfg.Provider)]
	if !ok {
		return "", fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	return v, nil
}

// NewBackend 根据配置创建后端实例
func NewBackend(ctx context.Context, cfg llm.Config) (llm.Backend, error) {
	variant, err := Variant(cfg)
	if err != nil {
		return nil, err
	}

	switch variant {
	case "openai":
		return openai.NewClient(ctx, cfg)
	case "zhipu":
		return zhipu.NewClient(ctx, cfg)
	case "gemini":
		return gemini.NewClient(ctx, cfg)
	case "claude":
		return claude.NewClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm variant: %s", variant)
	}
}
