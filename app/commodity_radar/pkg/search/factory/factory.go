package factory

import (
	"fmt"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/config"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/search"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/searxng"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/tavily"
)

// NewSearcher 根据配置创建搜索实例；未配置搜索服务时返回 nil, nil
func NewSearcher(cfg config.SearchConfig) (search.Searcher, error) {
	provider := cfg.Provider
	if provider == "" {
		// 有 tavily key 时默认使用 tavily
		if cfg.Tavily.APIKey == "" {
			return nil, nil
		}
		provider = "tavily"
	}

	switch provider {
	case "tavily":
		if cfg.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(cfg.Tavily.APIKey), nil

	case "searxng":
		if cfg.SearXNG.BaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(cfg.SearXNG.BaseURL, cfg.SearXNG.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}
}
