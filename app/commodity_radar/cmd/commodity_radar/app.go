package main

import (
	"context"
	"fmt"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/internal/service"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/config"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/content"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/engine"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm/factory"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/prompt"
	searchfactory "github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/search/factory"
)

// components 一次命令执行所需的全部组件
type components struct {
	cfg     *config.Config
	loader  *prompt.Loader
	service *service.AnalysisService
}

// loadConfig 加载配置并初始化日志；stdio 为 true 时日志只写 stderr
func loadConfig(stdio bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if err := logger.InitLogger(level, cfg.Log.File, stdio); err != nil {
		return nil, fmt.Errorf("无法初始化日志: %w", err)
	}
	return cfg, nil
}

// newComponents 组装后端、模板、引擎和材料准备
func newComponents(ctx context.Context, stdio bool) (*components, error) {
	cfg, err := loadConfig(stdio)
	if err != nil {
		return nil, err
	}

	llmCfg, err := cfg.Provider(providerID)
	if err != nil {
		return nil, err
	}
	backend, err := factory.NewBackend(ctx, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	backend = llm.NewLimited(backend, cfg.Concurrency.RPM, cfg.Concurrency.QPS)
	logger.Log.Infof("使用 LLM 提供商: %s (%s)", llmCfg.Provider, llmCfg.Model)

	loader, err := prompt.NewLoader(cfg.Prompts.Dir)
	if err != nil {
		return nil, fmt.Errorf("提示词加载失败: %w", err)
	}
	if cfg.Prompts.Watch {
		err := loader.Watch(ctx, func(err error) {
			if err != nil {
				logger.Log.Errorf("提示词重新加载失败: %v", err)
				return
			}
			logger.Log.Infof("提示词已重新加载: %s", loader.Dir())
		})
		if err != nil {
			logger.Log.Warnf("提示词目录监听失败: %v", err)
		}
	}

	searcher, err := searchfactory.NewSearcher(cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}
	var gopts []content.Option
	if cfg.Search.MaxResults > 0 {
		gopts = append(gopts, content.WithMaxResults(cfg.Search.MaxResults))
	}
	if searcher != nil {
		logger.Log.Infof("使用搜索服务: %s", searcher.Name())
	}

	eng := engine.NewEngine(backend, loader, engine.WithMaxParallel(cfg.Concurrency.MaxParallel))
	return &components{
		cfg:     cfg,
		loader:  loader,
		service: service.NewAnalysisService(eng, content.NewGatherer(searcher, gopts...)),
	}, nil
}
