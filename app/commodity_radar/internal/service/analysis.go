package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/agent"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/content"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/engine"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/model"
)

// AnalysisService 对外提供分析能力：准备材料后交给引擎
type AnalysisService struct {
	eng      *engine.Engine
	gatherer *content.Gatherer
}

// NewAnalysisService gatherer 为 nil 时不检索，直接使用兜底文本
func NewAnalysisService(eng *engine.Engine, gatherer *content.Gatherer) *AnalysisService {
	if gatherer == nil {
		gatherer = content.NewGatherer(nil)
	}
	return &AnalysisService{eng: eng, gatherer: gatherer}
}

// AnalyzeRequest 综合分析请求
type AnalyzeRequest struct {
	Subject string   `json:"subject"`
	Content string   `json:"content"`
	URL     string   `json:"url"`
	Kinds   []string `json:"kinds"`
}

// AnalyzeReply 综合分析结果
type AnalyzeReply struct {
	*model.PipelineResult
	Failed []model.Stage `json:"failed"`
	Report string        `json:"report"`
}

// SingleRequest 单项分析请求
type SingleRequest struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// SingleReply 单项分析结果
type SingleReply struct {
	Kind    model.Kind `json:"kind"`
	Subject string     `json:"subject"`
	Result  string     `json:"result"`
}

// KindInfo 分析类型说明
type KindInfo struct {
	Kind  model.Kind `json:"kind"`
	Label string     `json:"label"`
	Stage int        `json:"stage"`
}

// Analyze 执行完整流水线
func (s *AnalysisService) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeReply, error) {
	if err := agent.ValidateSubject(req.Subject); err != nil {
		return nil, err
	}
	kinds, err := ParseKinds(req.Kinds)
	if err != nil {
		return nil, err
	}
	text, err := s.resolveContent(ctx, req.Subject, "", req.Content, req.URL)
	if err != nil {
		return nil, err
	}

	res, err := s.eng.Run(ctx, engine.RunOptions{Subject: req.Subject, Content: text, Kinds: kinds})
	if err != nil {
		return nil, err
	}
	return &AnalyzeReply{PipelineResult: res, Failed: res.FailedStages(), Report: res.Sections()}, nil
}

// Single 执行单项分析，错误原样返回
func (s *AnalysisService) Single(ctx context.Context, req *SingleRequest) (*SingleReply, error) {
	if strings.TrimSpace(req.Kind) == "" {
		return nil, &agent.ValidationError{Field: "kind", Message: "分析类型不能为空"}
	}
	kind, err := model.ParseKind(req.Kind)
	if err != nil {
		return nil, &agent.ValidationError{Field: "kind", Message: err.Error()}
	}
	if err := agent.ValidateSubject(req.Subject); err != nil {
		return nil, err
	}
	text, err := s.resolveContent(ctx, req.Subject, kind, req.Content, req.URL)
	if err != nil {
		return nil, err
	}

	out, err := s.eng.RunOne(ctx, kind, text, req.Subject)
	if err != nil {
		return nil, err
	}
	return &SingleReply{Kind: kind, Subject: req.Subject, Result: out}, nil
}

// Kinds 支持的分析类型
func (s *AnalysisService) Kinds() []KindInfo {
	kinds := s.eng.SupportedKinds()
	out := make([]KindInfo, 0, len(kinds))
	for _, k := range kinds {
		stage := 1
		if !k.IsStageOne() {
			stage = 2
		}
		out = append(out, KindInfo{Kind: k, Label: agent.Definitions[k].Label, Stage: stage})
	}
	return out
}

// Backend 当前使用的后端
func (s *AnalysisService) Backend() string { return s.eng.Backend() }

// ParseKinds 解析分析类型列表，空列表表示全部
func ParseKinds(names []string) ([]model.Kind, error) {
	kinds := make([]model.Kind, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		k, err := model.ParseKind(n)
		if err != nil {
			return nil, &agent.ValidationError{Field: "kinds", Message: err.Error()}
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// resolveContent 优先使用调用方提供的内容，其次抓取 URL，最后检索资讯
func (s *AnalysisService) resolveContent(ctx context.Context, subject string, kind model.Kind, text, url string) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if url != "" {
		fetched, err := s.gatherer.FetchURL(ctx, url)
		if err != nil {
			logger.Log.Warnf("抓取 %s 失败: %v", url, err)
			if errors.Is(err, content.ErrForbiddenURL) {
				return "", &agent.ValidationError{Field: "url", Message: "不允许访问该地址，仅支持公网 http/https"}
			}
			return "", &agent.ValidationError{Field: "url", Message: "无法读取该地址"}
		}
		if strings.TrimSpace(fetched) != "" {
			return fetched, nil
		}
	}
	return s.gatherer.Gather(ctx, subject, kind), nil
}
