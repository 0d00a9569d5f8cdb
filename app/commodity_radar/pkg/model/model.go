package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind 分析类型
type Kind string

const (
	KindBasis    Kind = "basis"    // 基差分析
	KindMacro    Kind = "macro"    // 宏观经济分析
	KindIndustry Kind = "industry" // 产业基本面分析
	KindPrice    Kind = "price"    // 价格技术分析
	KindFactory  Kind = "factory"  // 工厂库存分析
	KindSocial   Kind = "social"   // 社会库存分析
	KindStrategy Kind = "strategy" // 策略设计（第二阶段）
)

// legacyStrategy 旧版命令面使用的策略设计名称
const legacyStrategy = "strategy_design"

var stageOne = []Kind{KindBasis, KindMacro, KindIndustry, KindPrice, KindFactory, KindSocial}

// StageOneKinds 返回第一阶段的六种分析类型，顺序固定
func StageOneKinds() []Kind {
	return append([]Kind(nil), stageOne...)
}

// AllKinds 返回全部七种分析类型
func AllKinds() []Kind {
	return append(StageOneKinds(), KindStrategy)
}

// ParseKind 解析分析类型，兼容 strategy_design
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == legacyStrategy {
		return KindStrategy, nil
	}
	for _, k := range AllKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported analysis kind: %q", s)
}

// IsStageOne 是否属于第一阶段
func (k Kind) IsStageOne() bool {
	for _, s := range stageOne {
		if s == k {
			return true
		}
	}
	return false
}

// Stage 流水线中的阶段名：某个 Kind 或 synthesis
type Stage string

const StageSynthesis Stage = "synthesis"

// StageOf 返回分析类型对应的阶段名
func StageOf(k Kind) Stage { return Stage(k) }

// Result 单个任务的结果
//
// 失败时 Text 为带错误描述的占位文本，Err 保留原始错误。
type Result struct {
	Text string `json:"text"`
	Err  error  `json:"-"`
}

// Failed 是否为失败占位
func (r Result) Failed() bool { return r.Err != nil }

// MarshalJSON 输出 text/failed/error，原始错误不可序列化
func (r Result) MarshalJSON() ([]byte, error) {
	v := struct {
		Text   string `json:"text"`
		Failed bool   `json:"failed"`
		Error  string `json:"error,omitempty"`
	}{Text: r.Text, Failed: r.Failed()}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return json.Marshal(v)
}

// Success 构造成功结果
func Success(text string) Result { return Result{Text: text} }

// Failure 构造失败占位结果
func Failure(prefix string, err error) Result {
	return Result{Text: fmt.Sprintf("%s: %v", prefix, err), Err: err}
}

// PipelineResult 一次完整流水线调用的结果，按阶段有序
type PipelineResult struct {
	RunID      string    `json:"run_id"`
	Subject    string    `json:"subject"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Stages *orderedmap.OrderedMap[Stage, Result] `json:"stages"`
}

// NewPipelineResult 创建空结果
func NewPipelineResult(runID, subject string) *PipelineResult {
	return &PipelineResult{
		RunID:     runID,
		Subject:   subject,
		StartedAt: time.Now(),
		Stages:    orderedmap.New[Stage, Result](),
	}
}

// Set 记录阶段结果
func (p *PipelineResult) Set(stage Stage, r Result) {
	p.Stages.Set(stage, r)
}

// Get 获取阶段结果
func (p *PipelineResult) Get(stage Stage) (Result, bool) {
	return p.Stages.Get(stage)
}

// Len 阶段数量
func (p *PipelineResult) Len() int { return p.Stages.Len() }

// Keys 按顺序返回所有阶段名
func (p *PipelineResult) Keys() []Stage {
	keys := make([]Stage, 0, p.Stages.Len())
	for pair := p.Stages.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// FailedStages 返回失败的阶段
func (p *PipelineResult) FailedStages() []Stage {
	var failed []Stage
	for pair := p.Stages.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Failed() {
			failed = append(failed, pair.Key)
		}
	}
	return failed
}

// Sections 将结果拼接为分节文本
func (p *PipelineResult) Sections() string {
	parts := make([]string, 0, p.Stages.Len())
	for pair := p.Stages.Oldest(); pair != nil; pair = pair.Next() {
		parts = append(parts, Section(string(pair.Key), pair.Value.Text))
	}
	return strings.Join(parts, "\n\n")
}

// Section 单节文本：===== KEY ANALYSIS =====
func Section(name, body string) string {
	return fmt.Sprintf("%s\n%s", SectionHeader(name), body)
}

// SectionHeader 节标题
func SectionHeader(name string) string {
	return fmt.Sprintf("===== %s ANALYSIS =====", strings.ToUpper(name))
}
