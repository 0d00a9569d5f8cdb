package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/gg/gson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/agent"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/model"
)

// 失败占位前缀
const (
	stageOneFailed  = "分析失败"
	synthesisFailed = "综合分析生成失败"
	strategyFailed  = "策略设计失败"
)

// 综合分析模板的七个槽位及未执行时的占位文本
type synthesisSlot struct {
	name        string
	placeholder string
}

var synthesisSlots = map[model.Kind]synthesisSlot{
	model.KindBasis:    {"basis_analysis", "未执行基差分析"},
	model.KindMacro:    {"macro_economic", "未执行宏观经济分析"},
	model.KindIndustry: {"industry_fundamentals", "未执行产业基本面分析"},
	model.KindPrice:    {"price_analysis", "未执行价格分析"},
	model.KindFactory:  {"factory_inventory", "未执行工厂库存分析"},
	model.KindSocial:   {"social_inventory", "未执行社会库存分析"},
	model.KindStrategy: {"strategy_design", "未执行策略设计"},
}

// Engine 编排三阶段流水线：并行分析 -> 综合分析 -> 策略设计
type Engine struct {
	backend     llm.Backend
	tasks       map[model.Kind]*agent.Task
	synthesis   *agent.Task
	maxParallel int
	newRunID    func() string
}

// Option 引擎选项
type Option func(*engineOptions)

type engineOptions struct {
	maxParallel int
	taskOpts    []agent.Option
	newRunID    func() string
}

// WithMaxParallel 第一阶段最大并发数，<= 0 表示不限制
func WithMaxParallel(n int) Option {
	return func(o *engineOptions) { o.maxParallel = n }
}

// WithTaskOptions 透传给每个分析任务的选项
func WithTaskOptions(opts ...agent.Option) Option {
	return func(o *engineOptions) { o.taskOpts = append(o.taskOpts, opts...) }
}

// WithRunID 替换运行 ID 生成方式
func WithRunID(fn func() string) Option {
	return func(o *engineOptions) { o.newRunID = fn }
}

// NewEngine 创建引擎实例；后端和模板服务在实例生命周期内只读共享
func NewEngine(backend llm.Backend, renderer agent.Renderer, opts ...Option) *Engine {
	o := engineOptions{newRunID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}

	tasks := make(map[model.Kind]*agent.Task, len(agent.Definitions))
	for kind, def := range agent.Definitions {
		tasks[kind] = agent.NewTask(def, backend, renderer, o.taskOpts...)
	}

	return &Engine{
		backend:     backend,
		tasks:       tasks,
		synthesis:   agent.NewTask(agent.SynthesisDefinition, backend, renderer, o.taskOpts...),
		maxParallel: o.maxParallel,
		newRunID:    o.newRunID,
	}
}

// Backend 当前绑定的后端名称
func (e *Engine) Backend() string { return e.backend.Name() }

// SupportedKinds 支持的分析类型
func (e *Engine) SupportedKinds() []model.Kind { return model.AllKinds() }

// RunOptions 运行选项
type RunOptions struct {
	Subject          string
	Content          string
	Kinds            []model.Kind // 为空时执行全部第一阶段分析
	ProgressCallback func(status string, progress int)
}

// Run 执行一次完整流水线
//
// 子任务失败不会中断流水线，而是以带错误描述的文本记录在对应阶段；
// 只有商品名为空或请求了未知分析类型时才返回错误。
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*model.PipelineResult, error) {
	if err := agent.ValidateSubject(opts.Subject); err != nil {
		return nil, err
	}
	kinds, err := resolveKinds(opts.Kinds)
	if err != nil {
		return nil, err
	}

	result := model.NewPipelineResult(e.newRunID(), opts.Subject)
	log := logger.Log.WithField("run", result.RunID).WithField("subject", opts.Subject)
	log.Infof("开始综合分析，执行类型: %s", joinKinds(kinds))

	progress := func(status string, p int) {
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(status, p)
		}
	}
	progress("starting", 0)

	// 1. 第一阶段：并行、互不依赖
	stageOne := e.runStageOne(ctx, kinds, opts, log, progress)
	for i, kind := range kinds {
		result.Set(model.StageOf(kind), stageOne[i])
	}

	// 2. 综合分析
	progress("generating synthesis", 85)
	synthesis := e.runSynthesis(ctx, opts.Subject, kinds, stageOne)
	if synthesis.Failed() {
		log.Errorf("综合分析生成失败: %v", synthesis.Err)
	} else {
		log.Info("综合分析生成完成")
	}
	result.Set(model.StageSynthesis, synthesis)

	// 3. 第二阶段：策略设计，依赖前两阶段的全文
	progress("designing strategy", 95)
	report := fullReport(result)
	strategy := e.runStrategy(ctx, opts.Subject, report)
	if strategy.Failed() {
		log.Errorf("策略设计失败: %v", strategy.Err)
	} else {
		log.Info("结构化策略设计完成")
	}
	result.Set(model.StageOf(model.KindStrategy), strategy)

	result.FinishedAt = time.Now()
	log.Infof("综合分析结束，共 %d 项，失败 %d 项，耗时 %s",
		result.Len(), len(result.FailedStages()), result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	log.Debugf("流水线结果: %s", gson.ToString(result.Stages))
	progress("completed", 100)

	return result, nil
}

func (e *Engine) runStageOne(
	ctx context.Context,
	kinds []model.Kind,
	opts RunOptions,
	log *logrus.Entry,
	progress func(string, int),
) []model.Result {
	results := make([]model.Result, len(kinds))

	var mu sync.Mutex
	completed := 0

	var g errgroup.Group
	if e.maxParallel > 0 {
		g.SetLimit(e.maxParallel)
	}
	for i, kind := range kinds {
		g.Go(func() error {
			text, err := e.tasks[kind].Run(ctx, agent.Input{Content: opts.Content, Subject: opts.Subject})
			if err != nil {
				log.Errorf("%s %s分析失败: %v", opts.Subject, kind, err)
				results[i] = model.Failure(stageOneFailed, err)
			} else {
				results[i] = model.Success(text)
			}

			mu.Lock()
			completed++
			progress(fmt.Sprintf("processed %s", kind), 10+int(float64(completed)/float64(len(kinds))*70))
			mu.Unlock()

			// 失败已转成占位文本，不返回错误，避免影响兄弟任务
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Engine) runSynthesis(ctx context.Context, subject string, kinds []model.Kind, stageOne []model.Result) model.Result {
	extra := make(map[string]string, len(synthesisSlots))
	for _, slot := range synthesisSlots {
		extra[slot.name] = slot.placeholder
	}

	sections := make([]string, 0, len(kinds))
	for i, kind := range kinds {
		extra[synthesisSlots[kind].name] = stageOne[i].Text
		sections = append(sections, model.Section(string(kind), stageOne[i].Text))
	}

	text, err := e.synthesis.Run(ctx, agent.Input{
		Content: strings.Join(sections, "\n\n"),
		Subject: subject,
		Extra:   extra,
	})
	if err != nil {
		return model.Failure(synthesisFailed, err)
	}
	return model.Success(text)
}

func (e *Engine) runStrategy(ctx context.Context, subject, report string) model.Result {
	text, err := e.tasks[model.KindStrategy].Run(ctx, agent.Input{
		Content: report,
		Subject: subject,
		Extra:   map[string]string{agent.ReportKey: report},
	})
	if err != nil {
		return model.Failure(strategyFailed, err)
	}
	return model.Success(text)
}

// RunOne 直接执行单个分析任务，错误原样返回
func (e *Engine) RunOne(ctx context.Context, kind model.Kind, content, subject string) (string, error) {
	task, ok := e.tasks[kind]
	if !ok {
		return "", &agent.ValidationError{Field: "kind", Message: fmt.Sprintf("不支持的分析类型: %s", kind)}
	}

	in := agent.Input{Content: content, Subject: subject}
	if kind == model.KindStrategy {
		in.Extra = map[string]string{agent.ReportKey: content}
	}
	return task.Run(ctx, in)
}

// resolveKinds 去重、校验并按固定顺序返回第一阶段类型；strategy 总在第二阶段执行
func resolveKinds(requested []model.Kind) ([]model.Kind, error) {
	if len(requested) == 0 {
		return model.StageOneKinds(), nil
	}

	want := make(map[model.Kind]bool, len(requested))
	for _, k := range requested {
		if _, ok := agent.Definitions[k]; !ok {
			return nil, &agent.ValidationError{Field: "kind", Message: fmt.Sprintf("不支持的分析类型: %s", k)}
		}
		want[k] = true
	}

	var kinds []model.Kind
	for _, k := range model.StageOneKinds() {
		if want[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// fullReport 将已完成阶段拼接为策略设计的输入
func fullReport(result *model.PipelineResult) string {
	return result.Sections()
}

func joinKinds(kinds []model.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
