// Package agent 实现单个分析任务：校验商品名、渲染模板、调用后端、原样返回文本。
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/model"
)

// TimeLayout 模板中时间占位符的格式
const TimeLayout = "2006-01-02 15:04:05"

// ReportKey 策略设计任务需要的完整报告
const ReportKey = "market_analysis_report"

// Renderer 模板渲染服务
type Renderer interface {
	Render(ctx context.Context, name string, vars map[string]any) (string, error)
}

// Input 任务输入
type Input struct {
	Content string
	Subject string
	Extra   map[string]string
}

// Definition 描述一种任务：模板名、检索白名单、时间占位符
type Definition struct {
	Name      string
	Label     string
	Template  string
	AllowList []string
	TimeSlot  string
}

var inventorySources = []string{"财经网站", "行业资讯网", "期货公司报告"}

// Definitions 七种分析任务
var Definitions = map[model.Kind]Definition{
	model.KindBasis:    {Name: "basis", Label: "基差分析", Template: "basis_analysis"},
	model.KindMacro:    {Name: "macro", Label: "宏观经济分析", Template: "macro_economic"},
	model.KindIndustry: {Name: "industry", Label: "产业基本面分析", Template: "industry_fundamentals"},
	model.KindPrice:    {Name: "price", Label: "价格技术分析", Template: "price_analysis"},
	model.KindFactory: {
		Name: "factory", Label: "工厂库存分析", Template: "factory_inventory_analysis",
		AllowList: inventorySources, TimeSlot: "analysis_time",
	},
	model.KindSocial: {
		Name: "social", Label: "社会库存分析", Template: "social_inventory_analysis",
		AllowList: inventorySources, TimeSlot: "analysis_time",
	},
	model.KindStrategy: {
		Name: "strategy", Label: "策略设计", Template: "strategy_design",
		AllowList: []string{"期权术语", "金融百科"}, TimeSlot: "design_time",
	},
}

// SynthesisDefinition 综合分析
var SynthesisDefinition = Definition{Name: "synthesis", Label: "综合分析", Template: "orchestrator"}

// Task 一个分析任务
type Task struct {
	def      Definition
	backend  llm.Backend
	renderer Renderer
	now      func() time.Time
}

// Option 任务选项
type Option func(*Task)

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(t *Task) { t.now = now }
}

// NewTask 创建任务
func NewTask(def Definition, backend llm.Backend, renderer Renderer, opts ...Option) *Task {
	t := &Task{def: def, backend: backend, renderer: renderer, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// New 按分析类型创建任务
func New(kind model.Kind, backend llm.Backend, renderer Renderer, opts ...Option) (*Task, error) {
	def, ok := Definitions[kind]
	if !ok {
		return nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("unsupported analysis kind %q", kind)}
	}
	return NewTask(def, backend, renderer, opts...), nil
}

// Definition 返回任务描述
func (t *Task) Definition() Definition { return t.def }

// ValidateSubject 商品名不能为空或全空白
func ValidateSubject(subject string) error {
	if strings.TrimSpace(subject) == "" {
		return &ValidationError{Field: "subject", Message: "商品名称不能为空。请提供具体的商品名称，如：豆粕、铜、原油等。"}
	}
	return nil
}

// Run 执行任务
func (t *Task) Run(ctx context.Context, in Input) (string, error) {
	if err := ValidateSubject(in.Subject); err != nil {
		return "", err
	}

	log := logger.Log.WithField("task", t.def.Name).WithField("subject", in.Subject)
	log.Infof("开始%s，内容长度: %d", t.def.Label, len([]rune(in.Content)))

	prompt, err := t.renderer.Render(ctx, t.def.Template, t.vars(in))
	if err != nil {
		log.Errorf("%s模板渲染失败: %v", t.def.Label, err)
		return "", &TemplateError{Template: t.def.Template, Err: err}
	}

	msgs := []*schema.Message{schema.UserMessage(prompt)}
	out, err := t.backend.Chat(ctx, msgs, t.def.AllowList)
	if err != nil {
		log.Errorf("%s失败: %v", t.def.Label, err)
		return "", err
	}

	log.Infof("%s完成", t.def.Label)
	return out, nil
}

func (t *Task) vars(in Input) map[string]any {
	vars := map[string]any{
		"subject": in.Subject,
		"content": in.Content,
	}
	if t.def.TimeSlot != "" {
		vars[t.def.TimeSlot] = t.now().Format(TimeLayout)
	}
	for k, v := range in.Extra {
		vars[k] = v
	}
	return vars
}
