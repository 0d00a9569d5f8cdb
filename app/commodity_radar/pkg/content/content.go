// Package content 在调用方未提供分析材料时，通过搜索和正文抽取准备输入文本。
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/gg/gson"
	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/model"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/search"
)

const (
	defaultMaxResults = 6
	defaultMaxChars   = 3000
	// 摘要短于该长度时抓取原文
	minSnippetChars = 500
	// 有效文章的最小长度
	minArticleChars = 100
	fetchTimeout    = 30 * time.Second
	maxPageBytes    = 5 << 20
)

// 每种分析追加的检索关键词
var keywords = map[model.Kind]string{
	model.KindBasis:    "基差 现货价格 期货升贴水",
	model.KindMacro:    "宏观经济 货币政策 汇率",
	model.KindIndustry: "供需 产量 进口 产业链",
	model.KindPrice:    "期货 价格 走势 持仓",
	model.KindFactory:  "工厂库存 开工率",
	model.KindSocial:   "社会库存 港口库存 仓单",
	model.KindStrategy: "期货 期权 行情",
}

// Fallback 没有可用材料时交给模型自行检索
func Fallback(subject string) string {
	return fmt.Sprintf("请自行搜索关于%s的最新市场信息，并进行分析。", subject)
}

// SingleFallback 单项分析的兜底文本
func SingleFallback(subject string, kind model.Kind) string {
	return fmt.Sprintf("请自行搜索关于%s的%s相关信息，并进行分析。", subject, kind)
}

func fallbackFor(subject string, kind model.Kind) string {
	if kind == "" {
		return Fallback(subject)
	}
	return SingleFallback(subject, kind)
}

// Gatherer 准备分析材料
type Gatherer struct {
	searcher   search.Searcher
	client     *http.Client
	maxResults int
	maxChars   int
	now        func() time.Time
}

// Option 选项
type Option func(*Gatherer)

// WithMaxResults 最多使用的文章数
func WithMaxResults(n int) Option {
	return func(g *Gatherer) {
		if n > 0 {
			g.maxResults = n
		}
	}
}

// WithHTTPClient 抓取原文使用的 HTTP 客户端，替换默认的仅公网客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Gatherer) { g.client = hc }
}

// NewGatherer searcher 可以为 nil，此时 Gather 总是返回兜底文本
func NewGatherer(searcher search.Searcher, opts ...Option) *Gatherer {
	g := &Gatherer{
		searcher:   searcher,
		client:     newFetchClient(),
		maxResults: defaultMaxResults,
		maxChars:   defaultMaxChars,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Gather 为商品和分析类型检索最近的资讯；kind 为空表示完整流水线
//
// 搜索失败或没有有效文章时返回兜底文本，不返回错误。
func (g *Gatherer) Gather(ctx context.Context, subject string, kind model.Kind) string {
	if g.searcher == nil {
		return fallbackFor(subject, kind)
	}

	query := subject + " 期货 行情"
	if kw, ok := keywords[kind]; ok {
		query = subject + " " + kw
	}

	now := g.now()
	resp, err := g.searcher.Search(ctx, &search.Request{
		Query:      query,
		Topic:      "news",
		MaxResults: g.maxResults * 2,
		StartDate:  now.AddDate(0, 0, -7).Format(time.DateOnly),
		EndDate:    now.Format(time.DateOnly),
		Language:   "zh-CN",
	})
	if err != nil {
		logger.Log.Warnf("搜索资讯失败 [%s]: %v", query, err)
		return fallbackFor(subject, kind)
	}
	logger.Log.Debugf("搜索资讯 [%s] 成功: %s", query, gson.ToString(resp))

	var sb strings.Builder
	n := 0
	for _, item := range resp.Dedup() {
		text := item.Text()
		if runeLen(text) < minSnippetChars && item.URL != "" {
			fetched, err := g.FetchURL(ctx, item.URL)
			if err != nil {
				logger.Log.Debugf("抓取原文失败 [%s]: %v", item.URL, err)
			} else if runeLen(fetched) > runeLen(text) {
				text = fetched
			}
		}
		text = truncate(strings.TrimSpace(text), g.maxChars)
		if runeLen(text) < minArticleChars {
			continue
		}

		n++
		fmt.Fprintf(&sb, "文章 %d:\n标题: %s\n", n, item.Title)
		if item.PublishedDate != "" {
			fmt.Fprintf(&sb, "日期: %s\n", item.PublishedDate)
		}
		fmt.Fprintf(&sb, "来源: %s\n内容: %s\n\n", item.URL, text)
		if n >= g.maxResults {
			break
		}
	}

	if n == 0 {
		logger.Log.Warnf("[%s] 未找到有效文章，交由模型自行检索", subject)
		return fallbackFor(subject, kind)
	}
	logger.Log.Infof("[%s] 收集到 %d 篇资讯", subject, n)
	return strings.TrimSpace(sb.String())
}

// FetchURL 抓取网页并抽取正文，只接受 http/https
func (g *Gatherer) FetchURL(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if err := checkScheme(u); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	res, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, res.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(res.Body, maxPageBytes), u)
	if err != nil {
		return "", fmt.Errorf("extract content failed: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

func runeLen(s string) int { return len([]rune(s)) }

// truncate 按字符截断，避免切断多字节字符
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
