package search

import (
	"context"
	"strings"
)

// Searcher 定义通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
	Name() string
}

// Request 通用搜索请求
type Request struct {
	Query             string
	Topic             string // "news" or "general"
	MaxResults        int
	IncludeRawContent bool
	StartDate         string // Format: YYYY-MM-DD
	EndDate           string // Format: YYYY-MM-DD
	Language          string
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	RawContent    string
	Score         float64
	PublishedDate string
}

// Text 优先使用正文，其次摘要
func (r Result) Text() string {
	if strings.TrimSpace(r.RawContent) != "" {
		return r.RawContent
	}
	return r.Content
}

// Dedup 按 URL 去重，保留首次出现的结果
func (r *Response) Dedup() []Result {
	seen := make(map[string]bool, len(r.Results))
	out := make([]Result, 0, len(r.Results))
	for _, item := range r.Results {
		key := strings.TrimRight(item.URL, "/")
		if key != "" && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
