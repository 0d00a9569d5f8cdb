package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/internal/service"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/agent"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/engine"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/prompt"
)

type fixedBackend struct {
	reply string
	err   error
}

func (b *fixedBackend) Name() string { return "fixed" }

func (b *fixedBackend) Chat(context.Context, []*schema.Message, []string) (string, error) {
	return b.reply, b.err
}

func newAnalysisService(t *testing.T, b llm.Backend) *service.AnalysisService {
	t.Helper()
	loader, err := prompt.NewLoader("")
	require.NoError(t, err)
	return service.NewAnalysisService(engine.NewEngine(b, loader), nil)
}

func newTestServer(t *testing.T, b llm.Backend) *httptest.Server {
	t.Helper()
	srv := NewHTTPServer(HTTPOptions{}, newAnalysisService(t, b), NewLogger())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res, out
}

func TestHTTP_Analysis(t *testing.T) {
	ts := newTestServer(t, &fixedBackend{reply: "偏多"})

	res, out := post(t, ts.URL+"/api/v1/analysis", `{"subject":"豆粕","content":"现货 3200","kinds":["basis"]}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "豆粕", out["subject"])
	stages, ok := out["stages"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, stages, 3)
	assert.Contains(t, out["report"], "===== SYNTHESIS ANALYSIS =====\n偏多")
}

func TestHTTP_Single(t *testing.T) {
	ts := newTestServer(t, &fixedBackend{reply: "震荡"})

	res, out := post(t, ts.URL+"/api/v1/analysis/price", `{"subject":"铜","content":"K 线"}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "price", out["kind"])
	assert.Equal(t, "震荡", out["result"])
}

func TestHTTP_Errors(t *testing.T) {
	ts := newTestServer(t, &fixedBackend{err: &llm.BackendError{Provider: "zhipu", Status: 401, Message: "bad key"}})

	res, out := post(t, ts.URL+"/api/v1/analysis/basis", `{"subject":"  "}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", out["reason"])

	res, _ = post(t, ts.URL+"/api/v1/analysis/weather", `{"subject":"铜"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, out = post(t, ts.URL+"/api/v1/analysis/basis", `{"subject":"铜","content":"c"}`)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Equal(t, "BACKEND_ERROR", out["reason"])

	// 流水线内部失败不影响状态码
	res, out = post(t, ts.URL+"/api/v1/analysis", `{"subject":"铜","content":"c"}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, out["failed"], 8)
}

func TestHTTP_Kinds(t *testing.T) {
	ts := newTestServer(t, &fixedBackend{reply: "x"})

	res, err := http.Get(ts.URL + "/api/v1/kinds")
	require.NoError(t, err)
	defer res.Body.Close()
	var out struct {
		Backend string             `json:"backend"`
		Kinds   []service.KindInfo `json:"kinds"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, "fixed", out.Backend)
	assert.Len(t, out.Kinds, 7)
}

func TestToHTTPError(t *testing.T) {
	cases := []struct {
		err  error
		code int32
	}{
		{&agent.ValidationError{Field: "subject", Message: "empty"}, 400},
		{&agent.TemplateError{Template: "basis_analysis", Err: prompt.ErrMissingVar}, 500},
		{&llm.BackendError{Provider: "gemini", Message: "timeout"}, 502},
		{errors.New("boom"), 500},
		{kerrors.NotFound("X", "y"), 404},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, kerrors.FromError(toHTTPError(c.err)).Code, c.err.Error())
	}
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func toolText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestMCP_Comprehensive(t *testing.T) {
	tools := &mcpTools{svc: newAnalysisService(t, &fixedBackend{reply: "结论"})}

	res, err := tools.comprehensive(context.Background(), callTool(map[string]any{
		"commodity_name": "豆粕",
		"content":        "现货 3200",
		"analysis_types": []any{"basis", "macro", "strategy_design"},
	}))
	require.NoError(t, err)
	text := toolText(t, res)
	assert.True(t, strings.HasPrefix(text, "===== BASIS ANALYSIS =====\n结论\n\n===== MACRO ANALYSIS ====="))
	assert.Contains(t, text, "===== STRATEGY ANALYSIS =====\n结论")

	res, err = tools.comprehensive(context.Background(), callTool(map[string]any{"commodity_name": " "}))
	require.NoError(t, err)
	assert.Equal(t, "错误：'commodity_name' 参数不能为空。", toolText(t, res))
}

func TestMCP_Single(t *testing.T) {
	tools := &mcpTools{svc: newAnalysisService(t, &fixedBackend{err: errors.New("rate limited")})}

	res, err := tools.single(context.Background(), callTool(map[string]any{
		"analysis_type":  "basis",
		"commodity_name": "铜",
		"content":        "c",
	}))
	require.NoError(t, err)
	assert.Equal(t, "单一分析过程中发生错误: rate limited", toolText(t, res))

	res, err = tools.single(context.Background(), callTool(map[string]any{"commodity_name": "铜"}))
	require.NoError(t, err)
	assert.Equal(t, "错误：'analysis_type' 参数不能为空。", toolText(t, res))
}

func TestNewMCPServer(t *testing.T) {
	srv := NewMCPServer(newAnalysisService(t, &fixedBackend{reply: "x"}), "test")
	require.NotNil(t, srv)
	assert.Equal(t, "comprehensive_analysis", comprehensiveTool().Name)
	assert.Equal(t, "single_analysis", singleTool().Name)
	assert.Contains(t, singleTool().InputSchema.Required, "analysis_type")
}
