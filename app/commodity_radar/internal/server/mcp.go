package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/internal/service"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
)

const kindsHelp = `"basis":基差分析, "macro":宏观分析, "industry":产业基本面分析, "price":价格分析, "factory":工厂库存分析, "social":社会库存分析, "strategy_design":策略设计`

// NewMCPServer 创建 MCP 服务并注册分析工具
func NewMCPServer(s *service.AnalysisService, version string) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(
		"commodity-analysis-server",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	tools := &mcpTools{svc: s}
	srv.AddTool(comprehensiveTool(), tools.comprehensive)
	srv.AddTool(singleTool(), tools.single)
	return srv
}

// ServeStdio 在 stdin/stdout 上运行 MCP 服务
func ServeStdio(srv *mcpserver.MCPServer) error {
	return mcpserver.ServeStdio(srv)
}

func comprehensiveTool() mcp.Tool {
	return mcp.NewTool("comprehensive_analysis",
		mcp.WithDescription("[分析] 对指定商品进行全面分析：多维度并行分析、综合分析和结构化策略设计。"),
		mcp.WithString("commodity_name", mcp.Required(), mcp.Description("商品名称，例如：豆粕、铜、原油。")),
		mcp.WithString("content", mcp.Description("用于分析的市场数据、新闻或文本内容。为空时先检索资讯，检索不到则由模型自行搜索。")),
		mcp.WithArray("analysis_types",
			mcp.Description("要执行的分析类型，可选值: "+kindsHelp+"。默认执行全部，策略设计总会执行。"),
			mcp.WithStringItems(),
		),
	)
}

func singleTool() mcp.Tool {
	return mcp.NewTool("single_analysis",
		mcp.WithDescription("[分析] 对指定商品进行单一维度的分析。"),
		mcp.WithString("analysis_type", mcp.Required(), mcp.Description("分析类型，可选值: "+kindsHelp+"。")),
		mcp.WithString("commodity_name", mcp.Required(), mcp.Description("商品名称，例如：豆粕。")),
		mcp.WithString("content", mcp.Description("用于分析的内容。为空时先检索资讯。")),
	)
}

type mcpTools struct {
	svc *service.AnalysisService
}

// 错误以文本形式返回给调用方
func (t *mcpTools) comprehensive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subject := req.GetString("commodity_name", "")
	if strings.TrimSpace(subject) == "" {
		return mcp.NewToolResultText("错误：'commodity_name' 参数不能为空。"), nil
	}

	reply, err := t.svc.Analyze(ctx, &service.AnalyzeRequest{
		Subject: subject,
		Content: req.GetString("content", ""),
		Kinds:   req.GetStringSlice("analysis_types", nil),
	})
	if err != nil {
		logger.Log.Errorf("综合分析过程中发生错误: %v", err)
		return mcp.NewToolResultText(fmt.Sprintf("综合分析过程中发生错误: %v", err)), nil
	}
	return mcp.NewToolResultText(reply.Report), nil
}

func (t *mcpTools) single(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := req.GetString("analysis_type", "")
	if strings.TrimSpace(kind) == "" {
		return mcp.NewToolResultText("错误：'analysis_type' 参数不能为空。"), nil
	}
	subject := req.GetString("commodity_name", "")
	if strings.TrimSpace(subject) == "" {
		return mcp.NewToolResultText("错误：'commodity_name' 参数不能为空。"), nil
	}

	reply, err := t.svc.Single(ctx, &service.SingleRequest{
		Kind:    kind,
		Subject: subject,
		Content: req.GetString("content", ""),
	})
	if err != nil {
		logger.Log.Errorf("单一分析过程中发生错误: %v", err)
		return mcp.NewToolResultText(fmt.Sprintf("单一分析过程中发生错误: %v", err)), nil
	}
	return mcp.NewToolResultText(reply.Result), nil
}
