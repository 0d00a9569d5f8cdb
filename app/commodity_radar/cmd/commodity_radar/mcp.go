package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/internal/server"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "以 stdio 方式运行 MCP 服务",
	Long: `注册 comprehensive_analysis 和 single_analysis 两个工具，通过 stdin/stdout 与 MCP 客户端通信。
日志只写 stderr 和日志文件。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c, err := newComponents(ctx, true)
		if err != nil {
			return err
		}

		logger.Log.Info("MCP 服务启动 (stdio)")
		return server.ServeStdio(server.NewMCPServer(c.service, Version))
	},
}
