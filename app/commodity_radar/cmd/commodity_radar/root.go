package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/config"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 服务名称
	Name = "commodity_radar"
	// Version 版本号
	Version = "dev"
)

var (
	configPath string
	providerID string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "commodity_radar",
	Short: "大宗商品多维度分析",
	Long: `commodity_radar 对指定商品并行执行基差、宏观、产业基本面、价格、工厂库存、社会库存六项分析，
再生成综合分析和结构化策略设计。

可以作为命令行工具直接使用，也可以通过 serve 启动 HTTP 服务，或通过 mcp 以 stdio 方式接入 MCP 客户端。`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "配置文件路径 (.toml/.yaml)")
	rootCmd.PersistentFlags().StringVarP(&providerID, "provider", "p", "", "LLM 提供商，默认使用 [llm] default_provider")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别，覆盖配置文件")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(singleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(configCmd)
}
