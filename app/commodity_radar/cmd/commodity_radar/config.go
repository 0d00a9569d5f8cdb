package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/config"
)

var envTemplateOut string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "检查配置",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "校验配置并打印摘要（隐藏密钥）",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		v := cfg.Validate()
		printConfigSummary(cmd.OutOrStdout(), cfg, v)
		if !v.Valid() {
			return fmt.Errorf("配置验证失败")
		}
		return nil
	},
}

var configEnvTemplateCmd = &cobra.Command{
	Use:   "env-template",
	Short: "导出配置引用的环境变量模板",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if envTemplateOut == "" || envTemplateOut == "-" {
			_, err := io.WriteString(cmd.OutOrStdout(), cfg.EnvTemplate())
			return err
		}
		if err := os.WriteFile(envTemplateOut, []byte(cfg.EnvTemplate()), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "环境变量模板已导出到: %s\n", envTemplateOut)
		return nil
	},
}

func init() {
	configEnvTemplateCmd.Flags().StringVarP(&envTemplateOut, "output", "o", "", "输出文件，默认写到标准输出")

	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configEnvTemplateCmd)
}

func printConfigSummary(w io.Writer, cfg *config.Config, v config.Validation) {
	bold := color.New(color.Bold)

	bold.Fprintln(w, "=== 配置摘要 ===")
	fmt.Fprintf(w, "配置文件: %s\n\n", cfg.Path())

	bold.Fprintln(w, "LLM 提供商:")
	for _, id := range cfg.ProviderIDs() {
		p := cfg.Providers[id]
		model := p.Model
		if model == "" {
			model = "N/A"
		}
		fmt.Fprintf(w, "  - %s: %s (Key: %s)\n", id, model, config.MaskKey(p.APIKey))
	}
	fmt.Fprintf(w, "\n默认提供商: %s\n", cfg.DefaultProvider())

	search := cfg.Search.Provider
	if search == "" {
		search = "未配置"
	}
	fmt.Fprintf(w, "搜索服务: %s\n", search)
	fmt.Fprintf(w, "并发: rpm=%d qps=%d max_parallel=%d\n\n", cfg.Concurrency.RPM, cfg.Concurrency.QPS, cfg.Concurrency.MaxParallel)

	if v.Valid() {
		fmt.Fprintf(w, "配置验证结果: %s\n", color.GreenString("通过"))
	} else {
		fmt.Fprintf(w, "配置验证结果: %s\n", color.RedString("失败"))
	}
	for _, e := range v.Errors {
		fmt.Fprintf(w, "  %s %s\n", color.RedString("✗"), e)
	}
	for _, warn := range v.Warnings {
		fmt.Fprintf(w, "  %s %s\n", color.YellowString("⚠"), warn)
	}
}
