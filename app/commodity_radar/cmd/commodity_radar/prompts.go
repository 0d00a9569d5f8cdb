package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/config"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/prompt"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "查看提示词模板",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出全部模板",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := newLoader()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, name := range loader.List() {
			info, err := loader.Info(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s  %d 字符, %d 行\n", color.CyanString("%-28s", name), info.Length, info.Lines)
		}
		return nil
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "显示模板内容和占位符",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := newLoader()
		if err != nil {
			return err
		}
		tpl, err := loader.Get(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		color.New(color.Bold).Fprintf(w, "== %s ==\n", args[0])
		fmt.Fprintf(w, "占位符: %v\n\n%s\n", prompt.Placeholders(tpl), tpl)
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
}

// newLoader 配置文件不存在时只使用内置模板
func newLoader() (*prompt.Loader, error) {
	dir := ""
	if cfg, err := config.LoadConfig(configPath); err == nil {
		dir = cfg.Prompts.Dir
	}
	return prompt.NewLoader(dir)
}
