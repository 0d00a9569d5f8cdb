package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/internal/service"
)

var (
	singleContent string
	singleURL     string
	singleJSON    bool
)

var singleCmd = &cobra.Command{
	Use:   "single <类型> <商品>",
	Short: "执行单项分析",
	Long: `执行一项分析并输出结果，错误直接返回。

类型: basis, macro, industry, price, factory, social, strategy (或 strategy_design)。
strategy 使用 --content 作为完整市场分析报告。`,
	Example: `  commodity_radar single basis 豆粕 --content "现货 3200，基差 +50"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		c, err := newComponents(ctx, false)
		if err != nil {
			return err
		}

		reply, err := c.service.Single(ctx, &service.SingleRequest{
			Kind:    args[0],
			Subject: args[1],
			Content: singleContent,
			URL:     singleURL,
		})
		if err != nil {
			return err
		}

		if singleJSON {
			return writeJSON(cmd.OutOrStdout(), reply)
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply.Result)
		return nil
	},
}

func init() {
	singleCmd.Flags().StringVar(&singleContent, "content", "", "用于分析的内容")
	singleCmd.Flags().StringVar(&singleURL, "url", "", "抓取网页正文作为分析内容")
	singleCmd.Flags().BoolVar(&singleJSON, "json", false, "以 JSON 输出")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
