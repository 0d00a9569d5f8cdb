package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/internal/service"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/model"
)

var (
	analyzeContent string
	analyzeURL     string
	analyzeKinds   []string
	analyzeJSON    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <商品>",
	Short: "对商品执行完整分析流水线",
	Long: `并行执行第一阶段分析，然后生成综合分析和结构化策略设计。

未提供 --content 或 --url 时，若配置了搜索服务会先检索最近一周的资讯，否则由模型自行搜索。`,
	Example: `  commodity_radar analyze 豆粕
  commodity_radar analyze 铜 --kinds basis,macro --content "现货 68500，升水 120"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		c, err := newComponents(ctx, false)
		if err != nil {
			return err
		}

		reply, err := c.service.Analyze(ctx, &service.AnalyzeRequest{
			Subject: args[0],
			Content: analyzeContent,
			URL:     analyzeURL,
			Kinds:   analyzeKinds,
		})
		if err != nil {
			return err
		}

		if analyzeJSON {
			return writeJSON(cmd.OutOrStdout(), reply)
		}
		printPipeline(cmd.OutOrStdout(), reply.PipelineResult)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeContent, "content", "", "用于分析的市场数据、新闻或文本")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "抓取网页正文作为分析内容")
	analyzeCmd.Flags().StringSliceVarP(&analyzeKinds, "kinds", "k", nil, "分析类型，逗号分隔: basis,macro,industry,price,factory,social")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "以 JSON 输出")
}

// printPipeline 按阶段输出，失败阶段标红
func printPipeline(w io.Writer, res *model.PipelineResult) {
	header := color.New(color.FgCyan, color.Bold)
	failed := color.New(color.FgRed, color.Bold)

	for i, stage := range res.Keys() {
		r, _ := res.Get(stage)
		if i > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w)
		}
		h := header
		if r.Failed() {
			h = failed
		}
		h.Fprintln(w, model.SectionHeader(string(stage)))
		fmt.Fprint(w, strings.TrimRight(r.Text, "\n"))
	}
	fmt.Fprintln(w)

	if n := len(res.FailedStages()); n > 0 {
		color.New(color.FgYellow).Fprintf(w, "\n%d 项分析失败\n", n)
	}
}
