package main

import (
	"context"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/internal/server"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
)

var (
	serveAddr string

	id, _ = os.Hostname()
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	Long: `启动 HTTP 服务：
  POST /api/v1/analysis          完整分析流水线
  POST /api/v1/analysis/{kind}   单项分析
  GET  /api/v1/kinds             支持的分析类型`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c, err := newComponents(ctx, false)
		if err != nil {
			return err
		}

		opts := server.HTTPOptions{Addr: c.cfg.Server.HTTPAddr, Timeout: c.cfg.ServerTimeout()}
		if serveAddr != "" {
			opts.Addr = serveAddr
		}
		if opts.Addr == "" {
			opts.Addr = ":8000"
		}

		kl := log.With(server.NewLogger(),
			"service.id", id,
			"service.name", Name,
			"service.version", Version,
		)
		app, cleanup, err := initApp(opts, c.service, kl)
		if err != nil {
			return err
		}
		defer cleanup()

		logger.Log.Infof("HTTP 服务监听 %s", opts.Addr)
		return app.Run()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "监听地址，覆盖 [server] http_addr")
}

func newApp(logger log.Logger, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
}
