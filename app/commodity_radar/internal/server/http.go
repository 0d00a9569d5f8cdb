package server

import (
	"context"
	"errors"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/internal/service"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/agent"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
)

// HTTPOptions HTTP 服务参数
type HTTPOptions struct {
	Addr    string
	Timeout time.Duration
}

// NewHTTPServer 创建分析服务的 HTTP 入口
func NewHTTPServer(c HTTPOptions, s *service.AnalysisService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout > 0 {
		opts = append(opts, http.Timeout(c.Timeout))
	}

	srv := http.NewServer(opts...)
	registerAnalysisHTTPServer(srv, s)
	return srv
}

func registerAnalysisHTTPServer(srv *http.Server, s *service.AnalysisService) {
	r := srv.Route("/api/v1")
	r.POST("/analysis", analyzeHandler(s))
	r.POST("/analysis/{kind}", singleHandler(s))
	r.GET("/kinds", kindsHandler(s))
}

func analyzeHandler(s *service.AnalysisService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in service.AnalyzeRequest
		if err := ctx.Bind(&in); err != nil {
			return kerrors.BadRequest("INVALID_BODY", err.Error())
		}
		http.SetOperation(ctx, "/api/v1/analysis")
		h := ctx.Middleware(func(c context.Context, req any) (any, error) {
			return s.Analyze(c, req.(*service.AnalyzeRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, out)
	}
}

func singleHandler(s *service.AnalysisService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in service.SingleRequest
		if err := ctx.Bind(&in); err != nil {
			return kerrors.BadRequest("INVALID_BODY", err.Error())
		}
		in.Kind = ctx.Vars().Get("kind")
		http.SetOperation(ctx, "/api/v1/analysis/{kind}")
		h := ctx.Middleware(func(c context.Context, req any) (any, error) {
			return s.Single(c, req.(*service.SingleRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return toHTTPError(err)
		}
		return ctx.Result(200, out)
	}
}

func kindsHandler(s *service.AnalysisService) http.HandlerFunc {
	return func(ctx http.Context) error {
		return ctx.Result(200, map[string]any{
			"backend": s.Backend(),
			"kinds":   s.Kinds(),
		})
	}
}

// toHTTPError 参数错误 400，模板错误 500，后端错误 502
func toHTTPError(err error) error {
	var ve *agent.ValidationError
	var te *agent.TemplateError
	var be *llm.BackendError
	switch {
	case errors.As(err, &ve):
		return kerrors.BadRequest("INVALID_ARGUMENT", ve.Error())
	case errors.As(err, &te):
		return kerrors.InternalServer("TEMPLATE_ERROR", te.Error())
	case errors.As(err, &be):
		return kerrors.New(502, "BACKEND_ERROR", be.Error())
	case kerrors.FromError(err).Code != kerrors.UnknownCode:
		return err
	default:
		return kerrors.InternalServer("INTERNAL", err.Error())
	}
}
