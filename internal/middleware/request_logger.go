package middleware

import (
	"time"

	"foodorder/internal/infra/logger"
	"foodorder/internal/infra/telemetry"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// RequestLogger はリクエストIDの採番・span開始・アクセスログを行う。
// 以降の層は logger.FromContext でリクエスト単位のロガーを使う。
func RequestLogger(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			reqID := req.Header.Get(HeaderRequestID)
			if reqID == "" || len(reqID) > 64 {
				reqID = uuid.NewString()
			}
			c.Set(CtxRequestIDKey, reqID)
			c.Response().Header().Set(HeaderRequestID, reqID)

			ctx, span := telemetry.StartSpan(req.Context(), req.Method+" "+c.Path(),
				attribute.String("http.method", req.Method),
				attribute.String("http.route", c.Path()),
				attribute.String("request.id", reqID),
			)

			fields := []zap.Field{zap.String("request_id", reqID)}
			if traceID := telemetry.TraceID(ctx); traceID != "" {
				fields = append(fields, zap.String("trace_id", traceID))
			}
			l := base.With(fields...)

			c.SetRequest(req.WithContext(logger.WithContext(ctx, l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// echoのエラーハンドラにレスポンスを書かせてからステータスを読む
				c.Error(err)
			}

			status := c.Response().Status
			span.SetAttributes(attribute.Int("http.status_code", status))
			telemetry.EndSpan(span, err)

			access := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			if a, ok := ActorFromContext(c); ok {
				access = append(access, zap.Int64("user_id", a.UserID))
			}

			switch {
			case status >= 500:
				l.Error("request", append(access, zap.Error(err))...)
			case status >= 400:
				l.Warn("request", access...)
			default:
				l.Info("request", access...)
			}
			return nil
		}
	}
}
