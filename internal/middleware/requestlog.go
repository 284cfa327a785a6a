package middleware

import (
    "strconv"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.opentelemetry.io/otel"
    "go.opentelemetry.io/otel/attribute"
    "go.opentelemetry.io/otel/trace"

    "github.com/iliyamo/cinema-pos/internal/observability"
)

const tracerName = "github.com/iliyamo/cinema-pos/internal/middleware"

// RequestLog tags each request with an id, wraps it in a span, counts
// it and writes one structured log line when it completes.
func RequestLog(log observability.Logger) echo.MiddlewareFunc {
    tracer := otel.Tracer(tracerName)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            rid := req.Header.Get(echo.HeaderXRequestID)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, rid)

            ctx, span := tracer.Start(req.Context(), req.Method+" "+c.Path(),
                trace.WithSpanKind(trace.SpanKindServer),
                trace.WithAttributes(attribute.String("request.id", rid)))
            defer span.End()
            c.SetRequest(req.WithContext(ctx))

            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo write the error so the status below is final
                c.Error(err)
                span.RecordError(err)
            }

            status := c.Response().Status
            span.SetAttributes(attribute.Int("http.status_code", status))
            observability.RequestsTotal.WithLabelValues(c.Path(), strconv.Itoa(status), req.Method).Inc()

            entry := log.WithField("request_id", rid).
                WithField("method", req.Method).
                WithField("route", c.Path()).
                WithField("status", status).
                WithField("operator", operatorKey(c)).
                WithField("duration_ms", time.Since(start).Milliseconds())
            switch {
            case status >= 500:
                entry.Error("request failed")
            case status >= 400:
                entry.Info("request rejected")
            default:
                entry.Debug("request served")
            }
            return nil
        }
    }
}
