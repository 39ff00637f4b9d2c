package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/storelens/reviewgateway/pkg/logger"
	"github.com/storelens/reviewgateway/pkg/tracing"
)

// Span attributes describing the apps a request served.
const (
	AttrAppID    = attribute.Key("app.id")
	AttrAppIDs   = attribute.Key("app.ids")
	AttrAppCount = attribute.Key("app.count")
)

// Tracing starts a server span per request, continuing any W3C trace context
// in the inbound headers and echoing it on the response. Once the handler
// returns the span is renamed after the chi route and tagged with the status
// and the app ids the handler served.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracing.InstrumentationPrefix + serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			propagator := otel.GetTextMapPropagator()
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, tags := logger.EnsureRequestTags(ctx)

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPMethod(r.Method),
					semconv.HTTPTarget(r.URL.RequestURI()),
					semconv.HTTPScheme(scheme(r)),
					semconv.UserAgentOriginal(r.UserAgent()),
					attribute.String("http.client_ip", r.RemoteAddr),
				),
			)
			defer span.End()

			propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			rec := newStatusRecorder(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(rec, r)

			if route := routePattern(r); route != "unknown" {
				span.SetName(r.Method + " " + route)
				span.SetAttributes(semconv.HTTPRoute(route))
			}
			span.SetAttributes(semconv.HTTPStatusCode(rec.status))
			span.SetAttributes(appAttributes(tags.AppIDs())...)

			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
		})
	}
}

func appAttributes(ids []string) []attribute.KeyValue {
	switch len(ids) {
	case 0:
		return nil
	case 1:
		return []attribute.KeyValue{AttrAppID.String(ids[0]), AttrAppCount.Int(1)}
	default:
		return []attribute.KeyValue{AttrAppIDs.StringSlice(ids), AttrAppCount.Int(len(ids))}
	}
}

// scheme returns "https" if the request uses TLS, otherwise "http".
func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
