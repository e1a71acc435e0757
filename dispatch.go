package ssrdoc

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/pkg/middleware"
	"github.com/vango-dev/ssrdoc/pkg/render"
)

// routeHandler returns the handler for one route. The rendering mode is
// chosen here, once per request.
func (a *App) routeHandler(route RouteConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.config.SSR {
			a.serveStaticDocument(w, r)
			return
		}

		logger := a.requestLogger(r)
		ctx := r.Context()

		data := initialData(ctx)
		if route.Enrich != nil {
			value, err := a.config.Enricher.Fetch(ctx, route.Enrich.URL)
			if err != nil {
				a.upstreamFailed(w, r, logger, err)
				return
			}
			data[route.Enrich.Key] = value
		}

		if span := middleware.SpanFromContext(ctx); span != nil {
			span.SetAttributes(
				attribute.String("ssrdoc.route", route.Path),
				attribute.Bool("ssrdoc.stream", route.Stream),
			)
		}

		if route.Stream {
			a.renderStream(w, r, logger, data)
			return
		}
		a.renderSync(w, r, logger, data)
	}
}

// renderSync renders a buffered document.
func (a *App) renderSync(w http.ResponseWriter, r *http.Request, logger *slog.Logger, data map[string]any) {
	middleware.SetMode(r.Context(), "sync")
	logger.Debug("rendering document", "mode", "sync")

	res, err := a.engine.Render(r.Context(), requestURL(r), data)
	if err != nil {
		a.renderFailed(w, logger, errors.FromError(err, "E035"))
		return
	}
	res.Extra.InitialData = data

	doc, err := a.assembler.Assemble(res)
	if err != nil {
		a.renderFailed(w, logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// renderStream renders a progressive document. Errors that occur before
// the head is sent are answered with a status; later ones only end the
// document early.
func (a *App) renderStream(w http.ResponseWriter, r *http.Request, logger *slog.Logger, data map[string]any) {
	middleware.SetMode(r.Context(), "stream")
	logger.Debug("rendering document", "mode", "stream")

	res, err := a.engine.RenderStream(r.Context(), requestURL(r), data)
	if err != nil {
		a.renderFailed(w, logger, errors.FromError(err, "E035"))
		return
	}
	res.Extra.InitialData = data

	session, err := a.streamer.NewSession(res)
	if err != nil {
		a.renderFailed(w, logger, err)
		return
	}
	session.WithLogger(logger)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if err := session.Run(r.Context(), render.NewResponseSink(w)); err != nil {
		logger.Debug("stream session ended early",
			"outcome", string(session.Outcome()),
			"error", err)
	}
}

func (a *App) renderFailed(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("render failed",
		"code", errors.Code(err),
		"error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (a *App) upstreamFailed(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	middleware.SetMode(r.Context(), "upstream_error")
	if a.config.Metrics != nil {
		a.config.Metrics.RecordUpstreamError()
	}

	attrs := []any{"code", errors.Code(err), "error", err}
	if status := errors.Status(err); status != 0 {
		attrs = append(attrs, "upstream_status", status)
	}
	logger.Error("enrichment failed", attrs...)

	http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
}

func (a *App) requestLogger(r *http.Request) *slog.Logger {
	return a.logger.With(
		"request_id", middleware.RequestIDFrom(r.Context()),
		"path", r.URL.Path,
	)
}

// requestURL is the URL handed to the render engine: path and query.
func requestURL(r *http.Request) string {
	return r.URL.RequestURI()
}
