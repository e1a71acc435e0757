// Package enrich fetches request-time data from upstream JSON APIs and
// hands it to the renderer as part of the initial data.
package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/internal/jsoncodec"
)

// DefaultUserAgent is a mobile Safari user agent. Some public APIs reject
// requests without a browser-like agent.
const DefaultUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 11_0 like Mac OS X) AppleWebKit/604.1.38 (KHTML, like Gecko) Version/11.0 Mobile/15A372 Safari/604.1"

// DefaultMaxBodyBytes caps upstream response bodies.
const DefaultMaxBodyBytes = 10 << 20

// Options configures a Client.
type Options struct {
	// UserAgent is sent with every request. Default: DefaultUserAgent.
	UserAgent string

	// Timeout bounds a single fetch. Default: 10s.
	Timeout time.Duration

	// MaxBodyBytes caps the decoded body. Default: 10 MiB.
	MaxBodyBytes int64

	// HTTPClient overrides the transport.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client fetches JSON documents.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
	tracer    trace.Tracer
	logger    *slog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		http:      client,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
		tracer:    otel.Tracer("ssrdoc/enrich"),
		logger:    opts.Logger,
	}
}

// Fetch GETs url and decodes the body as arbitrary JSON. The decoded value
// is returned unmodified.
//
// Network failures return E020 and non-2xx answers E021; both carry the
// upstream status code when one was received.
func (c *Client) Fetch(ctx context.Context, url string) (any, error) {
	ctx, span := c.tracer.Start(ctx, "enrich.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", url)),
	)
	defer span.End()

	data, status, err := c.fetch(ctx, url)
	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("upstream fetch failed",
			"url", url,
			"status", status,
			"error", err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return data, nil
}

func (c *Client) fetch(ctx context.Context, url string) (any, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errors.New("E020").Wrap(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, errors.New("E020").Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, errors.New("E021").
			WithStatus(resp.StatusCode).
			WithDetail(fmt.Sprintf("GET %s answered %s.", url, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, resp.StatusCode, errors.New("E020").WithStatus(resp.StatusCode).Wrap(err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, resp.StatusCode, errors.New("E020").
			WithStatus(resp.StatusCode).
			WithDetail(fmt.Sprintf("The response body exceeds %d bytes.", c.maxBody))
	}

	var data any
	if err := jsoncodec.Unmarshal(body, &data); err != nil {
		return nil, resp.StatusCode, errors.New("E020").
			WithStatus(resp.StatusCode).
			WithDetail("The response body is not valid JSON.").
			Wrap(err)
	}
	return data, resp.StatusCode, nil
}
