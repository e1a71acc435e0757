// Package sidecar implements engine.Engine on top of a render process that
// speaks HTTP, either over TCP or a unix socket.
//
// The process answers two endpoints:
//
//	POST /render         -> {"html": "...", "title": "...", "modules": [...], "scripts": [...], "error": {...}}
//	POST /render/stream  -> chunked markup; X-Render-Title header,
//	                        X-Render-Modules trailer (comma separated)
//
// Both receive {"url": "/path?query", "data": {...}}.
package sidecar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/internal/jsoncodec"
	"github.com/vango-dev/ssrdoc/pkg/assets"
	"github.com/vango-dev/ssrdoc/pkg/engine"
	"github.com/vango-dev/ssrdoc/pkg/render"
)

const (
	// HeaderTitle carries the document title of a streamed render.
	HeaderTitle = "X-Render-Title"

	// TrailerModules carries the rendered modules of a streamed render.
	TrailerModules = "X-Render-Modules"
)

// Options configures a Client.
type Options struct {
	// Addr is the sidecar address: "http://host:port" or "unix:///path.sock".
	Addr string

	// Timeout bounds buffered renders. Streamed renders are bounded by the
	// caller's context. Default: 10s.
	Timeout time.Duration

	// Manifest and Resolver turn rendered modules into script tags.
	Manifest *assets.Manifest
	Resolver assets.Resolver

	// HTTPClient overrides the transport. Used in tests.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to a render sidecar.
type Client struct {
	base     string
	http     *http.Client
	timeout  time.Duration
	manifest *assets.Manifest
	resolver assets.Resolver
	logger   *slog.Logger
}

var _ engine.Engine = (*Client)(nil)

// New creates a Client for opts.Addr.
func New(opts Options) (*Client, error) {
	if opts.Addr == "" {
		return nil, errors.New("E040").WithDetail("The render sidecar address is empty.")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	base := strings.TrimRight(opts.Addr, "/")
	client := opts.HTTPClient

	if socket, ok := strings.CutPrefix(opts.Addr, "unix://"); ok {
		base = "http://sidecar"
		if client == nil {
			client = &http.Client{Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socket)
				},
			}}
		}
	} else if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, errors.New("E040").
			WithDetail(fmt.Sprintf("Unsupported render sidecar address %q.", opts.Addr)).
			WithSuggestion("Use http://host:port or unix:///path/to/socket")
	}

	if client == nil {
		client = &http.Client{}
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = assets.NewResolver(opts.Manifest, "")
	}

	return &Client{
		base:     base,
		http:     client,
		timeout:  opts.Timeout,
		manifest: opts.Manifest,
		resolver: resolver,
		logger:   opts.Logger,
	}, nil
}

type renderRequest struct {
	URL  string         `json:"url"`
	Data map[string]any `json:"data"`
}

type renderError struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

type renderResponse struct {
	HTML    string       `json:"html"`
	Title   string       `json:"title"`
	Modules []string     `json:"modules"`
	Scripts []string     `json:"scripts"`
	Error   *renderError `json:"error"`
}

// Render implements engine.Engine.
func (c *Client) Render(ctx context.Context, url string, data map[string]any) (*engine.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.post(ctx, "/render", url, data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result renderResponse
	decodeErr := jsoncodec.Decode(resp.Body, &result)

	if decodeErr == nil && result.Error != nil {
		detail := result.Error.Message
		if result.Error.Stack != "" {
			detail += "\n\nStack:\n" + result.Error.Stack
		}
		return nil, errors.New("E035").WithStatus(resp.StatusCode).WithDetail(detail)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New("E035").WithStatus(resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, errors.New("E035").
			WithDetail("The render sidecar returned an unreadable response.").
			Wrap(decodeErr)
	}

	return &engine.Result{
		HTML: result.HTML,
		Extra: engine.Extra{
			Title:       result.Title,
			InitialData: data,
			Modules:     result.Modules,
			Scripts:     result.Scripts,
		},
	}, nil
}

// RenderStream implements engine.Engine. The returned stream reports the
// modules from the response trailer once it has been read to the end.
func (c *Client) RenderStream(ctx context.Context, url string, data map[string]any) (*engine.Result, error) {
	resp, err := c.post(ctx, "/render/stream", url, data)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.New("E035").
			WithStatus(resp.StatusCode).
			WithDetail(strings.TrimSpace(string(msg)))
	}

	return &engine.Result{
		Stream: &stream{resp: resp},
		Extra: engine.Extra{
			Title:       resp.Header.Get(HeaderTitle),
			InitialData: data,
		},
	}, nil
}

// ScriptsForModules implements engine.Engine using the manifest's module
// section.
func (c *Client) ScriptsForModules(modules []string) []string {
	if c.manifest == nil {
		return nil
	}

	paths := c.manifest.ModuleAssets(modules)
	scripts := make([]string, 0, len(paths))
	for _, p := range paths {
		scripts = append(scripts, render.ScriptTag(c.resolver.Path(p)))
	}
	return scripts
}

func (c *Client) post(ctx context.Context, endpoint, url string, data map[string]any) (*http.Response, error) {
	if data == nil {
		data = map[string]any{}
	}

	body, err := jsoncodec.Marshal(renderRequest{URL: url, Data: data})
	if err != nil {
		return nil, errors.New("E010").Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.New("E035").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("render sidecar request failed", "endpoint", endpoint, "url", url, "error", err)
		return nil, errors.New("E035").
			WithDetail("The render sidecar could not be reached.").
			Wrap(err)
	}
	return resp, nil
}

// stream is the body of a streamed render.
type stream struct {
	resp *http.Response

	mu      sync.Mutex
	modules []string
}

func (s *stream) Read(p []byte) (int, error) {
	n, err := s.resp.Body.Read(p)
	if err == io.EOF {
		s.mu.Lock()
		s.modules = parseModules(s.resp.Trailer.Get(TrailerModules))
		s.mu.Unlock()
	}
	return n, err
}

func (s *stream) Close() error {
	return s.resp.Body.Close()
}

// Modules implements engine.ModuleReporter.
func (s *stream) Modules() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modules
}

func parseModules(v string) []string {
	if v == "" {
		return nil
	}
	var modules []string
	for _, m := range strings.Split(v, ",") {
		if m = strings.TrimSpace(m); m != "" {
			modules = append(modules, m)
		}
	}
	return modules
}
