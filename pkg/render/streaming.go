package render

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/pkg/engine"
)

// DefaultChunkSize is the read buffer size used when piping markup.
const DefaultChunkSize = 32 * 1024

// DefaultStreamTimeout bounds how long a markup stream may run.
const DefaultStreamTimeout = 30 * time.Second

// Phase is the position of a streaming session in its lifecycle.
// Sessions only move forward.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseHeadSent
	PhaseMarkupStreaming
	PhaseTailPending
	PhaseTailStreaming
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseHeadSent:
		return "head_sent"
	case PhaseMarkupStreaming:
		return "markup_streaming"
	case PhaseTailPending:
		return "tail_pending"
	case PhaseTailStreaming:
		return "tail_streaming"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Outcome describes how a streaming session finished.
type Outcome string

const (
	OutcomeComplete    Outcome = "complete"
	OutcomeStreamError Outcome = "stream_error"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeClientGone  Outcome = "client_gone"
)

// ModuleResolver maps rendered modules to the script tags that load them.
// engine.Engine satisfies it.
type ModuleResolver interface {
	ScriptsForModules(modules []string) []string
}

// StreamOptions configures a StreamAssembler.
type StreamOptions struct {
	// ChunkSize is the size of the read buffer. Default: 32 KiB.
	ChunkSize int

	// Timeout bounds the markup stream. Zero disables it.
	Timeout time.Duration

	// Logger receives session events. Default: slog.Default().
	Logger *slog.Logger

	// OnEnd is called once per session with its outcome.
	OnEnd func(Outcome)
}

// StreamAssembler starts progressive document sessions.
type StreamAssembler struct {
	shell     *Shell
	modules   ModuleResolver
	chunkSize int
	timeout   time.Duration
	logger    *slog.Logger
	onEnd     func(Outcome)
}

// NewStreamAssembler creates a StreamAssembler. modules may be nil, in which
// case no module scripts are emitted.
func NewStreamAssembler(shell *Shell, modules ModuleResolver, opts StreamOptions) *StreamAssembler {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &StreamAssembler{
		shell:     shell,
		modules:   modules,
		chunkSize: opts.ChunkSize,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		onEnd:     opts.OnEnd,
	}
}

// NewSession prepares a session for a streaming render result. The
// hydration data is serialized here, before anything is written, so a
// serialization failure can still be answered with an error status.
// On error the result's stream is closed.
func (a *StreamAssembler) NewSession(res *engine.Result) (*Session, error) {
	if res == nil || res.Stream == nil {
		return nil, errors.New("E035").WithDetail("The render result carries no markup stream.")
	}

	dataScript, err := a.shell.DataScript(res.Extra.InitialData)
	if err != nil {
		_ = res.Stream.Close()
		return nil, err
	}

	return &Session{
		a:          a,
		stream:     res.Stream,
		title:      res.Extra.Title,
		dataScript: dataScript,
		modules:    res.Extra.Modules,
		logger:     a.logger,
	}, nil
}

// Session is one streamed document. It is driven by a single goroutine.
type Session struct {
	a          *StreamAssembler
	stream     io.ReadCloser
	title      string
	dataScript string
	modules    []string
	logger     *slog.Logger

	phase          Phase
	phaseBeforeEnd Phase
	outcome        Outcome
	written        int64
	closeOnce      sync.Once
}

// WithLogger sets the logger used for this session's events.
func (s *Session) WithLogger(logger *slog.Logger) *Session {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	return s.phase
}

// Outcome returns how the session finished. It is empty until Ended.
func (s *Session) Outcome() Outcome {
	return s.outcome
}

// advance moves the session to the next phase. Ended may be entered from
// any phase; every other transition moves exactly one step.
func (s *Session) advance(to Phase) error {
	if s.phase == PhaseEnded || (to != PhaseEnded && to != s.phase+1) {
		err := fmt.Errorf("render: invalid session transition %s -> %s", s.phase, to)
		s.logger.Error("stream session transition rejected", "from", s.phase.String(), "to", to.String())
		return err
	}
	s.phase = to
	return nil
}

// Run writes the head, pipes the markup and writes the tail to sink, then
// ends the sink. The caller must have sent the response status already.
//
// A markup read error or a timeout is logged and the document is finished
// with the markup received so far. If ctx is canceled or the sink fails,
// nothing further is written. In every case the sink is ended once and the
// markup stream is closed.
func (s *Session) Run(ctx context.Context, sink Sink) error {
	if err := s.advance(PhaseHeadSent); err != nil {
		return err
	}
	defer s.closeStream()

	streamCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.a.timeout > 0 {
		streamCtx, cancel = context.WithTimeout(ctx, s.a.timeout)
	}
	defer cancel()

	// Closing the stream unblocks a pending Read.
	stop := context.AfterFunc(streamCtx, s.closeStream)
	defer stop()

	if err := s.write(sink, []byte(s.a.shell.Head(s.title))); err != nil {
		return s.finish(sink, OutcomeClientGone, err)
	}

	if err := s.advance(PhaseMarkupStreaming); err != nil {
		return err
	}

	outcome := OutcomeComplete
	var streamErr error

	readErr, writeErr := s.pipe(sink, s.stream)
	switch {
	case writeErr != nil:
		return s.finish(sink, OutcomeClientGone, writeErr)
	case ctx.Err() != nil:
		return s.finish(sink, OutcomeClientGone, ctx.Err())
	case streamCtx.Err() != nil:
		outcome = OutcomeTimeout
		streamErr = errors.New("E031").Wrap(streamCtx.Err())
		s.logger.Warn("render stream timed out",
			"code", "E031",
			"timeout", s.a.timeout.String(),
			"bytes", s.written)
	case readErr != nil:
		outcome = OutcomeStreamError
		streamErr = errors.New("E030").Wrap(readErr)
		s.logger.Error("render stream failed",
			"code", "E030",
			"error", readErr,
			"bytes", s.written)
	}

	if err := s.advance(PhaseTailPending); err != nil {
		return err
	}

	var scripts []string
	if modules := s.renderedModules(); len(modules) > 0 && s.a.modules != nil {
		scripts = s.a.modules.ScriptsForModules(modules)
	}
	tail := s.a.shell.Tail(s.dataScript, scripts)

	if err := s.advance(PhaseTailStreaming); err != nil {
		return err
	}

	if ctx.Err() != nil {
		return s.finish(sink, OutcomeClientGone, ctx.Err())
	}
	if _, err := s.pipe(sink, strings.NewReader(tail)); err != nil {
		return s.finish(sink, OutcomeClientGone, err)
	}

	return s.finish(sink, outcome, streamErr)
}

// renderedModules prefers the modules reported by the stream itself, which
// are only known once it is exhausted.
func (s *Session) renderedModules() []string {
	if reporter, ok := s.stream.(engine.ModuleReporter); ok {
		if modules := reporter.Modules(); len(modules) > 0 {
			return modules
		}
	}
	return s.modules
}

// pipe copies r to sink one chunk at a time, flushing each chunk before the
// next read. Read and write failures are reported separately.
func (s *Session) pipe(sink Sink, r io.Reader) (readErr, writeErr error) {
	buf := make([]byte, s.a.chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := s.write(sink, buf[:n]); werr != nil {
				return nil, werr
			}
		}
		if stderrors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return err, nil
		}
	}
}

func (s *Session) write(sink Sink, p []byte) error {
	n, err := sink.Write(p)
	s.written += int64(n)
	if err != nil {
		return err
	}
	return sink.Flush()
}

// finish ends the sink and records the outcome.
func (s *Session) finish(sink Sink, outcome Outcome, cause error) error {
	s.phaseBeforeEnd = s.phase
	if err := s.advance(PhaseEnded); err != nil {
		return err
	}
	s.outcome = outcome
	s.closeStream()

	if err := sink.End(); err != nil && outcome != OutcomeClientGone {
		s.logger.Warn("ending response failed", "error", err)
	}

	if outcome == OutcomeClientGone {
		s.logger.Info("client went away during stream",
			"phase", s.phaseBeforeEnd.String(),
			"bytes", s.written,
			"error", cause)
	} else {
		s.logger.Debug("stream session ended",
			"outcome", string(outcome),
			"bytes", s.written)
	}

	if s.a.onEnd != nil {
		s.a.onEnd(outcome)
	}
	return cause
}

func (s *Session) closeStream() {
	s.closeOnce.Do(func() {
		_ = s.stream.Close()
	})
}
