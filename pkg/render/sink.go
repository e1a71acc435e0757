package render

import (
	"bytes"
	stderrors "errors"
	"net/http"
)

// ErrSinkEnded is returned when writing to a sink that was already ended.
var ErrSinkEnded = stderrors.New("render: write after end")

// Sink is the destination of a streamed document. Every write is followed
// by a Flush; End is called exactly once when the document is complete or
// abandoned.
type Sink interface {
	Write(p []byte) (int, error)
	Flush() error
	End() error
}

// ResponseSink streams to an http.ResponseWriter.
type ResponseSink struct {
	w     http.ResponseWriter
	rc    *http.ResponseController
	ended bool
}

// NewResponseSink wraps w. Writers that cannot flush still work; their
// output is delivered when the handler returns.
func NewResponseSink(w http.ResponseWriter) *ResponseSink {
	return &ResponseSink{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// Write implements Sink.
func (s *ResponseSink) Write(p []byte) (int, error) {
	if s.ended {
		return 0, ErrSinkEnded
	}
	return s.w.Write(p)
}

// Flush implements Sink.
func (s *ResponseSink) Flush() error {
	if s.ended {
		return ErrSinkEnded
	}
	err := s.rc.Flush()
	if stderrors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}

// End implements Sink. The HTTP response itself completes when the handler
// returns; End only closes the sink to further writes.
func (s *ResponseSink) End() error {
	if s.ended {
		return ErrSinkEnded
	}
	s.ended = true
	return nil
}

// BufferSink records a streamed document in memory.
// This is useful for testing streaming behavior without an HTTP server.
type BufferSink struct {
	bytes.Buffer
	FlushCount int
	EndCount   int

	// Writes holds each write separately, in order.
	Writes []string

	// FailAfter makes writes fail once that many writes succeeded.
	// Zero disables it.
	FailAfter int
}

// Write implements Sink.
func (s *BufferSink) Write(p []byte) (int, error) {
	if s.EndCount > 0 {
		return 0, ErrSinkEnded
	}
	if s.FailAfter > 0 && len(s.Writes) >= s.FailAfter {
		return 0, stderrors.New("render: client went away")
	}
	s.Writes = append(s.Writes, string(p))
	return s.Buffer.Write(p)
}

// Flush implements Sink.
func (s *BufferSink) Flush() error {
	s.FlushCount++
	return nil
}

// End implements Sink.
func (s *BufferSink) End() error {
	s.EndCount++
	return nil
}
