// Package render assembles HTML documents around server-rendered markup.
//
// A Shell is computed once at startup from the asset manifest and the
// document settings. It yields the head (doctype through the opening
// application container) and the tail (hydration data, runtime, module
// scripts, application script).
//
// # Buffered Documents
//
// Assembler joins head, markup and tail in memory:
//
//	shell := render.NewShell(render.ShellConfig{Manifest: m, Resolver: r})
//	html, err := render.NewAssembler(shell).Assemble(result)
//
// # Streamed Documents
//
// StreamAssembler sends the head first, then forwards the markup stream in
// flushed chunks and writes the tail once the stream is exhausted:
//
//	sa := render.NewStreamAssembler(shell, eng, render.StreamOptions{})
//	session, err := sa.NewSession(result) // may fail before any write
//	w.WriteHeader(http.StatusOK)
//	err = session.Run(ctx, render.NewResponseSink(w))
//
// A session moves through the phases New, HeadSent, MarkupStreaming,
// TailPending, TailStreaming and Ended, never backwards. Ended is reached
// exactly once, also when the stream fails or the client goes away.
//
// # Hydration Data
//
// InjectData serializes initial data into a window global. The output is
// HTML-escaped JSON, so it cannot terminate its script element.
package render
