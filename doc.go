// Package ssrdoc serves server-rendered HTML documents for a client-side
// application.
//
// A render engine (usually a sidecar process, see pkg/engine/sidecar)
// produces markup; ssrdoc wraps it in a document that links the build's
// styles, carries the hydration data and loads the runtime, per-component
// and app bundles. Routes are answered in one of three modes, chosen once
// per request:
//
//   - static: SSR disabled, the prebuilt index document is returned;
//   - sync: the markup is rendered in full, then assembled;
//   - stream: the head is flushed at once, markup is piped as it is
//     produced and the tail follows when the engine is done.
//
// Usage:
//
//	app, err := ssrdoc.New(ssrdoc.Config{
//	    SSR:    true,
//	    Assets: os.DirFS("build/app"),
//	}, engine)
package ssrdoc
