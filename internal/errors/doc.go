// Package errors provides the coded, categorized errors used across ssrdoc.
//
// Every error carries a code from the registry (e.g. "E001") that maps to a
// category, a short message and a longer explanation. Categories separate the
// failures that stop the process from the ones that only fail a request:
//
//   - startup: manifest or inline runtime could not be loaded; fatal
//   - serialization: initial data is not JSON-serializable; one request fails
//   - upstream: enrichment fetch failed; one request fails
//   - stream: render stream broke mid-flight; recovered by the assembler
//   - engine: the render engine refused a render
//   - config, cli: configuration and command line problems
//
// # Usage
//
//	err := errors.New("E001").
//	    WithDetail("manifest.json not found in build/app").
//	    WithSuggestion("Run the client build before starting the server").
//	    Wrap(cause)
//
//	fmt.Fprint(os.Stderr, err.Format())
//	// ERROR E001: Manifest not found
//	//
//	//   manifest.json not found in build/app
//	//
//	//   Hint: Run the client build before starting the server
package errors
