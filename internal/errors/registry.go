package errors

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Startup Errors (E001-E009)
	// ============================================

	"E001": {
		Category: CategoryStartup,
		Message:  "Manifest not found",
		Detail:   "The build manifest could not be read. Server-side rendering needs it to reference styles and scripts.",
	},
	"E002": {
		Category: CategoryStartup,
		Message:  "Manifest malformed",
		Detail:   "The build manifest is not valid JSON or does not have the expected shape.",
	},
	"E003": {
		Category: CategoryStartup,
		Message:  "Manifest entry missing",
		Detail:   "A required entry (runtime or app script) is not present in the manifest.",
	},
	"E004": {
		Category: CategoryStartup,
		Message:  "Inline runtime unreadable",
		Detail:   "The runtime asset referenced by the manifest could not be read for inlining.",
	},
	"E005": {
		Category: CategoryStartup,
		Message:  "Asset source unavailable",
		Detail:   "The build output location could not be opened.",
	},

	// ============================================
	// Request Errors (E010-E039)
	// ============================================

	"E010": {
		Category: CategorySerialization,
		Message:  "Initial data not serializable",
		Detail:   "The initial data for hydration could not be encoded as JSON.",
	},
	"E020": {
		Category: CategoryUpstream,
		Message:  "Upstream fetch failed",
		Detail:   "The enrichment source could not be reached.",
	},
	"E021": {
		Category: CategoryUpstream,
		Message:  "Upstream returned an error status",
		Detail:   "The enrichment source answered with a non-2xx status.",
	},
	"E030": {
		Category: CategoryStream,
		Message:  "Render stream failed",
		Detail:   "The markup stream returned an error before completing. The document was finished with the markup received so far.",
	},
	"E031": {
		Category: CategoryStream,
		Message:  "Render stream timed out",
		Detail:   "The markup stream did not finish within the configured stream timeout.",
	},
	"E035": {
		Category: CategoryEngine,
		Message:  "Render failed",
		Detail:   "The render engine returned an error.",
	},

	// ============================================
	// Config & CLI Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	"E041": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
	},
	"E050": {
		Category: CategoryCLI,
		Message:  "Command failed",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
