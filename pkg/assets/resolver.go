package assets

// Resolver provides asset URL resolution.
// It combines manifest lookup with the public path prefix.
type Resolver interface {
	// Asset resolves an entry name to its full URL path.
	//
	// Example:
	//   resolver.Asset("app.js") → "/public/app.3c4d.js"
	Asset(entry string) string

	// Path prefixes an already resolved asset path.
	Path(resolved string) string
}

// manifestResolver wraps a Manifest to implement Resolver.
type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver creates a Resolver from a Manifest with an optional path prefix.
//
// The prefix is prepended to all resolved paths. Common prefixes:
//   - "/public/" - default public path of the client build
//   - "https://cdn.example.com/app/" - assets served from a CDN
//   - "" - no prefix (use fingerprinted name directly)
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{
		manifest: m,
		prefix:   prefix,
	}
}

func (r *manifestResolver) Asset(entry string) string {
	if r.manifest == nil {
		return r.Path(entry)
	}
	return r.Path(r.manifest.Resolve(entry))
}

func (r *manifestResolver) Path(resolved string) string {
	return r.prefix + fsPath(resolved)
}
