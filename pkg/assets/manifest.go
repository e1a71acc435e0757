// Package assets loads the build manifest and resolves fingerprinted asset
// paths for the document shell.
//
// The client build writes a manifest mapping logical entry names to hashed
// files. The grouped form also lists stylesheets and per-component chunks:
//
//	{
//	  "manifest": {"runtime.js": "runtime.1a2b.js", "app.js": "app.3c4d.js"},
//	  "styles":   ["app.5e6f.css"],
//	  "modules":  {"Widget": ["widget.7a8b.js"]}
//	}
//
// A flat map ({"app.js": "app.3c4d.js"}) is accepted as well; its styles are
// the entries ending in ".css".
//
// A Manifest is loaded once at startup and never changes afterwards, so it is
// safe to share between any number of in-flight requests:
//
//	manifest, err := assets.LoadFS(os.DirFS("build/app"), "manifest.json")
//	resolver := assets.NewResolver(manifest, "/public/")
//	resolver.Asset("app.js") // "/public/app.3c4d.js"
package assets

import (
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/internal/jsoncodec"
)

// Manifest holds the mapping from entry names to fingerprinted paths.
// It is immutable once parsed.
type Manifest struct {
	entries map[string]string
	styles  []string
	modules map[string][]string
}

// Grouped is the grouped view of a manifest: ordered stylesheet paths and
// the raw entry mapping.
type Grouped struct {
	Styles  []string          `json:"styles"`
	Entries map[string]string `json:"manifest"`
}

// groupedFile is the on-disk shape of a grouped manifest.
type groupedFile struct {
	Manifest map[string]string   `json:"manifest"`
	Styles   []string            `json:"styles"`
	Modules  map[string][]string `json:"modules"`
}

// Parse decodes manifest JSON in either the grouped or the flat form.
func Parse(data []byte) (*Manifest, error) {
	var shape map[string]any
	if err := jsoncodec.Unmarshal(data, &shape); err != nil {
		return nil, errors.New("E002").Wrap(err)
	}

	if _, grouped := shape["manifest"]; grouped {
		var file groupedFile
		if err := jsoncodec.Unmarshal(data, &file); err != nil {
			return nil, errors.New("E002").Wrap(err)
		}
		return newManifest(file.Manifest, file.Styles, file.Modules), nil
	}

	var flat map[string]string
	if err := jsoncodec.Unmarshal(data, &flat); err != nil {
		return nil, errors.New("E002").
			WithDetail("A flat manifest must map entry names to path strings.").
			Wrap(err)
	}
	return newManifest(flat, cssEntries(flat), nil), nil
}

func newManifest(entries map[string]string, styles []string, modules map[string][]string) *Manifest {
	m := &Manifest{
		entries: make(map[string]string, len(entries)),
		styles:  append([]string(nil), styles...),
		modules: make(map[string][]string, len(modules)),
	}
	for k, v := range entries {
		m.entries[k] = v
	}
	for k, v := range modules {
		m.modules[k] = append([]string(nil), v...)
	}
	return m
}

// cssEntries returns the stylesheet paths of a flat manifest, ordered by
// entry name.
func cssEntries(entries map[string]string) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		if strings.HasSuffix(name, ".css") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	styles := make([]string, 0, len(names))
	for _, name := range names {
		styles = append(styles, entries[name])
	}
	return styles
}

// Load reads a manifest file from disk.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E001").Wrap(err)
	}
	return Parse(data)
}

// LoadFS reads a manifest from fsys.
func LoadFS(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, fsPath(name))
	if err != nil {
		return nil, errors.New("E001").Wrap(err)
	}
	return Parse(data)
}

// Resolve returns the fingerprinted path for the given entry.
// If not found, returns the entry name unchanged.
func (m *Manifest) Resolve(entry string) string {
	if resolved, ok := m.entries[entry]; ok {
		return resolved
	}
	return entry
}

// Lookup returns the fingerprinted path for entry and whether it exists.
func (m *Manifest) Lookup(entry string) (string, bool) {
	resolved, ok := m.entries[entry]
	return resolved, ok
}

// Has returns true if the manifest contains the given entry.
func (m *Manifest) Has(entry string) bool {
	_, ok := m.entries[entry]
	return ok
}

// Len returns the number of entries in the manifest.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// All returns a copy of all manifest entries.
func (m *Manifest) All() map[string]string {
	result := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		result[k] = v
	}
	return result
}

// Styles returns a copy of the ordered stylesheet paths.
func (m *Manifest) Styles() []string {
	return append([]string(nil), m.styles...)
}

// Grouped returns the grouped view of the manifest.
func (m *Manifest) Grouped() Grouped {
	return Grouped{
		Styles:  m.Styles(),
		Entries: m.All(),
	}
}

// ModuleAssets returns the chunk paths needed by the given rendered modules.
// Paths are deduplicated and keep the order in which they first appear.
// Modules without chunks are skipped.
func (m *Manifest) ModuleAssets(modules []string) []string {
	if len(modules) == 0 || len(m.modules) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var paths []string
	for _, mod := range modules {
		for _, p := range m.modules[mod] {
			if seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

// InlineSource reads the contents of the asset behind entry so it can be
// embedded in the document. It is meant to run once at startup.
func InlineSource(fsys fs.FS, m *Manifest, entry string) (string, error) {
	resolved, ok := m.Lookup(entry)
	if !ok {
		return "", errors.New("E003").WithDetail("Entry " + entry + " is not in the manifest.")
	}

	data, err := fs.ReadFile(fsys, fsPath(resolved))
	if err != nil {
		return "", errors.New("E004").Wrap(err)
	}
	return string(data), nil
}

// fsPath turns a manifest path into an fs.FS name.
func fsPath(p string) string {
	return strings.TrimPrefix(p, "/")
}
