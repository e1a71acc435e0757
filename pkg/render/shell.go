package render

import (
	"fmt"
	"strings"

	"github.com/vango-dev/ssrdoc/pkg/assets"
)

// Document configures the HTML document wrapped around rendered markup.
type Document struct {
	// Title is used when a render does not provide one.
	// Default: "React App"
	Title string

	// Lang is the html element's lang attribute.
	// Default: "en"
	Lang string

	// ContainerID is the id of the element the application mounts into.
	// Default: "app"
	ContainerID string

	// DataGlobal is the window property holding the hydration data.
	// Default: "__INITIAL_DATA__"
	DataGlobal string

	// Viewport is the content of the viewport meta tag.
	Viewport string

	// RuntimeEntry and AppEntry are the manifest entries of the runtime
	// and application bundles.
	// Defaults: "runtime.js", "app.js"
	RuntimeEntry string
	AppEntry     string
}

// DefaultDocument returns the document settings used when none are given.
func DefaultDocument() Document {
	return Document{
		Title:        "React App",
		Lang:         "en",
		ContainerID:  "app",
		DataGlobal:   "__INITIAL_DATA__",
		Viewport:     "width=device-width, initial-scale=1, shrink-to-fit=no, user-scalable=no",
		RuntimeEntry: "runtime.js",
		AppEntry:     "app.js",
	}
}

// withDefaults fills zero fields from DefaultDocument.
func (d Document) withDefaults() Document {
	def := DefaultDocument()
	if d.Title == "" {
		d.Title = def.Title
	}
	if d.Lang == "" {
		d.Lang = def.Lang
	}
	if d.ContainerID == "" {
		d.ContainerID = def.ContainerID
	}
	if d.DataGlobal == "" {
		d.DataGlobal = def.DataGlobal
	}
	if d.Viewport == "" {
		d.Viewport = def.Viewport
	}
	if d.RuntimeEntry == "" {
		d.RuntimeEntry = def.RuntimeEntry
	}
	if d.AppEntry == "" {
		d.AppEntry = def.AppEntry
	}
	return d
}

// Shell holds the precomputed parts of the document. It is built once at
// startup and only read afterwards.
type Shell struct {
	doc Document

	// headOpen is everything before the title text, headClose everything
	// after it up to and including the opening container tag.
	headOpen  string
	headClose string

	runtimeTag string
	appTag     string
}

// ShellConfig holds the inputs of NewShell.
type ShellConfig struct {
	Document Document
	Manifest *assets.Manifest
	Resolver assets.Resolver

	// InlineRuntime is the runtime bundle's source. When set, the runtime
	// is embedded in the document; otherwise it is referenced by URL.
	InlineRuntime string
}

// NewShell precomputes the document head and the fixed tail scripts.
func NewShell(cfg ShellConfig) *Shell {
	doc := cfg.Document.withDefaults()
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = assets.NewResolver(cfg.Manifest, "")
	}

	s := &Shell{doc: doc}

	var head strings.Builder
	head.WriteString("<!DOCTYPE html>\n")
	fmt.Fprintf(&head, `<html lang="%s">`+"\n", escapeAttr(doc.Lang))
	head.WriteString("<head>\n")
	head.WriteString(`  <meta charset="UTF-8">` + "\n")
	fmt.Fprintf(&head, `  <meta name="viewport" content="%s">`+"\n", escapeAttr(doc.Viewport))
	head.WriteString("  <title>")
	s.headOpen = head.String()

	head.Reset()
	head.WriteString("</title>\n")
	if cfg.Manifest != nil {
		for _, style := range cfg.Manifest.Styles() {
			fmt.Fprintf(&head, `  <link href="%s" rel="stylesheet">`+"\n", escapeAttr(resolver.Path(style)))
		}
	}
	head.WriteString("</head>\n")
	head.WriteString("<body>\n")
	fmt.Fprintf(&head, `<div id="%s">`, escapeAttr(doc.ContainerID))
	s.headClose = head.String()

	if cfg.InlineRuntime != "" {
		s.runtimeTag = `<script type="text/javascript">` + escapeScriptText(cfg.InlineRuntime) + "</script>"
	} else {
		s.runtimeTag = ScriptTag(resolver.Asset(doc.RuntimeEntry))
	}
	s.appTag = ScriptTag(resolver.Asset(doc.AppEntry))

	return s
}

// Document returns the effective document settings.
func (s *Shell) Document() Document {
	return s.doc
}

// Head returns the document from the doctype through the opening container
// tag. An empty title falls back to the configured default.
func (s *Shell) Head(title string) string {
	if title == "" {
		title = s.doc.Title
	}
	return s.headOpen + escapeHTML(title) + s.headClose
}

// Tail closes the container and appends, in order, the hydration data
// script, the runtime script, moduleScripts and the application script.
func (s *Shell) Tail(dataScript string, moduleScripts []string) string {
	var b strings.Builder
	b.WriteString("</div>\n")
	b.WriteString(dataScript)
	b.WriteString("\n")
	b.WriteString(s.runtimeTag)
	b.WriteString("\n")
	for _, script := range moduleScripts {
		b.WriteString(script)
		b.WriteString("\n")
	}
	b.WriteString(s.appTag)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}

// DataScript serializes data into the document's hydration script.
func (s *Shell) DataScript(data any) (string, error) {
	return InjectData(s.doc.DataGlobal, data)
}

// ScriptTag returns an external classic script element for src.
func ScriptTag(src string) string {
	return `<script type="text/javascript" src="` + escapeAttr(src) + `"></script>`
}
