package render

import "strings"

// escapeHTML escapes text for safe inclusion in HTML content.
func escapeHTML(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		default:
			buf.WriteRune(r)
		}
	}

	return buf.String()
}

// escapeAttr escapes text for safe inclusion in HTML attribute values.
// In addition to the standard HTML entities, it also escapes
// whitespace characters that could break attribute parsing.
func escapeAttr(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		case '\n':
			buf.WriteString("&#10;")
		case '\r':
			buf.WriteString("&#13;")
		case '\t':
			buf.WriteString("&#9;")
		default:
			buf.WriteRune(r)
		}
	}

	return buf.String()
}

// escapeScriptText makes JavaScript source safe to place between
// <script> and </script>. Any "</script" (case-insensitive) becomes
// "<\/script", which the browser no longer treats as an end tag.
func escapeScriptText(s string) string {
	const closing = "</script"

	var buf strings.Builder
	start := 0
	for i := 0; i+len(closing) <= len(s); i++ {
		if s[i] != '<' || s[i+1] != '/' || !strings.EqualFold(s[i+2:i+len(closing)], closing[2:]) {
			continue
		}
		if start == 0 {
			buf.Grow(len(s) + 8)
		}
		buf.WriteString(s[start:i])
		buf.WriteString(`<\/`)
		start = i + 2
		i += len(closing) - 1
	}
	if start == 0 {
		return s
	}
	buf.WriteString(s[start:])

	return buf.String()
}

// escapeLineTerminators escapes U+2028 and U+2029, which are valid in JSON
// strings but terminate lines in older JavaScript parsers.
func escapeLineTerminators(s string) string {
	if !strings.ContainsAny(s, "\u2028\u2029") {
		return s
	}
	return lineTerminators.Replace(s)
}

var lineTerminators = strings.NewReplacer("\u2028", `\u2028`, "\u2029", `\u2029`)
