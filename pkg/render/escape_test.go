package render

import "testing"

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"plain title", "React App", "React App"},
		{"ampersand", "Tom & Jerry", "Tom &amp; Jerry"},
		{"quotes", `it's "fine"`, "it&#39;s &quot;fine&quot;"},
		{"closing title", "</title><script>x()</script>", "&lt;/title&gt;&lt;script&gt;x()&lt;/script&gt;"},
		{"unicode preserved", "Hello 世界", "Hello 世界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeHTML(tt.input); got != tt.expected {
				t.Errorf("escapeHTML(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEscapeAttr(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"asset path", "/public/app.3c4d.js", "/public/app.3c4d.js"},
		{"query string", "/app.js?v=1&x=2", "/app.js?v=1&amp;x=2"},
		{"breaks out of attribute", `x" onload="alert(1)`, "x&quot; onload=&quot;alert(1)"},
		{"whitespace", "a\nb\tc\r", "a&#10;b&#9;c&#13;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeAttr(tt.input); got != tt.expected {
				t.Errorf("escapeAttr(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEscapeScriptText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no end tag", "var a = 1 < 2;", "var a = 1 < 2;"},
		{"end tag", `s = "</script>";`, `s = "<\/script>";`},
		{"mixed case", "a</SCRIPT>b</Script >", `a<\/SCRIPT>b<\/Script >`},
		{"other closing tags untouched", "</div></scrip", "</div></scrip"},
		{"kelvin sign before end tag", "var k=\"\u212a\";document.write(\"</script>\");", "var k=\"\u212a\";document.write(\"<\\/script>\");"},
		{"dotted capital I before end tag", "i=\"\u0130\";</script>", "i=\"\u0130\";<\\/script>"},
		{"end tag at start and end", "</script></SCRIPT", `<\/script><\/SCRIPT`},
		{"non-ascii fold is not a tag", "</\u017fcript>", "</\u017fcript>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeScriptText(tt.input); got != tt.expected {
				t.Errorf("escapeScriptText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEscapeLineTerminators(t *testing.T) {
	got := escapeLineTerminators("a\u2028b\u2029c")
	if got != `a\u2028b\u2029c` {
		t.Errorf("escapeLineTerminators() = %q", got)
	}

	if got := escapeLineTerminators("plain"); got != "plain" {
		t.Errorf("escapeLineTerminators(plain) = %q", got)
	}
}

func BenchmarkEscapeScriptText(b *testing.B) {
	src := `(function(){var s="</script>";window.runtime=s})();`
	for i := 0; i < b.N; i++ {
		escapeScriptText(src)
	}
}
