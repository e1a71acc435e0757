package render

import (
	"math"
	"strings"
	"testing"

	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/internal/jsoncodec"
)

func TestInjectDataRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"empty object", map[string]any{}, "{}"},
		{"nil", nil, "{}"},
		{"nil map", map[string]any(nil), "{}"},
		{"typed nil map", map[string]string(nil), "{}"},
		{"nil pointer", (*struct{ Name string })(nil), "{}"},
		{"nil slice", []any(nil), "{}"},
		{
			"github branches",
			map[string]any{"github": []any{map[string]any{"name": "master"}, map[string]any{"name": "dev"}}},
			`{"github":[{"name":"master"},{"name":"dev"}]}`,
		},
	}

	const prefix = `<script type="text/javascript">window.__INITIAL_DATA__ = `
	const suffix = "</script>"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InjectData("__INITIAL_DATA__", tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasPrefix(got, prefix) || !strings.HasSuffix(got, suffix) {
				t.Fatalf("unexpected script shape: %q", got)
			}

			body := strings.TrimSuffix(strings.TrimPrefix(got, prefix), suffix)
			if body != tt.want {
				t.Errorf("payload = %s, want %s", body, tt.want)
			}

			var decoded any
			if err := jsoncodec.Unmarshal([]byte(body), &decoded); err != nil {
				t.Errorf("payload does not decode: %v", err)
			}
		})
	}
}

func TestInjectDataCannotCloseScript(t *testing.T) {
	got, err := InjectData("__INITIAL_DATA__", map[string]any{
		"bio": "</script><script>alert(1)</script>",
		"sep": "a\u2028b\u2029c",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Count(got, "</") != 1 {
		t.Errorf("only the closing tag may contain </: %q", got)
	}
	if strings.ContainsAny(got, "\u2028\u2029") {
		t.Errorf("line terminators not escaped: %q", got)
	}
}

func TestInjectDataUnserializable(t *testing.T) {
	tests := []struct {
		name string
		data any
	}{
		{"channel", map[string]any{"c": make(chan int)}},
		{"func", map[string]any{"f": func() {}}},
		{"nan", map[string]any{"n": math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InjectData("__INITIAL_DATA__", tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCategory(err, errors.CategorySerialization) {
				t.Errorf("category = %q, want serialization", errors.CategoryOf(err))
			}
		})
	}
}
