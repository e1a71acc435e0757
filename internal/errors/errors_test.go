package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "startup error",
			code:    "E001",
			wantMsg: "Manifest not found",
			wantCat: CategoryStartup,
		},
		{
			name:    "serialization error",
			code:    "E010",
			wantMsg: "Initial data not serializable",
			wantCat: CategorySerialization,
		},
		{
			name:    "stream error",
			code:    "E030",
			wantMsg: "Render stream failed",
			wantCat: CategoryStream,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryConfig, "route %q has no path", "github")
	if err.Message != `route "github" has no path` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryConfig {
		t.Errorf("Category = %q, want %q", err.Category, CategoryConfig)
	}
}

func TestError_Error(t *testing.T) {
	if got, want := New("E001").Error(), "E001: Manifest not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("E001").Wrap(fmt.Errorf("open manifest.json: no such file"))
	if got, want := wrapped.Error(), "E001: Manifest not found: open manifest.json: no such file"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &Error{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestError_UnwrapAndIs(t *testing.T) {
	cause := stderrors.New("boom")
	err := fmt.Errorf("loading: %w", New("E004").Wrap(cause))

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !stderrors.Is(err, New("E004")) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New("E001")) {
		t.Error("errors.Is should not match a different code")
	}

	var e *Error
	if !stderrors.As(err, &e) || e.Code != "E004" {
		t.Fatalf("errors.As = %v, want E004", e)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E001") != nil {
		t.Error("FromError(nil) should return nil")
	}

	original := New("E010")
	if got := FromError(fmt.Errorf("ctx: %w", original), "E035"); got != original {
		t.Errorf("FromError should return existing Error, got %v", got)
	}

	got := FromError(stderrors.New("plain"), "E035")
	if got.Code != "E035" || got.Category != CategoryEngine {
		t.Errorf("FromError = %+v, want E035/engine", got)
	}
}

func TestCategoryHelpers(t *testing.T) {
	err := fmt.Errorf("request: %w", New("E021").WithStatus(503))

	if CategoryOf(err) != CategoryUpstream {
		t.Errorf("CategoryOf = %q, want %q", CategoryOf(err), CategoryUpstream)
	}
	if !IsCategory(err, CategoryUpstream) {
		t.Error("IsCategory(upstream) = false")
	}
	if IsCategory(nil, CategoryUpstream) {
		t.Error("IsCategory(nil) = true")
	}
	if Code(err) != "E021" {
		t.Errorf("Code = %q, want E021", Code(err))
	}
	if Code(stderrors.New("x")) != "" {
		t.Error("Code of a plain error should be empty")
	}
	if Status(err) != 503 {
		t.Errorf("Status = %d, want 503", Status(err))
	}
	if Status(stderrors.New("x")) != 0 {
		t.Error("Status of a plain error should be 0")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E001").
		WithSuggestion("Run the client build first").
		Wrap(stderrors.New("open build/app/manifest.json: no such file or directory"))

	out := err.Format()
	for _, want := range []string{
		"ERROR E001: Manifest not found",
		"Cause: open build/app/manifest.json",
		"Hint: Run the client build first",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E021").WithStatus(403)
	if got, want := err.FormatCompact(), "E021: Upstream returned an error status (status 403)"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestPrint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Print(&buf, New("E041"))
	if !strings.Contains(buf.String(), "E041: Configuration file not found") {
		t.Errorf("Print coded = %q", buf.String())
	}

	buf.Reset()
	Print(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Print plain = %q", buf.String())
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) != len(registry) {
		t.Errorf("GetAllCodes() returned %d codes, want %d", len(codes), len(registry))
	}
	for _, code := range codes {
		tmpl, ok := GetTemplate(code)
		if !ok {
			t.Errorf("GetTemplate(%q) not found", code)
		}
		if tmpl.Category == "" || tmpl.Message == "" {
			t.Errorf("template %q is incomplete: %+v", code, tmpl)
		}
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  int
	}{
		{"", 10, 0},
		{"short", 10, 1},
		{"this is a longer line that wraps", 10, 4},
	}

	for _, tt := range tests {
		if got := wrapText(tt.text, tt.width); len(got) != tt.want {
			t.Errorf("wrapText(%q, %d) = %d lines, want %d", tt.text, tt.width, len(got), tt.want)
		}
	}
}
