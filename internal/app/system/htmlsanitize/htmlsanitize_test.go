package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/camphub/internal/app/system/htmlsanitize"
)

func TestSanitize_Empty(t *testing.T) {
	if got := htmlsanitize.Sanitize(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestSanitize_PlainText(t *testing.T) {
	if got := htmlsanitize.Sanitize("Shade, water and good vibes"); got != "Shade, water and good vibes" {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestSanitize_SafeHTML(t *testing.T) {
	input := "<p><strong>Bold</strong> and <em>italic</em></p>"
	if got := htmlsanitize.Sanitize(input); got != input {
		t.Errorf("expected safe HTML preserved, got %q", got)
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	got := htmlsanitize.Sanitize("<p>Hello</p><script>alert('xss')</script>")
	if got != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestSanitize_RemovesDangerousAttributes(t *testing.T) {
	tests := []string{
		`<button onclick="alert('xss')">Click</button>`,
		`<a href="javascript:alert('xss')">Click</a>`,
		`<img src="x" onerror="alert(1)">`,
		`<iframe src="https://evil.example"></iframe>`,
	}
	for _, in := range tests {
		got := htmlsanitize.Sanitize(in)
		for _, bad := range []string{"onclick", "javascript:", "onerror", "iframe"} {
			if strings.Contains(got, bad) {
				t.Errorf("Sanitize(%q) = %q still contains %q", in, got, bad)
			}
		}
	}
}

func TestSanitize_AllowsSafeLinksAndLists(t *testing.T) {
	got := htmlsanitize.Sanitize(`<ul><li><a href="https://burningman.org">BM</a></li></ul>`)
	if !strings.Contains(got, `href="https://burningman.org"`) || !strings.Contains(got, "<li>") {
		t.Errorf("expected link and list preserved, got %q", got)
	}
}

func TestSanitize_AllowsTables(t *testing.T) {
	got := htmlsanitize.Sanitize(`<table><tr><td colspan="2">Dues</td></tr></table>`)
	if !strings.Contains(got, "<table>") || !strings.Contains(got, `colspan="2"`) {
		t.Errorf("expected table preserved, got %q", got)
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"I love welding & cooking", "I love welding & cooking"},
		{"<b>Hi</b> there<script>alert(1)</script>", "Hi there"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.StripTags(tt.in); got != tt.want {
			t.Errorf("StripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"no tags here", true},
		{"<p>tag</p>", false},
		{"5 < 6", true},
		{"6 > 5", true},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.in); got != tt.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlainTextToHTML(t *testing.T) {
	got := htmlsanitize.PlainTextToHTML("line one\nline <two> & more")
	want := "<p>line one<br>line &lt;two&gt; &amp; more</p>"
	if got != want {
		t.Errorf("PlainTextToHTML = %q, want %q", got, want)
	}
}

func TestPrepareForDisplay(t *testing.T) {
	if got := htmlsanitize.PrepareForDisplay("hi\nthere"); got != "<p>hi<br>there</p>" {
		t.Errorf("plain text: got %q", got)
	}
	if got := htmlsanitize.PrepareForDisplay("<p>ok</p><script>x</script>"); got != "<p>ok</p>" {
		t.Errorf("html: got %q", got)
	}
}
