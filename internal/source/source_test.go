package source

import (
	"strings"
	"testing"
)

func TestPlausibleTitle(t *testing.T) {
	tests := []struct {
		title  string
		minLen int
		want   bool
	}{
		{"", 5, false},
		{"Hi", 5, false},
		{"Bitcoin hits new high", 10, true},
		{"Short", 5, true},
		{"Shrt", 5, false},
		{strings.Repeat("a", 301), 5, false},
	}
	for _, tt := range tests {
		if got := plausibleTitle(tt.title, tt.minLen); got != tt.want {
			t.Errorf("plausibleTitle(%q, %d) = %v, want %v", tt.title, tt.minLen, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"No tags here", "No tags here"},
		{"<div>  Multiple   spaces  </div>", "Multiple spaces"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripHTML(tt.input); got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAbsolutize(t *testing.T) {
	tests := []struct {
		href, base, want string
	}{
		{"https://example.com/a", "https://base.com", "https://example.com/a"},
		{"/writing/post", "https://www.paradigm.xyz", "https://www.paradigm.xyz/writing/post"},
		{"post", "https://example.com/blog/", "https://example.com/blog/post"},
		{"javascript:void(0)", "https://example.com", ""},
		{"mailto:x@example.com", "https://example.com", ""},
		{"/path", "", ""},
		{"  /trimmed  ", "https://example.com", "https://example.com/trimmed"},
	}
	for _, tt := range tests {
		if got := absolutize(tt.href, tt.base); got != tt.want {
			t.Errorf("absolutize(%q, %q) = %q, want %q", tt.href, tt.base, got, tt.want)
		}
	}
}

func TestImgSrc(t *testing.T) {
	html := `<p>text</p><img class="x" src="https://cdn.example.com/pic.jpg" alt=""><img src="https://cdn.example.com/other.jpg">`
	if got := imgSrc(html); got != "https://cdn.example.com/pic.jpg" {
		t.Errorf("imgSrc = %q, want first image", got)
	}
	if got := imgSrc("<p>no images</p>"); got != "" {
		t.Errorf("imgSrc on plain text = %q, want empty", got)
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := collapseSpace("  a\n\tb   c "); got != "a b c" {
		t.Errorf("collapseSpace = %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "", "x", "y"); got != "x" {
		t.Errorf("firstNonEmpty = %q, want x", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty = %q, want empty", got)
	}
}
