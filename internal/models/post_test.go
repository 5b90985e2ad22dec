package models

import "testing"

// TestSnippet verifies the word-based truncation used for list views.
func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "short", in: "Sample content", want: "Sample content"},
		{name: "exactly five", in: "one two three four five", want: "one two three four five"},
		{name: "longer", in: "one two three four five six seven", want: "one two three four five"},
		{name: "collapses whitespace", in: "  one\ttwo\n\nthree  ", want: "one two three"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.in); got != tt.want {
				t.Errorf("Snippet(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPostIsPublished(t *testing.T) {
	if (&Post{Status: false}).IsPublished() {
		t.Error("draft post reported as published")
	}
	if !(&Post{Status: true}).IsPublished() {
		t.Error("published post reported as draft")
	}
}

func TestCommentSnippet(t *testing.T) {
	c := &Comment{Body: "this is a rather long comment body"}
	if got := c.Snippet(); got != "this is a rather long" {
		t.Errorf("Snippet() = %q", got)
	}
}
