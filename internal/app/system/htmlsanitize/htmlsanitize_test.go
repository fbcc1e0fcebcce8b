package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/onepager/internal/app/system/htmlsanitize"
	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text", "Welcome to the team!", "Welcome to the team!"},
		{"safe formatting", "<p><strong>Bold</strong> and <em>italic</em></p>", "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{"removes script", "<p>Hello</p><script>alert('xss')</script>", "<p>Hello</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, htmlsanitize.Sanitize(tt.in))
		})
	}
}

func TestSanitize_RemovesJavascriptHref(t *testing.T) {
	result := htmlsanitize.Sanitize(`<a href="javascript:alert('xss')">Click</a>`)
	assert.NotContains(t, result, "javascript:")
}

func TestSanitize_SafeLinksGetNoFollow(t *testing.T) {
	result := htmlsanitize.Sanitize(`<a href="https://example.com/listing">Listing</a>`)
	assert.Contains(t, result, "https://example.com/listing")
	assert.Contains(t, result, "nofollow")
}

func TestSanitize_RemovesImagesAndIframes(t *testing.T) {
	result := htmlsanitize.Sanitize(`<p>Hi</p><img src="https://tracker.example.com/p.gif"><iframe src="https://evil.com"></iframe>`)
	assert.NotContains(t, result, "img")
	assert.NotContains(t, result, "iframe")
}

func TestPlainText(t *testing.T) {
	cases := []struct{ in, want string }{
		{in: "", want: ""},
		{in: "Ada Lovelace", want: "Ada Lovelace"},
		{in: "  Ada   \n Lovelace ", want: "Ada Lovelace"},
		{in: "<b>Ada</b> <i>Lovelace</i>", want: "Ada Lovelace"},
		{in: "Ada<script>x()</script>", want: "Ada"},
		{in: "Smith &amp; Co", want: "Smith & Co"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, htmlsanitize.PlainText(tc.in), "PlainText(%q)", tc.in)
	}
}

func TestIsPlainText(t *testing.T) {
	assert.True(t, htmlsanitize.IsPlainText(""))
	assert.True(t, htmlsanitize.IsPlainText("3 < 4"), "a lone angle bracket is plain text")
	assert.False(t, htmlsanitize.IsPlainText("<p>Hello</p>"))
}
