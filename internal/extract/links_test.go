package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinks(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		baseURL string
		want    []string
	}{
		{
			name: "absolute links in document order",
			html: `<p><a href="https://a.example/1">one</a>
				<a href="http://b.example/2">two</a></p>`,
			want: []string{"https://a.example/1", "http://b.example/2"},
		},
		{
			name:    "relative resolved against base",
			html:    `<a href="/about">about</a><a href="post/7">post</a>`,
			baseURL: "https://blog.example/24/01/entry",
			want:    []string{"https://blog.example/about", "https://blog.example/24/01/post/7"},
		},
		{
			name:    "relative without base dropped",
			html:    `<a href="/about">about</a><a href="https://a.example/x">x</a>`,
			baseURL: "",
			want:    []string{"https://a.example/x"},
		},
		{
			name: "duplicates collapse",
			html: `<a href="https://a.example/1">a</a><a href="https://a.example/1">b</a>`,
			want: []string{"https://a.example/1"},
		},
		{
			name: "non-web schemes and fragments skipped",
			html: `<a href="mailto:hi@example.com">mail</a>
				<a href="tel:+15550100">call</a>
				<a href="javascript:void(0)">js</a>
				<a href="#section">jump</a>
				<a href="https://a.example/keep">keep</a>`,
			want: []string{"https://a.example/keep"},
		},
		{
			name: "unclosed markup still yields links",
			html: `<div><a href="https://a.example/1">one<p><a href="https://b.example/2">two`,
			want: []string{"https://a.example/1", "https://b.example/2"},
		},
		{
			name: "empty input",
			html: "   ",
			want: nil,
		},
		{
			name: "no anchors",
			html: `<p>plain text with https://not-a-link.example inline</p>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Links(tt.html, tt.baseURL))
		})
	}
}
