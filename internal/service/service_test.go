package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanFullName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Alice Liddell", "Alice Liddell"},
		{"  Conan O'Brien  ", "Conan O'Brien"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<b>Bold</b> Name", "Bold Name"},
		{"<img src=x onerror=alert(1)>", ""},
		{"&lt;img src=x onerror=alert(1)&gt;", ""},
		{"&amp;lt;script&amp;gt;x&amp;lt;/script&amp;gt;", ""},
		{"&amp;amp;lt;img src=x&amp;amp;gt;", ""},
	}
	for _, tc := range cases {
		got := cleanFullName(tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.NotContains(t, got, "<", "input %q", tc.in)
	}
}
