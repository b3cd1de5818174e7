package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "paragraphs and link",
			in:   `<p>Hello   Ada,</p><p><a href="https://x.test/c?a=1&amp;token=t">Confirm</a></p>`,
			want: "Hello Ada,\n\nConfirm (https://x.test/c?a=1&token=t)",
		},
		{
			name: "head and script dropped",
			in:   `<html><head><title>T</title><style>p{}</style></head><body><script>x()</script><p>Body</p></body></html>`,
			want: "Body",
		},
		{
			name: "line breaks and lists",
			in:   `line one<br>line two<ul><li>a</li><li>b</li></ul>`,
			want: "line one\nline two\n\n- a\n- b",
		},
		{
			name: "entities",
			in:   `<p>Tom &amp; Jerry</p>`,
			want: "Tom & Jerry",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTMLToText(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
