package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "octocat", want: "octocat"},
		{name: "leading at", in: "@Foo-Bar", want: "Foo-Bar"},
		{name: "surrounding whitespace", in: "  octocat  ", want: "octocat"},
		{name: "whitespace then at", in: " @octocat", want: "octocat"},
		{name: "single char", in: "a", want: "a"},
		{name: "hyphenated", in: "a-b", want: "a-b"},
		{name: "mixed case digits", in: "Ab1-cD2", want: "Ab1-cD2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeHandle(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeHandleIdempotent(t *testing.T) {
	once, err := NormalizeHandle("@Foo-Bar")
	require.NoError(t, err)

	twice, err := NormalizeHandle(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalizeHandleRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "only at", in: "@"},
		{name: "only whitespace", in: "   "},
		{name: "leading hyphen", in: "-abc"},
		{name: "trailing hyphen", in: "abc-"},
		{name: "underscore", in: "a_b"},
		{name: "dot", in: "a.b"},
		{name: "space inside", in: "a b"},
		{name: "slash", in: "a/b"},
		{name: "double at", in: "@@octocat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeHandle(tt.in)
			require.Error(t, err)

			var invalid *InvalidHandleError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}
