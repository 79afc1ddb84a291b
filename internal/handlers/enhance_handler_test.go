package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhanceImageURL(t *testing.T) {
	out, err := enhanceImageURL("https://cdn.example.com/uploads/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/uploads/enhanced/photo.jpg", out)
}

func TestEnhanceImageURLKeepsQuery(t *testing.T) {
	out, err := enhanceImageURL("https://cdn.example.com/u/1/img.png?v=2")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/u/1/enhanced/img.png?v=2", out)
}

func TestEnhanceImageURLRejectsBadInput(t *testing.T) {
	cases := []string{
		"ftp://cdn.example.com/photo.jpg",
		"https://cdn.example.com/uploads/",
		"not a url at all://",
	}
	for _, in := range cases {
		_, err := enhanceImageURL(in)
		assert.Error(t, err, "input %q should be rejected", in)
	}
}
