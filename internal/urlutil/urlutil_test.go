package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"https passes", "https://app.example.com/path?a=1", "https://app.example.com/path?a=1"},
		{"http passes", "http://localhost:8080/", "http://localhost:8080/"},
		{"relative passes", "/dashboard", "/dashboard"},
		{"empty passes", "", ""},
		{"javascript replaced", "javascript:alert(1)", InertURL},
		{"data replaced", "data:text/html;base64,PHNjcmlwdD4=", InertURL},
		{"mixed case replaced", "JavaScript:alert(1)", InertURL},
		{"custom scheme replaced", "myapp://open", InertURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestOrigin(t *testing.T) {
	origin, err := Origin("https://app.example.com:8443/path?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com:8443", origin)

	_, err = Origin("/relative/only")
	assert.Error(t, err)
}

func TestMatchesDomain(t *testing.T) {
	assert.True(t, MatchesDomain("https://app.example.com/x", "example.com"))
	assert.True(t, MatchesDomain("https://example.com", "example.com"))
	assert.True(t, MatchesDomain("https://APP.Example.COM", "example.com"))
	assert.False(t, MatchesDomain("https://badexample.com", "example.com"))
	assert.False(t, MatchesDomain("https://example.com.evil.io", "example.com"))
}

func TestWithQuery(t *testing.T) {
	got, err := WithQuery("https://auth.example.com/signin", map[string]string{
		"mode":   "login",
		"apiKey": "key-1",
		"hl":     "",
	})
	require.NoError(t, err)
	assert.Contains(t, got, "mode=login")
	assert.Contains(t, got, "apiKey=key-1")
	assert.NotContains(t, got, "hl=")
}
