package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSources(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSourceCacheLoadYAML(t *testing.T) {
	path := writeSources(t, "sources.yml", `
- source: acme
  source_url: https://acme.example/feed
  enabled: true
  language: en
  default_tags: [youth, grants]
  filters:
    - field: title
      excludes: [sponsored]
- source: beta
  source_url: https://beta.example/rss
  enabled: false
  timeout: 10
- source: gamma
  source_url: https://gamma.example/atom
  enabled: true
  extract_content: true
`)

	cache := NewSourceCache(path)
	require.NoError(t, cache.Run())
	assert.Equal(t, 3, cache.GetSourceCount())

	acme, err := cache.GetSource("acme")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/feed", acme.SourceURL)
	assert.Equal(t, "en", acme.Language)
	assert.Equal(t, []string{"youth", "grants"}, acme.DefaultTags)
	assert.Equal(t, defaultSourceTimeout, acme.Timeout)
	require.Len(t, acme.Filters, 1)

	beta, err := cache.GetSource("beta")
	require.NoError(t, err)
	assert.Equal(t, 10, beta.Timeout)

	enabled := cache.GetEnabledSources()
	require.Len(t, enabled, 2)
	assert.Equal(t, "acme", enabled[0].Source)
	assert.Equal(t, "gamma", enabled[1].Source)
	assert.True(t, enabled[1].ExtractContent)

	all := cache.GetSources()
	require.Len(t, all, 3)
	assert.Equal(t, "beta", all[1].Source)
}

func TestSourceCacheLoadJSON(t *testing.T) {
	path := writeSources(t, "sources.json", `[
  {"source": "acme", "source_url": "https://acme.example/feed", "enabled": true, "language": null, "default_tags": ["youth"]}
]`)

	cache := NewSourceCache(path)
	require.NoError(t, cache.Run())

	acme, err := cache.GetSource("acme")
	require.NoError(t, err)
	assert.True(t, acme.Enabled)
	assert.Equal(t, "", acme.Language)
	assert.Equal(t, []string{"youth"}, acme.DefaultTags)
}

func TestSourceCacheValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing slug", "- source_url: https://x.example\n", "source is required"},
		{"missing url", "- source: x\n", "source_url is required"},
		{"duplicate slug", "- {source: x, source_url: https://x.example}\n- {source: x, source_url: https://y.example}\n", "duplicate source"},
		{"parent slug", "- {source: ../x, source_url: https://x.example}\n", "invalid source slug"},
		{"nested slug", "- {source: a/b, source_url: https://x.example}\n", "invalid source slug"},
		{"backslash slug", "- {source: 'a\\b', source_url: https://x.example}\n", "invalid source slug"},
		{"dot slug", "- {source: '.', source_url: https://x.example}\n", "invalid source slug"},
		{"negative timeout", "- {source: x, source_url: https://x.example, timeout: -1}\n", "timeout must be non-negative"},
		{"bad filter field", "- {source: x, source_url: https://x.example, filters: [{field: body, includes: [a]}]}\n", "invalid filter field"},
		{"empty filter", "- {source: x, source_url: https://x.example, filters: [{field: title}]}\n", "at least one include or exclude"},
		{"not a list", "source: x\n", "failed to parse sources"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewSourceCache(writeSources(t, "sources.yml", tt.content))
			err := cache.Run()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSourceCacheMissingFile(t *testing.T) {
	cache := NewSourceCache(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, cache.Run())
	assert.Equal(t, 0, cache.GetSourceCount())
}

func TestSourceCacheUnknownSource(t *testing.T) {
	cache := NewSourceCache(writeSources(t, "sources.yml", "[]\n"))
	require.NoError(t, cache.Run())

	_, err := cache.GetSource("nope")
	assert.Error(t, err)
}
