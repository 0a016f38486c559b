package policy

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const policiesDir = "/project/.featuregraph/policies"

func TestLoadSources(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/security/secrets.rego": "package featuregraph.docs\n\ndeny contains \"key\" if contains(input.content, \"BEGIN PRIVATE KEY\")\n",
		"/headings.rego":         "package featuregraph.docs\n\nwarn contains \"no headings\" if count(input.headings) == 0\n",
		"/headings_test.rego":    "package featuregraph.docs_test",
		"/README.md":             "# Policies",
	}
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, policiesDir+name, []byte(body), 0o644))
	}

	sources, err := LoadSources(fs, policiesDir)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "headings", sources[0].Name)
	assert.Equal(t, "secrets", sources[1].Name)
	assert.Equal(t, policiesDir+"/security/secrets.rego", sources[1].Path)
	assert.Contains(t, sources[1].Module, "BEGIN PRIVATE KEY")
}

func TestLoadSources_EmptyOrMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(policiesDir, 0o755))

	sources, err := LoadSources(fs, policiesDir)
	require.NoError(t, err)
	assert.Empty(t, sources)

	sources, err = LoadSources(fs, "/nowhere")
	require.NoError(t, err)
	assert.Empty(t, sources)
}
