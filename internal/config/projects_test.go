package config

import (
	"path/filepath"
	"testing"

	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProjectsShapes(t *testing.T) {
	want := []models.Project{
		{Name: "signal-server", URL: "https://github.com/signalapp/Signal-Server.git"},
		{Name: "h2", URL: "https://github.com/h2database/h2database.git"},
	}

	inputs := map[string]string{
		"list": `
- name: signal-server
  url: https://github.com/signalapp/Signal-Server.git
- name: h2
  url: https://github.com/h2database/h2database.git
`,
		"keyed list": `
projects:
  - name: signal-server
    url: https://github.com/signalapp/Signal-Server.git
  - name: h2
    url: https://github.com/h2database/h2database.git
`,
		"mapping": `
signal-server: https://github.com/signalapp/Signal-Server.git
h2: https://github.com/h2database/h2database.git
`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := ParseProjects([]byte(input))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseProjectsErrors(t *testing.T) {
	_, err := ParseProjects([]byte("just a string"))
	assert.Error(t, err)

	_, err = ParseProjects([]byte("p:\n  nested: true\n"))
	assert.Error(t, err)

	got, err := ParseProjects([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadProjectsFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "projects.yaml", "okhttp: https://github.com/square/okhttp.git\n")

	got, err := LoadProjects(path)
	require.NoError(t, err)
	assert.Equal(t, []models.Project{{Name: "okhttp", URL: "https://github.com/square/okhttp.git"}}, got)

	_, err = LoadProjects(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseProjectFlag(t *testing.T) {
	p, err := ParseProjectFlag("jabref=https://github.com/JabRef/jabref.git")
	require.NoError(t, err)
	assert.Equal(t, models.Project{Name: "jabref", URL: "https://github.com/JabRef/jabref.git"}, p)

	_, err = ParseProjectFlag("jabref")
	assert.Error(t, err)
}

func TestSelectProjects(t *testing.T) {
	all := []models.Project{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	got, err := SelectProjects(all, nil)
	require.NoError(t, err)
	assert.Equal(t, all, got)

	got, err = SelectProjects(all, []string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []models.Project{{Name: "a"}, {Name: "c"}}, got)

	_, err = SelectProjects(all, []string{"z"})
	assert.Error(t, err)
}
