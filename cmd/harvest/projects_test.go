package main

import (
	"testing"

	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProjectValue(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantName string
		wantURL  string
		wantNil  bool
	}{
		{name: "configured name", value: "commons-io", wantName: "commons-io", wantNil: true},
		{name: "name=url", value: "io=https://github.com/apache/commons-io.git", wantName: "io", wantURL: "https://github.com/apache/commons-io.git"},
		{name: "name=ssh url", value: "guava=git@github.com:google/guava.git", wantName: "guava", wantURL: "git@github.com:google/guava.git"},
		{name: "https url", value: "https://github.com/apache/commons-lang.git", wantName: "commons-lang", wantURL: "https://github.com/apache/commons-lang.git"},
		{name: "ssh url", value: "git@github.com:google/guava.git", wantName: "guava", wantURL: "git@github.com:google/guava.git"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, name, err := parseProjectValue(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			if tt.wantNil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.wantName, p.Name)
			assert.Equal(t, tt.wantURL, p.URL)
		})
	}

	_, _, err := parseProjectValue("  ")
	assert.Error(t, err)
}

func TestUpsertProject(t *testing.T) {
	projects := []models.Project{
		{Name: "a", URL: "https://example.com/a.git"},
		{Name: "b", URL: "https://example.com/b.git"},
	}

	replaced := upsertProject(projects, models.Project{Name: "a", URL: "https://mirror/a.git"})
	assert.Equal(t, []models.Project{
		{Name: "a", URL: "https://mirror/a.git"},
		{Name: "b", URL: "https://example.com/b.git"},
	}, replaced)
	assert.Equal(t, "https://example.com/a.git", projects[0].URL, "input must not be modified")

	appended := upsertProject(projects, models.Project{Name: "c", URL: "https://example.com/c.git"})
	require.Len(t, appended, 3)
	assert.Equal(t, "c", appended[2].Name)
}
