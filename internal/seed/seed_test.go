package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
profile:
  name: Ada Lovelace
  headline: Engineer
  socials:
    github: https://github.com/ada
categories:
  - name: Tools
  - name: Drafts
    visible: false
projects:
  - title: Kiln
    category: tools
    techStack: [go, postgres]
    featured: true
posts:
  - title: Hello
    content: "<p>hi</p>"
    publishedAt: 2024-03-01T09:30:00Z
    tags: [intro]
experiences:
  - company: Analytical Engines
    position: Programmer
    startDate: 1842-01-01
ideaNodes:
  - title: Consulting
    estimatedValue: 1200.50
    x: 10
    y: 20
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.NotNil(t, doc.Profile)
	assert.Equal(t, "Ada Lovelace", doc.Profile.Name)
	assert.Equal(t, "https://github.com/ada", doc.Profile.Socials["github"])

	require.Len(t, doc.Categories, 2)
	assert.True(t, doc.Categories[0].Visible, "rows are published by default")
	assert.False(t, doc.Categories[1].Visible)

	require.Len(t, doc.Projects, 1)
	assert.Equal(t, "tools", doc.Projects[0].Category)
	assert.Equal(t, []string{"go", "postgres"}, []string(doc.Projects[0].TechStack))
	assert.True(t, doc.Projects[0].Featured)

	require.Len(t, doc.Posts, 1)
	require.NotNil(t, doc.Posts[0].PublishedAt)
	assert.Equal(t, 9, doc.Posts[0].PublishedAt.Hour())

	require.Len(t, doc.Experiences, 1)
	assert.Equal(t, "1842-01-01", doc.Experiences[0].StartDate)

	require.Len(t, doc.IdeaNodes, 1)
	assert.Equal(t, "1200.5", doc.IdeaNodes[0].EstimatedValue.String())
	assert.False(t, doc.IdeaNodes[0].Visible, "idea nodes are not published content")
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("projects:\n  - title: Kiln\n    titel: typo\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("widgets: []\n"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	doc, err := Parse(nil)
	require.NoError(t, err)
	assert.Nil(t, doc.Profile)
	assert.Empty(t, doc.Projects)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, doc.Categories, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
