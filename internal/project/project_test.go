package project

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/idecore/internal/errors"
)

const builderDoap = `<?xml version="1.0" encoding="UTF-8"?>
<Project xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:foaf="http://xmlns.com/foaf/0.1/"
         xmlns="http://usefulinc.com/ns/doap#">
  <name xml:lang="en">Builder</name>
  <shortdesc xml:lang="en">An IDE for writing GNOME-based software</shortdesc>
  <homepage rdf:resource="https://wiki.gnome.org/Apps/Builder" />
  <programming-language>C</programming-language>
  <programming-language> Python </programming-language>
  <maintainer>
    <foaf:Person>
      <foaf:name>Jane Hacker</foaf:name>
      <foaf:mbox rdf:resource="mailto:jane@example.org" />
    </foaf:Person>
  </maintainer>
</Project>
`

func TestParseDoap(t *testing.T) {
	d, err := ParseDoap(strings.NewReader(builderDoap))
	require.NoError(t, err)

	assert.Equal(t, "Builder", d.Name)
	assert.Equal(t, "An IDE for writing GNOME-based software", d.ShortDesc)
	assert.Equal(t, "https://wiki.gnome.org/Apps/Builder", d.HomepageURL())
	assert.Equal(t, []string{"C", "Python"}, d.Languages)
	require.Len(t, d.People(), 1)
	assert.Equal(t, "Jane Hacker", d.People()[0].Name)
	assert.Equal(t, "jane@example.org", d.People()[0].Email())
}

func TestParseDoap_WrappedInRDF(t *testing.T) {
	doc := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://usefulinc.com/ns/doap#">
<Project><name>Wrapped</name></Project></rdf:RDF>`
	d, err := ParseDoap(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Wrapped", d.Name)
}

func TestParseDoap_Invalid(t *testing.T) {
	_, err := ParseDoap(strings.NewReader("<html><body/></html>"))
	assert.ErrorIs(t, err, errors.ErrInvalidData)

	_, err = ParseDoap(strings.NewReader("<Project><name>"))
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestProject_DefaultsToDirectoryName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my app")
	require.NoError(t, os.Mkdir(dir, 0o755))

	p := New(dir)
	assert.Equal(t, "my app", p.Name())
	assert.Equal(t, "my-app", p.ID())
	assert.Equal(t, dir, p.Directory())

	file := filepath.Join(dir, "meson.build")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Equal(t, dir, New(file).Directory())
}

func TestProject_ProbeUsesDoap(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.doap"), []byte("not xml"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "builder.doap"), []byte(builderDoap), 0o644))

	p := New(dir)
	require.NoError(t, p.Probe(context.Background(), nil))
	assert.Equal(t, "Builder", p.Name())
	require.NotNil(t, p.Doap())
	assert.Equal(t, []string{"C", "Python"}, p.Doap().Languages)
}

func TestProject_ProbeWithoutDoap(t *testing.T) {
	dir := t.TempDir()
	p := New(dir)
	require.NoError(t, p.Probe(context.Background(), nil))
	assert.Equal(t, filepath.Base(dir), p.Name())
	assert.Nil(t, p.Doap())
}

func TestMakeID(t *testing.T) {
	assert.Equal(t, "gnome-builder", MakeID("gnome builder"))
	assert.Equal(t, "a-b-c", MakeID("a/b|c"))
}
