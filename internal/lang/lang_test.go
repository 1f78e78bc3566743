package lang

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"python":     "py",
		"javascript": "js",
		"cpp":        "cpp",
		"c":          "c",
		"java":       "java",
		"brainfuck":  "txt",
		"":           "txt",
		"Python":     "txt",
	}
	for tag, want := range cases {
		if got := Extension(tag); got != want {
			t.Errorf("Extension(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestBuiltinDefaultIsPython(t *testing.T) {
	cat := Builtin()
	require.NoError(t, cat.Validate())
	assert.Equal(t, "python", cat.Default().Value)
	assert.Equal(t, []string{"python", "javascript", "cpp", "c", "java"}, cat.Tags())
}

func TestBuiltinIsCopy(t *testing.T) {
	cat := Builtin()
	cat[0].DefaultCode = "changed"
	assert.Equal(t, "print('Hello, Python!')", Builtin()[0].DefaultCode)
}

func TestLookupUnknown(t *testing.T) {
	_, err := Builtin().Lookup("cobol")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLanguage))
}

func TestByExtension(t *testing.T) {
	cat := Builtin()

	l, ok := cat.ByExtension("solution.CPP")
	require.True(t, ok)
	assert.Equal(t, "cpp", l.Value)

	_, ok = cat.ByExtension("Makefile")
	assert.False(t, ok)

	_, ok = cat.ByExtension("notes.md")
	assert.False(t, ok)
}

func TestValidateRejectsDuplicates(t *testing.T) {
	cat := Catalog{
		{Value: "python", Ext: "py"},
		{Value: "python", Ext: "py3"},
	}
	assert.ErrorContains(t, cat.Validate(), "duplicate")

	assert.Error(t, Catalog{{Value: "go"}}.Validate())
	assert.Error(t, Catalog{}.Validate())
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "langs.yaml")
	data := `
languages:
  - value: java
    default_code: "class Main {}"
  - value: go
    label: Go
    ext: go
    default_code: "package main"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, cat, 2)

	assert.Equal(t, "java", cat.Default().Value)
	assert.Equal(t, "java", cat[0].Ext)
	assert.Equal(t, "☕ Java", cat[0].Label)
	assert.Equal(t, "class Main {}", cat[0].DefaultCode)
	assert.Equal(t, "go", cat[1].Ext)

	// The relay lookup never sees file overrides.
	assert.Equal(t, "txt", Extension("go"))
}

func TestLoadCatalogInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "langs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("languages:\n  - value: rust\n"), 0o644))

	_, err := LoadCatalog(path)
	assert.ErrorContains(t, err, "value and ext are required")
}

func TestLoadEmptyPath(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Builtin(), cat)
}
