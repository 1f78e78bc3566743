// Package lang holds the catalog of languages the editor offers and the
// extension lookup the relay uses when naming the submitted file.
package lang

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v3"
)

// DefaultExt is used for any language tag the relay does not know.
const DefaultExt = "txt"

// ErrUnknownLanguage is returned when a tag is not in a catalog.
var ErrUnknownLanguage = errors.New("unknown language")

// Language is one entry of the catalog.
type Language struct {
	Value       string `json:"value" yaml:"value"`
	Label       string `json:"label" yaml:"label"`
	Ext         string `json:"ext" yaml:"ext"`
	DefaultCode string `json:"defaultCode" yaml:"default_code"`
}

// Catalog is an ordered list of languages. The first entry is the default
// selection.
type Catalog []Language

var builtin = Catalog{
	{
		Value:       "python",
		Label:       "🐍 Python",
		Ext:         "py",
		DefaultCode: "print('Hello, Python!')",
	},
	{
		Value:       "javascript",
		Label:       "📜 JavaScript",
		Ext:         "js",
		DefaultCode: "console.log('Hello, JavaScript!');",
	},
	{
		Value:       "cpp",
		Label:       "🖥️ C++",
		Ext:         "cpp",
		DefaultCode: "#include <iostream>\nint main() {\n  std::cout << \"Hello C++\";\n  return 0;\n}",
	},
	{
		Value:       "c",
		Label:       "🔧 C",
		Ext:         "c",
		DefaultCode: "#include <stdio.h>\nint main() {\n  printf(\"Hello C\\n\");\n  return 0;\n}",
	},
	{
		Value:       "java",
		Label:       "☕ Java",
		Ext:         "java",
		DefaultCode: "public class Main {\n  public static void main(String[] args) {\n    System.out.println(\"Hello Java\");\n  }\n}",
	},
}

// Builtin returns a copy of the built-in catalog.
func Builtin() Catalog {
	out := make(Catalog, len(builtin))
	copy(out, builtin)
	return out
}

// Extension maps a language tag to the file extension the execution service
// expects. The lookup is closed over the built-in catalog; unknown tags get
// DefaultExt instead of an error.
func Extension(tag string) string {
	for _, l := range builtin {
		if l.Value == tag {
			return l.Ext
		}
	}
	return DefaultExt
}

// Default returns the language selected when the editor starts.
func (c Catalog) Default() Language {
	if len(c) == 0 {
		return builtin[0]
	}
	return c[0]
}

// Lookup returns the entry for tag.
func (c Catalog) Lookup(tag string) (Language, error) {
	for _, l := range c {
		if l.Value == tag {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("%w: %s", ErrUnknownLanguage, tag)
}

// ByExtension finds the language registered for a file name's extension.
func (c Catalog) ByExtension(filename string) (Language, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return Language{}, false
	}
	for _, l := range c {
		if l.Ext == ext {
			return l, true
		}
	}
	return Language{}, false
}

// Tags returns the language tags in catalog order.
func (c Catalog) Tags() []string {
	tags := make([]string, len(c))
	for i, l := range c {
		tags[i] = l.Value
	}
	return tags
}

// Validate checks that every entry has a tag and an extension and that no
// tag appears twice.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return errors.New("catalog is empty")
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	for i, l := range c {
		if l.Value == "" || l.Ext == "" {
			return fmt.Errorf("entry %d: value and ext are required", i)
		}
		if !seen.Add(l.Value) {
			return fmt.Errorf("entry %d: duplicate language %q", i, l.Value)
		}
	}
	return nil
}

type catalogFile struct {
	Languages []Language `yaml:"languages"`
}

// LoadCatalog reads a YAML catalog file. Entries whose tag matches a built-in
// language inherit any field the file leaves empty.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	cat := make(Catalog, 0, len(f.Languages))
	for _, l := range f.Languages {
		if base, err := builtin.Lookup(l.Value); err == nil {
			if l.Label == "" {
				l.Label = base.Label
			}
			if l.Ext == "" {
				l.Ext = base.Ext
			}
			if l.DefaultCode == "" {
				l.DefaultCode = base.DefaultCode
			}
		}
		cat = append(cat, l)
	}

	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return cat, nil
}

// Load returns the catalog at path, or the built-in catalog when path is empty.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}
	return LoadCatalog(path)
}
